/*
Package telemetry provides Mercury's structured logging and metrics,
wrapping zerolog and the Prometheus client the same way the teacher
codebase this module grew out of wraps them: a package-level logger
initialised once via Init, component child loggers via WithComponent,
and a set of package-level Prometheus collectors registered once at
process start.

Mercury's core spawns no threads and opens no network listeners of its
own (see spec.md §1, §5); telemetry is purely instrumentation consumed
by the owning process (an embedding server, the admin CLI, or tests).
*/
package telemetry
