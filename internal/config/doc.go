/*
Package config loads Mercury's administrative configuration from a YAML
file, mirroring the teacher's cmd/warren apply.go: a plain struct tagged
with `yaml:"..."` fields, unmarshaled with gopkg.in/yaml.v3, no schema
validation library or reflection-based binding beyond what yaml.v3
already does.

Unlike a cluster-wide config (the teacher's target), Mercury's config
describes a single store or pool: where it lives on disk, how its
AtomStore and pool should be sized, and how it should log. It is
consumed by cmd/mercury, not by internal/store or internal/pool
directly — those packages take their own Options structs so they stay
usable as a library without ever touching YAML or the filesystem for
configuration.
*/
package config
