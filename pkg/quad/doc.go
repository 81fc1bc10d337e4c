/*
Package quad defines the core data structures shared across Mercury's
public storage API: atoms, quads, temporal intervals, and query modes.

These types cross the boundary between the storage core (internal/store,
internal/atom, internal/btree) and external collaborators such as RDF
parsers and a SPARQL engine. The package intentionally carries no
serialisation logic (Turtle, N-Triples, RDF/XML, ...) — those belong to
out-of-scope upstream subsystems. It exposes only the shapes those
subsystems need to hand quads to Mercury and read them back.

# Core Types

  - Atom: a non-zero 64-bit interned term identifier
  - Quad: a (graph, subject, predicate, object) tuple of atom IDs
  - Interval: a valid-time [from, to) span in milliseconds since epoch
  - Mode: query mode (Current, AsOf, Range, History, Changes)
*/
package quad
