/*
Package btree implements QuadIndex: a disk-backed B+Tree over a
five-column composite key, used four times per QuadStore (once per
ColumnOrder) to give every (graph, subject, predicate, object) query
shape a matching leading prefix.

# Composite key

Every entry's sort key is five uint64 columns (the ordering's
permutation of graph/subject/predicate/object, padded with a
transaction-time or zero column to make five — see key.go) followed by
valid_from, valid_to, transaction_time as tie-breakers. Unbound columns
in range scans are represented by the sentinel 0 (minimum) or
math.MaxUint64 (maximum), so the comparator alone turns a query pattern
into a half-open range without any special-casing in the scan loop.

# Page layout (16 KiB, little-endian)

	page_id(8) | is_leaf(8) | entry_count(8) | parent_page_id(8) | leftmost_child(8)
	entry[0] entry[1] ... entry[n-1]

leftmost_child doubles as next_leaf on a leaf page and as the
left-of-everything child pointer on an internal page, following the
teacher's single-bucket-type-generalised-by-parameter approach
(pkg/storage/boltdb.go's one BoltStore parameterised by bucket name,
here one page format parameterised by is_leaf).

# Deletion is tombstone-only

spec.md's history/as-of semantics require every prior version to stay
queryable, so Delete never removes or merges pages — it flips
is_deleted on the matching leaf entry. That means the tree only ever
grows, and split is the only structural operation insert needs to
support.

# Temporal overwrite on insert

Inserting an entry whose (graph, subject, predicate, object) matches
the immediately preceding live entry in natural (non-TGSP) scan order,
with a valid_from inside that entry's open interval, truncates the
preceding entry's valid_to to the new entry's valid_from before the new
entry is inserted — keeping live intervals for one quad identity
non-overlapping. TGSP orders by transaction_time first, so quad
identities aren't contiguous there; TGSP inserts skip the check.
*/
package btree
