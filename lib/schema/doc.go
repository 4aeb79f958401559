// Package schema knows the layout of a snapshot file: which groups exist,
// which attributes each group carries and which fields each particle group
// holds.
//
// The layout is a closed set of blocks (BlockKind). Unconditional blocks are
// always present; variant blocks are selected by a marker attribute or, for
// particle groups, by a non-zero particle count in the header. Probe
// resolves the present blocks of one file and Resolve shares that result
// with every rank of an island, so all ranks walk the same ordered list and
// issue the same collective calls.
package schema
