// Package sliceio implements the parallel read and write strategy: every
// rank of an island reads or writes its own contiguous row range of a
// dataset directly.
//
// The row range of a rank is (offset, length). On read, the length comes
// from LocalSlice, the balanced split shared with the chunk transport, and
// the offset from an exclusive scan over the lengths. On write, the length
// is the local row count and the destination size is the sum over the island.
package sliceio
