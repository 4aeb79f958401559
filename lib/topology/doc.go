// Package topology partitions the world of ranks into islands, one per
// snapshot file.
//
// An island is a contiguous range of global ranks. With base = size/files
// and rem = size%files, the first rem islands have base+1 members and the
// rest have base members, so island sizes differ by at most one. Rank 0 of
// every island is its root for the serial strategies.
//
// BlockRange is the only balanced split in the module. Island membership,
// the row counts of the chunk transport and the row slices of parallel I/O
// all derive from it, which keeps the serial and parallel strategies
// partitioning rows identically.
package topology
