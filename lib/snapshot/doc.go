// Package snapshot moves complete snapshot files through an island of
// ranks.
//
// A Snapshot holds one RecordGroup per block of the format (see package
// schema). Each record group can be read in two ways:
//
//   - ReadSerialThenDistribute: the island root reads the whole block and
//     distributes every field row-balanced over the island.
//   - ReadParallel: every rank reads its own rows of every field.
//
// and written in two ways:
//
//   - WriteGatherThenSerial: every field is gathered on the root, which
//     writes the block alone.
//   - WriteParallel: every rank writes its rows through collective calls.
//
// Attributes and scaling attributes are always read by the root and
// broadcast. Absent blocks take part in no collective call. Any read
// strategy can be combined with any write strategy and all four pairs
// produce the same destination file.
//
// Reshape drives a whole run: it discovers the input files, splits the
// world into one island per file, and copies each file through its island
// into the output directory.
package snapshot
