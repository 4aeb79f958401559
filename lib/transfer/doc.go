// Package transfer moves the rows of a field between the island root and the
// other ranks of an island.
//
// Distribute scatters a field held by the root so that rank k holds
// topology.BlockRange(R, S, k) rows. Gather is its inverse: it assembles the
// rows of all ranks on the root in ascending rank order. Because both use the
// same contiguous ascending assignment, Gather after Distribute reproduces
// the original buffer exactly.
//
// A Plan holds element counts and displacements; the collectives work on
// bytes, so one implementation serves every value kind.
//
// Bytes moved are counted in dreshard_transfer_bytes_total.
package transfer
