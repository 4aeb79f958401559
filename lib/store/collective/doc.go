// Package collective turns store operations into collective calls over an
// island communicator.
//
// A Writer owns the destination file on the island root. Structural
// operations (create group, create dataset, set attribute, close) run on root
// and their outcome is broadcast, so every rank returns the same error.
// Row writes are two-phase: the rows of every rank are gathered on root,
// which then writes each rank's slab at the offset that rank computed.
//
// OpenReaders opens the source on every rank and fails on all ranks if one
// of them cannot open it. Agree is the general form of this agreement.
package collective
