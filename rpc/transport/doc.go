// Package transport defines the point-to-point message layer below the
// collective operations of package comm.
//
// A transport connects the ranks of one world. Messages are addressed by
// destination rank and a Tag (communicator context and collective sequence
// number); the receiver asks for a specific (source, tag) pair and the Mailbox
// parks messages that arrive before they are asked for. Because every rank
// issues the same ordered collective calls, each (source, tag) pair is used by
// exactly one message.
//
// Implementations:
//
//   - local: all ranks live in one process and exchange slices through mailboxes.
//
//   - tcp, unix: one process per rank, built on the framed protocol of package base.
package transport
