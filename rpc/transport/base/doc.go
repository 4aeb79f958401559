// Package base implements the peer transport shared by the stream socket
// transports (tcp, unix). The protocol-specific parts are injected through
// IConnector.
//
// Every rank listens on its own endpoint. The first Send to a peer dials it,
// retrying with exponential backoff while the peer is still starting. Each
// accepted connection gets one reader goroutine that decodes frames and hands
// them to a transport.Mailbox, where Recv picks them up by source rank and tag.
//
// Frame format (big endian):
//
//	context(8) seq(8) src(4) len(4) payload(len)
//
// Header and payload are written with net.Buffers in one call. Read buffers
// come from a sync.Pool; payloads are copied out before the buffer is reused.
//
// A connection that breaks with anything but EOF fails the whole transport:
// all blocked and future receives return the error.
package base
