// Package rpc groups the communication layer of dReshard. Ranks never call
// each other through request/response RPCs; they run collective operations
// (broadcast, scatter, gather, reductions, scans, split) built on top of a
// point-to-point message transport.
//
// The package is organized into several subpackages:
//
//   - common: Message envelope, configuration structures and logging.
//
//   - serializer: envelope encoding with multiple format options (Binary, JSON, GOB).
//
//   - transport: peer-to-peer message transports (in-process, TCP, Unix sockets)
//     sharing a framed wire protocol and a tagged mailbox.
//
//   - comm: communicators and the collective operations themselves.
package rpc
