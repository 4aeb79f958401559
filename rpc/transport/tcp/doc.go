// Package tcp implements the peer transport over TCP sockets. It provides the
// TCP connector for the base package, which does the framing, dialing and
// message matching.
//
// Socket options (TCP_NODELAY, keep-alive, linger, buffer sizes) come from the
// TCPConf and SocketConf sections of common.WorldConfig and are applied to
// both dialed and accepted connections.
//
// The default read buffer is 512 KB. Larger frames allocate their own buffer.
package tcp
