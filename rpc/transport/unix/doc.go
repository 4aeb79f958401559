// Package unix implements the peer transport over Unix domain sockets, for
// worlds whose ranks all run on one machine. Each endpoint is a socket path;
// a stale socket file at that path is removed before listening.
//
// The default read buffer is 64 KB.
package unix
