// Package local provides an in-process peer transport. All ranks of the world
// run as goroutines of one process and exchange payloads through shared
// mailboxes without copying or serialization of the frame.
//
// It is used by the local transport type of the CLI and by tests.
package local
