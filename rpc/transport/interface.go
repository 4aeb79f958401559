package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send and Recv after the transport has been closed
var ErrClosed = errors.New("transport closed")

// Tag addresses one point-to-point message of a collective. Context names the
// communicator, Seq the position of the collective in that communicator's
// call sequence. Together with the source rank it is unique.
type Tag struct {
	Context uint64
	Seq     uint64
}

// IPeerTransport moves byte payloads between the ranks of a world
type IPeerTransport interface {
	// Rank returns the global rank of this endpoint
	Rank() int
	// Size returns the number of ranks of the world
	Size() int
	// Send delivers data to rank dst. The transport takes ownership of data.
	Send(ctx context.Context, dst int, tag Tag, data []byte) error
	// Recv blocks until the message with the given source and tag arrives,
	// the context is done or the transport fails.
	Recv(ctx context.Context, src int, tag Tag) ([]byte, error)
	// Close releases all resources. Blocked receivers return ErrClosed.
	Close() error
}
