package local

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"sync/atomic"
)

// world is the state shared by all endpoints of one in-process world
type world struct {
	mailboxes []*transport.Mailbox
}

// endpoint implements transport.IPeerTransport for one rank of a world
type endpoint struct {
	world  *world
	rank   int
	closed atomic.Bool
}

// NewWorld creates size connected in-process endpoints. Endpoint i has rank i.
func NewWorld(size int) []transport.IPeerTransport {
	w := &world{mailboxes: make([]*transport.Mailbox, size)}
	for i := range w.mailboxes {
		w.mailboxes[i] = transport.NewMailbox()
	}

	endpoints := make([]transport.IPeerTransport, size)
	for i := range endpoints {
		endpoints[i] = &endpoint{world: w, rank: i}
	}
	return endpoints
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IPeerTransport)
// --------------------------------------------------------------------------

func (e *endpoint) Rank() int {
	return e.rank
}

func (e *endpoint) Size() int {
	return len(e.world.mailboxes)
}

func (e *endpoint) Send(_ context.Context, dst int, tag transport.Tag, data []byte) error {
	if e.closed.Load() {
		return transport.ErrClosed
	}
	if dst < 0 || dst >= e.Size() {
		return fmt.Errorf("destination rank %d out of range [0, %d)", dst, e.Size())
	}
	e.world.mailboxes[dst].Deliver(e.rank, tag, data)
	return nil
}

func (e *endpoint) Recv(ctx context.Context, src int, tag transport.Tag) ([]byte, error) {
	if src < 0 || src >= e.Size() {
		return nil, fmt.Errorf("source rank %d out of range [0, %d)", src, e.Size())
	}
	return e.world.mailboxes[e.rank].Take(ctx, src, tag)
}

func (e *endpoint) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.world.mailboxes[e.rank].Close(transport.ErrClosed)
	}
	return nil
}
