package transport

import (
	"context"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
)

var Logger = logger.GetLogger("transport")

// mailKey identifies exactly one message
type mailKey struct {
	ctx uint64
	seq uint64
	src int
}

// Mailbox matches incoming messages with waiting receivers. Messages may
// arrive before or after the receiver asks for them.
type Mailbox struct {
	slots     *xsync.MapOf[mailKey, chan []byte]
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{
		slots:  xsync.NewMapOf[mailKey, chan []byte](),
		closed: make(chan struct{}),
	}
}

// slot returns the channel for a key, creating it on first use
func (m *Mailbox) slot(k mailKey) chan []byte {
	ch, _ := m.slots.LoadOrCompute(k, func() chan []byte {
		return make(chan []byte, 1)
	})
	return ch
}

// Deliver stores a message. Every (src, tag) pair is delivered at most once;
// a duplicate means a peer diverged and is dropped with an error log.
func (m *Mailbox) Deliver(src int, tag Tag, data []byte) {
	k := mailKey{ctx: tag.Context, seq: tag.Seq, src: src}
	select {
	case m.slot(k) <- data:
	default:
		Logger.Errorf("dropping duplicate message from rank %d (context %x, seq %d)", src, tag.Context, tag.Seq)
	}
}

// Take waits for the message with the given source and tag
func (m *Mailbox) Take(ctx context.Context, src int, tag Tag) ([]byte, error) {
	k := mailKey{ctx: tag.Context, seq: tag.Seq, src: src}
	ch := m.slot(k)

	select {
	case data := <-ch:
		m.slots.Delete(k)
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for rank %d (seq %d): %w", src, tag.Seq, ctx.Err())
	case <-m.closed:
		return nil, m.closeErr
	}
}

// Close wakes every waiting receiver with err. Only the first call has an effect.
func (m *Mailbox) Close(err error) {
	m.closeOnce.Do(func() {
		if err == nil {
			err = ErrClosed
		}
		m.closeErr = err
		close(m.closed)
	})
}

// Pending returns the number of undelivered or unclaimed slots
func (m *Mailbox) Pending() int {
	return m.slots.Size()
}
