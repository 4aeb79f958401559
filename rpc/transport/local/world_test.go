package local

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"sync"
	"testing"
)

func TestAllToAll(t *testing.T) {
	const size = 4
	world := NewWorld(size)
	ctx := context.Background()
	tag := transport.Tag{Context: 1, Seq: 1}

	var wg sync.WaitGroup
	for _, ep := range world {
		wg.Add(1)
		go func(ep transport.IPeerTransport) {
			defer wg.Done()
			for dst := 0; dst < size; dst++ {
				msg := []byte(fmt.Sprintf("%d->%d", ep.Rank(), dst))
				if err := ep.Send(ctx, dst, tag, msg); err != nil {
					t.Errorf("Send failed: %v", err)
				}
			}
			for src := 0; src < size; src++ {
				data, err := ep.Recv(ctx, src, tag)
				if err != nil {
					t.Errorf("Recv failed: %v", err)
					continue
				}
				if want := fmt.Sprintf("%d->%d", src, ep.Rank()); string(data) != want {
					t.Errorf("Rank %d got %q from %d, want %q", ep.Rank(), data, src, want)
				}
			}
		}(ep)
	}
	wg.Wait()
}

func TestSendOutOfRange(t *testing.T) {
	world := NewWorld(2)
	if err := world[0].Send(context.Background(), 2, transport.Tag{}, nil); err == nil {
		t.Error("Expected error for destination out of range")
	}
}

func TestClose(t *testing.T) {
	world := NewWorld(2)
	_ = world[1].Close()

	_, err := world[1].Recv(context.Background(), 0, transport.Tag{Seq: 1})
	if !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := world[1].Send(context.Background(), 0, transport.Tag{Seq: 1}, nil); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed on send, got %v", err)
	}
}
