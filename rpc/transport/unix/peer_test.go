package unix

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newWorld(t *testing.T, size int) []transport.IPeerTransport {
	t.Helper()

	dir := t.TempDir()
	endpoints := make([]string, size)
	for i := range endpoints {
		endpoints[i] = filepath.Join(dir, fmt.Sprintf("rank%d.sock", i))
	}

	world := make([]transport.IPeerTransport, size)
	for i := range world {
		tr, err := NewPeerTransport(common.WorldConfig{
			Transport:  common.TransportUnix,
			Rank:       i,
			Endpoints:  endpoints,
			RetryCount: 10,
		})
		if err != nil {
			t.Fatalf("Failed to create transport for rank %d: %v", i, err)
		}
		world[i] = tr
	}
	t.Cleanup(func() {
		for _, tr := range world {
			_ = tr.Close()
		}
	})
	return world
}

func TestExchange(t *testing.T) {
	const size = 3
	world := newWorld(t, size)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Large enough to exceed the default read buffer
	payload := bytes.Repeat([]byte{0xAB}, 100*1024)

	var wg sync.WaitGroup
	for _, ep := range world {
		wg.Add(1)
		go func(ep transport.IPeerTransport) {
			defer wg.Done()
			for seq := uint64(1); seq <= 3; seq++ {
				tag := transport.Tag{Context: 9, Seq: seq}
				for dst := 0; dst < size; dst++ {
					data := append([]byte{byte(ep.Rank()), byte(seq)}, payload...)
					if err := ep.Send(ctx, dst, tag, data); err != nil {
						t.Errorf("Rank %d send to %d failed: %v", ep.Rank(), dst, err)
						return
					}
				}
				for src := 0; src < size; src++ {
					data, err := ep.Recv(ctx, src, tag)
					if err != nil {
						t.Errorf("Rank %d recv from %d failed: %v", ep.Rank(), src, err)
						return
					}
					if len(data) != len(payload)+2 || data[0] != byte(src) || data[1] != byte(seq) {
						t.Errorf("Rank %d got wrong frame from %d at seq %d", ep.Rank(), src, seq)
					}
				}
			}
		}(ep)
	}
	wg.Wait()
}

func TestEmptyPayload(t *testing.T) {
	world := newWorld(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag := transport.Tag{Context: 1, Seq: 1}
	if err := world[0].Send(ctx, 1, tag, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	data, err := world[1].Recv(ctx, 0, tag)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty payload, got %d bytes", len(data))
	}
}
