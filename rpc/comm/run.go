package comm

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/serializer"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"github.com/ValentinKolb/dReshard/rpc/transport/local"
	"github.com/ValentinKolb/dReshard/rpc/transport/tcp"
	"github.com/ValentinKolb/dReshard/rpc/transport/unix"
	"golang.org/x/sync/errgroup"
)

// RankFunc is the body of one rank
type RankFunc func(ctx context.Context, c *Comm) error

// RunLocal runs fn on n ranks of an in-process world using the binary serializer
func RunLocal(ctx context.Context, n int, fn RankFunc) error {
	return RunLocalWith(ctx, n, serializer.NewBinarySerializer(), fn)
}

// RunLocalWith runs fn on n ranks of an in-process world. The first rank to
// fail cancels the context of all others, so ranks blocked in a collective
// return instead of waiting forever. The first error is returned.
func RunLocalWith(ctx context.Context, n int, ser serializer.IRPCSerializer, fn RankFunc) error {
	if n < 1 {
		return fmt.Errorf("world size must be at least 1 (got %d)", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range local.NewWorld(n) {
		g.Go(func() error {
			defer ep.Close()
			if err := fn(gctx, NewWorld(ep, ser)); err != nil {
				return fmt.Errorf("rank %d: %w", ep.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Join connects this process to the world described by config. It is used
// for the tcp and unix transports where every rank is its own process.
// The caller closes the returned transport.
func Join(config common.WorldConfig) (*Comm, transport.IPeerTransport, error) {
	ser, err := serializer.ByName(config.Serializer)
	if err != nil {
		return nil, nil, err
	}

	var tr transport.IPeerTransport
	switch config.Transport {
	case common.TransportTCP:
		tr, err = tcp.NewPeerTransport(config)
	case common.TransportUnix:
		tr, err = unix.NewPeerTransport(config)
	default:
		err = fmt.Errorf("transport %s cannot be joined, use RunLocal", config.Transport)
	}
	if err != nil {
		return nil, nil, err
	}

	return NewWorld(tr, ser), tr, nil
}
