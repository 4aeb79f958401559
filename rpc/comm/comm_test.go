package comm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/serializer"
	"github.com/ValentinKolb/dReshard/rpc/transport/local"
	"sync"
	"testing"
	"time"
)

// worldSizes are used by tests that should hold for any number of ranks
var worldSizes = []int{1, 2, 3, 5, 8}

func run(t *testing.T, n int, fn RankFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RunLocal(ctx, n, fn); err != nil {
		t.Fatalf("world of %d failed: %v", n, err)
	}
}

func TestBarrier(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var mu sync.Mutex
			entered := 0
			run(t, n, func(ctx context.Context, c *Comm) error {
				mu.Lock()
				entered++
				mu.Unlock()

				if err := c.Barrier(ctx); err != nil {
					return err
				}

				mu.Lock()
				defer mu.Unlock()
				if entered != n {
					return fmt.Errorf("left barrier with %d of %d ranks entered", entered, n)
				}
				return nil
			})
		})
	}
}

func TestBcast(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			run(t, n, func(ctx context.Context, c *Comm) error {
				root := c.Size() - 1

				var data []byte
				var ints []uint64
				if c.Rank() == root {
					data = []byte("header")
					ints = []uint64{3, 1 << 50, 0}
				}

				gotData, err := c.BcastBytes(ctx, root, data)
				if err != nil {
					return err
				}
				if string(gotData) != "header" {
					return fmt.Errorf("rank %d got %q", c.Rank(), gotData)
				}

				gotInts, err := c.BcastInts(ctx, root, ints)
				if err != nil {
					return err
				}
				if len(gotInts) != 3 || gotInts[1] != 1<<50 || gotInts[2] != 0 {
					return fmt.Errorf("rank %d got %v", c.Rank(), gotInts)
				}

				empty, err := c.BcastBytes(ctx, 0, nil)
				if err != nil {
					return err
				}
				if empty == nil || len(empty) != 0 {
					return fmt.Errorf("rank %d expected empty non-nil slice, got %v", c.Rank(), empty)
				}
				return nil
			})
		})
	}
}

func TestBcastStatus(t *testing.T) {
	run(t, 3, func(ctx context.Context, c *Comm) error {
		if err := c.BcastStatus(ctx, 0, nil); err != nil {
			return fmt.Errorf("expected success, got %v", err)
		}

		var rootErr error
		if c.IsRoot() {
			rootErr = errors.New("disk full")
		}
		err := c.BcastStatus(ctx, 0, rootErr)
		if err == nil {
			return fmt.Errorf("rank %d: expected error", c.Rank())
		}
		if !c.IsRoot() && !errors.Is(err, ErrRemote) {
			return fmt.Errorf("rank %d: expected ErrRemote, got %v", c.Rank(), err)
		}
		return nil
	})
}

func TestScattervGatherv(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			// Rank i owns i+1 bytes, rank 0 owns none on odd sizes
			counts := make([]int, n)
			displs := make([]int, n)
			total := 0
			for i := range counts {
				counts[i] = i + 1
				if n%2 == 1 && i == 0 {
					counts[i] = 0
				}
				displs[i] = total
				total += counts[i]
			}
			full := make([]byte, total)
			for i := range full {
				full[i] = byte(i * 7)
			}

			run(t, n, func(ctx context.Context, c *Comm) error {
				var send []byte
				if c.IsRoot() {
					send = full
				}
				part, err := c.Scatterv(ctx, 0, 3, send, counts, displs)
				if err != nil {
					return err
				}
				want := full[displs[c.Rank()] : displs[c.Rank()]+counts[c.Rank()]]
				if !bytes.Equal(part, want) {
					return fmt.Errorf("rank %d got %v, want %v", c.Rank(), part, want)
				}

				back, err := c.Gatherv(ctx, 0, 3, part, total, counts, displs)
				if err != nil {
					return err
				}
				if c.IsRoot() && !bytes.Equal(back, full) {
					return fmt.Errorf("gathered %v, want %v", back, full)
				}
				if !c.IsRoot() && back != nil {
					return fmt.Errorf("rank %d got a gather result", c.Rank())
				}
				return nil
			})
		})
	}
}

func TestGathervCountMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := RunLocal(ctx, 2, func(ctx context.Context, c *Comm) error {
		send := []byte{1, 2, 3}
		_, err := c.Gatherv(ctx, 0, 1, send[:c.Rank()+1], 4, []int{1, 3}, []int{0, 1})
		return err
	})
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}
}

func TestKindMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := RunLocal(ctx, 2, func(ctx context.Context, c *Comm) error {
		_, err := c.Gatherv(ctx, 0, uint8(c.Rank()+1), []byte{1}, 2, []int{1, 1}, []int{0, 1})
		return err
	})
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}
}

func TestDivergedCollective(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := RunLocal(ctx, 2, func(ctx context.Context, c *Comm) error {
		if c.IsRoot() {
			_, err := c.BcastInts(ctx, 0, []uint64{1})
			return err
		}
		return c.Barrier(ctx)
	})
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}
}

func TestFailureCancelsPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	boom := errors.New("boom")
	err := RunLocal(ctx, 4, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 2 {
			return boom
		}
		return c.Barrier(ctx)
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestExscan(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			run(t, n, func(ctx context.Context, c *Comm) error {
				// rank r contributes r+1; prefix of rank r is r*(r+1)/2
				got, err := c.Exscan(ctx, uint64(c.Rank()+1))
				if err != nil {
					return err
				}
				r := uint64(c.Rank())
				if want := r * (r + 1) / 2; got != want {
					return fmt.Errorf("rank %d: exscan %d, want %d", r, got, want)
				}
				return nil
			})
		})
	}
}

func TestAllreduce(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			run(t, n, func(ctx context.Context, c *Comm) error {
				r := c.Rank()

				sum, err := Allreduce(ctx, c, []uint64{uint64(r), 1}, OpSum)
				if err != nil {
					return err
				}
				if sum[0] != uint64(n*(n-1)/2) || sum[1] != uint64(n) {
					return fmt.Errorf("sum = %v", sum)
				}

				mx, err := AllreduceOne(ctx, c, -float64(r)-0.5, OpMax)
				if err != nil {
					return err
				}
				if mx != -0.5 {
					return fmt.Errorf("max = %v", mx)
				}

				mn, err := AllreduceOne(ctx, c, int64(r)-3, OpMin)
				if err != nil {
					return err
				}
				if mn != -3 {
					return fmt.Errorf("min = %v", mn)
				}
				return nil
			})
		})
	}
}

func TestSplit(t *testing.T) {
	run(t, 7, func(ctx context.Context, c *Comm) error {
		// Two groups by parity, reversed order inside each group, rank 6 opts out
		color := c.Rank() % 2
		if c.Rank() == 6 {
			color = Undefined
		}
		sub, err := c.Split(ctx, color, -c.Rank())
		if err != nil {
			return err
		}

		if color == Undefined {
			if sub != nil {
				return fmt.Errorf("rank 6 got a communicator")
			}
			return c.Barrier(ctx)
		}

		wantSize := 3
		if sub.Size() != wantSize {
			return fmt.Errorf("rank %d: sub size %d, want %d", c.Rank(), sub.Size(), wantSize)
		}
		// even: 4,2,0  odd: 5,3,1
		wantRank := (wantSize - 1) - c.Rank()/2
		if sub.Rank() != wantRank {
			return fmt.Errorf("rank %d: sub rank %d, want %d", c.Rank(), sub.Rank(), wantRank)
		}

		// Collectives in both sub-communicators must not interfere
		sum, err := AllreduceOne(ctx, sub, uint64(c.Rank()), OpSum)
		if err != nil {
			return err
		}
		if want := map[int]uint64{0: 6, 1: 9}[color]; sum != want {
			return fmt.Errorf("rank %d: group sum %d, want %d", c.Rank(), sum, want)
		}

		return c.Barrier(ctx)
	})
}

func TestSerializers(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob"} {
		t.Run(name, func(t *testing.T) {
			ser, err := serializer.ByName(name)
			if err != nil {
				t.Fatal(err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err = RunLocalWith(ctx, 3, ser, func(ctx context.Context, c *Comm) error {
				counts, displs := []int{2, 2, 2}, []int{0, 2, 4}
				var send []byte
				if c.IsRoot() {
					send = []byte{0, 0, 1, 1, 2, 2}
				}
				part, err := c.Scatterv(ctx, 0, 1, send, counts, displs)
				if err != nil {
					return err
				}
				if part[0] != byte(c.Rank()) {
					return fmt.Errorf("rank %d got %v", c.Rank(), part)
				}
				_, err = c.Exscan(ctx, 0)
				return err
			})
			if err != nil {
				t.Error(err)
			}
		})
	}
}

func TestJoinRejectsLocal(t *testing.T) {
	_, _, err := Join(common.WorldConfig{Transport: common.TransportLocal, Workers: 2})
	if err == nil {
		t.Error("Expected error when joining a local world")
	}
}

func TestNewWorld(t *testing.T) {
	eps := local.NewWorld(3)
	c := NewWorld(eps[1], serializer.NewBinarySerializer())
	if c.Rank() != 1 || c.Size() != 3 || c.IsRoot() || c.GlobalRank(2) != 2 {
		t.Errorf("unexpected communicator %s", c)
	}
}
