package comm

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
)

// --------------------------------------------------------------------------
// Synchronization
// --------------------------------------------------------------------------

// Barrier returns once every rank of the communicator has entered it
func (c *Comm) Barrier(ctx context.Context) error {
	seq := c.nextSeq()

	if c.rank != 0 {
		if err := c.send(ctx, 0, seq, common.NewControlMessage(common.MsgTBarrier)); err != nil {
			return err
		}
		_, err := c.recv(ctx, 0, seq, common.MsgTBarrier)
		return err
	}

	for src := 1; src < c.Size(); src++ {
		if _, err := c.recv(ctx, src, seq, common.MsgTBarrier); err != nil {
			return err
		}
	}
	for dst := 1; dst < c.Size(); dst++ {
		if err := c.send(ctx, dst, seq, common.NewControlMessage(common.MsgTBarrier)); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Broadcast
// --------------------------------------------------------------------------

// bcast sends msg from root to every rank and returns the message each rank sees
func (c *Comm) bcast(ctx context.Context, root int, msg *common.Message) (*common.Message, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.nextSeq()

	if c.rank != root {
		return c.recv(ctx, root, seq, msg.MsgType)
	}
	for dst := 0; dst < c.Size(); dst++ {
		if dst == root {
			continue
		}
		if err := c.send(ctx, dst, seq, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// BcastBytes broadcasts data from root. The argument is ignored on other ranks.
func (c *Comm) BcastBytes(ctx context.Context, root int, data []byte) ([]byte, error) {
	msg := &common.Message{MsgType: common.MsgTBcast, Count: uint64(len(data)), Value: data}
	if c.rank != root {
		msg = &common.Message{MsgType: common.MsgTBcast}
	}
	res, err := c.bcast(ctx, root, msg)
	if err != nil {
		return nil, err
	}
	if uint64(len(res.Value)) != res.Count {
		return nil, fmt.Errorf("%w: broadcast announced %d bytes, carried %d", ErrProtocol, res.Count, len(res.Value))
	}
	if res.Value == nil {
		return []byte{}, nil
	}
	return res.Value, nil
}

// BcastInts broadcasts a small integer vector from root
func (c *Comm) BcastInts(ctx context.Context, root int, ints []uint64) ([]uint64, error) {
	msg := common.NewControlMessage(common.MsgTBcast, ints...)
	msg.Count = uint64(len(ints))
	if c.rank != root {
		msg = common.NewControlMessage(common.MsgTBcast)
	}
	res, err := c.bcast(ctx, root, msg)
	if err != nil {
		return nil, err
	}
	if uint64(len(res.Ints)) != res.Count {
		return nil, fmt.Errorf("%w: broadcast announced %d ints, carried %d", ErrProtocol, res.Count, len(res.Ints))
	}
	if res.Ints == nil {
		return []uint64{}, nil
	}
	return res.Ints, nil
}

// BcastStatus broadcasts the outcome of an operation that only root performed.
// Every rank returns an error iff err was non-nil on root.
func (c *Comm) BcastStatus(ctx context.Context, root int, err error) error {
	res, bErr := c.bcast(ctx, root, common.NewStatusMessage(err))
	if bErr != nil {
		return bErr
	}
	if c.rank == root {
		return err
	}
	if res.Err != "" {
		return fmt.Errorf("%w: rank %d: %s", ErrRemote, root, res.Err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Scatter / Gather
// --------------------------------------------------------------------------

// checkLayout validates counts and displacements of a vector collective
func (c *Comm) checkLayout(bufLen int, counts, displs []int) error {
	if len(counts) != c.Size() || len(displs) != c.Size() {
		return fmt.Errorf("need %d counts and displacements, got %d and %d", c.Size(), len(counts), len(displs))
	}
	for i := range counts {
		if counts[i] < 0 || displs[i] < 0 || displs[i]+counts[i] > bufLen {
			return fmt.Errorf("segment %d [%d, +%d) exceeds buffer of %d bytes", i, displs[i], counts[i], bufLen)
		}
	}
	return nil
}

// Scatterv sends send[displs[i]:displs[i]+counts[i]] from root to rank i and
// returns the segment of the caller. send, counts and displs are only read on
// root. kind tags the payload so receivers can detect diverging callers.
func (c *Comm) Scatterv(ctx context.Context, root int, kind uint8, send []byte, counts, displs []int) ([]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.nextSeq()

	if c.rank != root {
		msg, err := c.recv(ctx, root, seq, common.MsgTScatterv)
		if err != nil {
			return nil, err
		}
		if msg.Kind != kind {
			return nil, fmt.Errorf("%w: scatter of kind %d, expected %d", ErrProtocol, msg.Kind, kind)
		}
		if uint64(len(msg.Value)) != msg.Count {
			return nil, fmt.Errorf("%w: scatter announced %d bytes, carried %d", ErrProtocol, msg.Count, len(msg.Value))
		}
		if msg.Value == nil {
			return []byte{}, nil
		}
		return msg.Value, nil
	}

	if err := c.checkLayout(len(send), counts, displs); err != nil {
		return nil, err
	}

	for dst := 0; dst < c.Size(); dst++ {
		if dst == root {
			continue
		}
		segment := send[displs[dst] : displs[dst]+counts[dst]]
		if err := c.send(ctx, dst, seq, common.NewDataMessage(common.MsgTScatterv, kind, uint64(len(segment)), segment)); err != nil {
			return nil, err
		}
	}

	own := make([]byte, counts[root])
	copy(own, send[displs[root]:displs[root]+counts[root]])
	return own, nil
}

// Gatherv collects the send buffer of every rank at root, placing the
// contribution of rank i at displs[i]. counts and displs are only read on
// root and every contribution must match its count exactly. Root returns a
// buffer of recvLen bytes, other ranks return nil.
func (c *Comm) Gatherv(ctx context.Context, root int, kind uint8, send []byte, recvLen int, counts, displs []int) ([]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.nextSeq()

	if c.rank != root {
		return nil, c.send(ctx, root, seq, common.NewDataMessage(common.MsgTGatherv, kind, uint64(len(send)), send))
	}

	if err := c.checkLayout(recvLen, counts, displs); err != nil {
		return nil, err
	}
	if len(send) != counts[root] {
		return nil, fmt.Errorf("root contributes %d bytes, expected %d", len(send), counts[root])
	}

	recv := make([]byte, recvLen)
	copy(recv[displs[root]:], send)

	for src := 0; src < c.Size(); src++ {
		if src == root {
			continue
		}
		msg, err := c.recv(ctx, src, seq, common.MsgTGatherv)
		if err != nil {
			return nil, err
		}
		if msg.Kind != kind {
			return nil, fmt.Errorf("%w: rank %d gathers kind %d, expected %d", ErrProtocol, src, msg.Kind, kind)
		}
		if len(msg.Value) != counts[src] {
			return nil, fmt.Errorf("%w: rank %d contributed %d bytes, expected %d", ErrProtocol, src, len(msg.Value), counts[src])
		}
		copy(recv[displs[src]:], msg.Value)
	}
	return recv, nil
}

// GatherInts collects a small integer vector of every rank at root.
// Root returns one vector per rank, other ranks return nil.
func (c *Comm) GatherInts(ctx context.Context, root int, ints []uint64) ([][]uint64, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.nextSeq()

	if c.rank != root {
		msg := common.NewControlMessage(common.MsgTGather, ints...)
		msg.Count = uint64(len(ints))
		return nil, c.send(ctx, root, seq, msg)
	}

	res := make([][]uint64, c.Size())
	res[root] = append([]uint64{}, ints...)
	for src := 0; src < c.Size(); src++ {
		if src == root {
			continue
		}
		msg, err := c.recv(ctx, src, seq, common.MsgTGather)
		if err != nil {
			return nil, err
		}
		if uint64(len(msg.Ints)) != msg.Count {
			return nil, fmt.Errorf("%w: rank %d announced %d ints, carried %d", ErrProtocol, src, msg.Count, len(msg.Ints))
		}
		res[src] = msg.Ints
		if res[src] == nil {
			res[src] = []uint64{}
		}
	}
	return res, nil
}

// AllgatherInts collects a small integer vector of every rank on every rank
func (c *Comm) AllgatherInts(ctx context.Context, ints []uint64) ([][]uint64, error) {
	n := len(ints)
	parts, err := c.GatherInts(ctx, 0, ints)
	if err != nil {
		return nil, err
	}

	var flat []uint64
	if c.rank == 0 {
		flat = make([]uint64, 0, n*c.Size())
		for src, p := range parts {
			if len(p) != n {
				return nil, fmt.Errorf("%w: rank %d gathered %d ints, expected %d", ErrProtocol, src, len(p), n)
			}
			flat = append(flat, p...)
		}
	}

	flat, err = c.BcastInts(ctx, 0, flat)
	if err != nil {
		return nil, err
	}
	if len(flat) != n*c.Size() {
		return nil, fmt.Errorf("%w: allgather of %d ints, expected %d", ErrProtocol, len(flat), n*c.Size())
	}

	res := make([][]uint64, c.Size())
	for i := range res {
		res[i] = flat[i*n : (i+1)*n]
	}
	return res, nil
}

// --------------------------------------------------------------------------
// Scan
// --------------------------------------------------------------------------

// Exscan returns the sum of v over all ranks below the caller. The values are
// passed along the rank order, so rank i waits for rank i-1. Rank 0 gets 0.
func (c *Comm) Exscan(ctx context.Context, v uint64) (uint64, error) {
	seq := c.nextSeq()

	var prefix uint64
	if c.rank > 0 {
		msg, err := c.recv(ctx, c.rank-1, seq, common.MsgTExscan)
		if err != nil {
			return 0, err
		}
		if len(msg.Ints) != 1 {
			return 0, fmt.Errorf("%w: scan carries %d values", ErrProtocol, len(msg.Ints))
		}
		prefix = msg.Ints[0]
	}

	if c.rank+1 < c.Size() {
		if err := c.send(ctx, c.rank+1, seq, common.NewControlMessage(common.MsgTExscan, prefix+v)); err != nil {
			return 0, err
		}
	}
	return prefix, nil
}
