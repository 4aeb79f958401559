package transfer

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/dataset"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/topology"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transfer")

var (
	distributedBytes = metrics.GetOrCreateCounter(`dreshard_transfer_bytes_total{op="distribute"}`)
	gatheredBytes    = metrics.GetOrCreateCounter(`dreshard_transfer_bytes_total{op="gather"}`)
)

// --------------------------------------------------------------------------
// Distribute
// --------------------------------------------------------------------------

// Distribute spreads a field held completely by the island root over all
// ranks of the island. The chunk argument of other ranks only names the
// field; its shape and data are replaced. Afterwards rank k holds rows
// [BlockRange(R, S, k)] of the field. Distribute is collective over island.
func Distribute(ctx context.Context, island *comm.Comm, ch *dataset.Chunk) error {
	if island.Size() == 1 {
		return ch.Validate()
	}

	// Header: kind, then the total dimensions. An invalid root chunk is
	// announced with kind Invalid so that every rank fails together.
	var header []uint64
	var rootErr error
	if island.IsRoot() {
		rootErr = ch.Validate()
		if rootErr == nil && ch.Shape.Rows() != ch.Shape.TotalRows() {
			rootErr = fmt.Errorf("field %s: root holds %s, not the complete field", ch.Name, ch.Shape)
		}
		if rootErr != nil {
			header = []uint64{uint64(dtype.Invalid)}
		} else {
			header = append([]uint64{uint64(ch.Kind)}, ch.Shape.Total...)
		}
	}

	header, err := island.BcastInts(ctx, 0, header)
	if err != nil {
		return fmt.Errorf("field %s: %w", ch.Name, err)
	}
	if rootErr != nil {
		return rootErr
	}

	kind := dtype.Kind(header[0])
	if !kind.Numeric() || len(header) < 2 || len(header) > 3 {
		return fmt.Errorf("field %s: island root has no valid data to distribute", ch.Name)
	}
	dims := header[1:]

	// Non-root ranks adopt the root's description of the field
	ch.Kind = kind
	ch.Shape = dataset.FullShape(dims...)
	cols := ch.Shape.Cols()

	plan := NewPlan(dims[0], cols, island.Size())
	counts, displs := plan.Bytes(kind.Size())

	var send []byte
	if island.IsRoot() {
		send = ch.Data
	}

	part, err := island.Scatterv(ctx, 0, uint8(kind), send, counts, displs)
	if err != nil {
		return fmt.Errorf("field %s: %w", ch.Name, err)
	}

	_, rows := topology.BlockRange(dims[0], island.Size(), island.Rank())
	ch.SetLocal(rows, part)
	if err := ch.Validate(); err != nil {
		return err
	}

	if island.IsRoot() {
		distributedBytes.Add(len(send) - len(part))
	}
	Logger.Debugf("rank %d/%d: distributed %s", island.Rank(), island.Size(), ch)
	return nil
}

// --------------------------------------------------------------------------
// Gather
// --------------------------------------------------------------------------

// Gather collects the rows of a field on the island root in ascending rank
// order. Root ends up holding the complete field, all other ranks are left
// with zero rows and no buffer. Gather is collective over island: a rank with
// an invalid chunk still reports to root and every rank returns an error.
func Gather(ctx context.Context, island *comm.Comm, ch *dataset.Chunk) error {
	vErr := ch.Validate()
	if island.Size() == 1 {
		return vErr
	}

	// row count and failure flag of every rank
	report := []uint64{0, 1}
	if vErr == nil {
		report = []uint64{ch.Shape.Rows(), 0}
	}
	rows, err := island.GatherInts(ctx, 0, report)
	if err != nil {
		return fmt.Errorf("field %s: %w", ch.Name, err)
	}

	var counts, displs []int
	var total uint64
	var planErr error
	if island.IsRoot() {
		perRank := make([]uint64, len(rows))
		for r, v := range rows {
			if len(v) != 2 {
				planErr = fmt.Errorf("field %s: %w: rank %d reported %d values", ch.Name, comm.ErrProtocol, r, len(v))
				break
			}
			if v[1] != 0 {
				planErr = fmt.Errorf("field %s: invalid chunk on rank %d", ch.Name, r)
				break
			}
			perRank[r] = v[0]
		}
		if planErr == nil {
			plan := PlanFromRows(perRank, ch.Shape.Cols())
			counts, displs = plan.Bytes(ch.ElemSize())
			total = plan.Total()
		}
	}
	if err := island.BcastStatus(ctx, 0, planErr); err != nil {
		if vErr != nil {
			return vErr
		}
		return err
	}

	full, err := island.Gatherv(ctx, 0, uint8(ch.Kind), ch.Data, int(total)*ch.ElemSize(), counts, displs)
	if err != nil {
		return fmt.Errorf("field %s: %w", ch.Name, err)
	}

	if !island.IsRoot() {
		ch.Clear()
		return nil
	}

	gatheredBytes.Add(len(full) - len(ch.Data))

	dims := append([]uint64{total / max(ch.Shape.Cols(), 1)}, ch.Shape.Trailing()...)
	if dims[0] != ch.Shape.TotalRows() {
		return fmt.Errorf("field %s: gathered %d rows, expected %d", ch.Name, dims[0], ch.Shape.TotalRows())
	}
	ch.SetFull(dims, full)

	Logger.Debugf("rank %d/%d: gathered %s", island.Rank(), island.Size(), ch)
	return ch.Validate()
}
