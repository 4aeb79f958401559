package sliceio

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/dataset"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/collective"
	"github.com/ValentinKolb/dReshard/lib/topology"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("sliceio")

var (
	readRows    = metrics.GetOrCreateCounter(`dreshard_sliceio_rows_total{op="read"}`)
	writtenRows = metrics.GetOrCreateCounter(`dreshard_sliceio_rows_total{op="write"}`)
)

// --------------------------------------------------------------------------
// Slices
// --------------------------------------------------------------------------

// LocalSlice returns the rows [offset, offset+length) of a field with
// totalRows rows owned by rank of size ranks. It is the same split Distribute
// uses, so both read strategies leave identical rows on every rank.
func LocalSlice(totalRows uint64, rank, size int) (offset, length uint64) {
	return topology.BlockRange(totalRows, size, rank)
}

// ScanOffset returns the sum of length over all ranks of the island below
// the caller (exclusive scan). The result of rank 0 is always 0.
// ScanOffset is collective over island.
func ScanOffset(ctx context.Context, island *comm.Comm, length uint64) (uint64, error) {
	offset, err := island.Exscan(ctx, length)
	if err != nil {
		return 0, err
	}
	if island.Rank() == 0 {
		offset = 0
	}
	return offset, nil
}

// --------------------------------------------------------------------------
// Parallel read
// --------------------------------------------------------------------------

// Read reads the local slice of the dataset at path into ch on every rank
// of the island. Every rank opens the same source and reads its own rows
// with all trailing dimensions in full. Read is collective over island: a
// rank that fails locally still takes part in every call and all ranks
// return an error.
func Read(ctx context.Context, island *comm.Comm, r store.IReader, path string, ch *dataset.Chunk) error {
	dims, kind, err := r.Extent(path)
	if err == nil && kind != ch.Kind && ch.Kind.Numeric() {
		err = store.Errorf(store.RetCWrongType, "dataset %s holds %s values, expected %s", path, kind, ch.Kind)
	}

	var want, length uint64
	if err == nil {
		want, length = LocalSlice(dims[0], island.Rank(), island.Size())
	}

	offset, sErr := ScanOffset(ctx, island, length)
	if sErr != nil {
		return fmt.Errorf("read %s: %w", path, sErr)
	}
	if err == nil && offset != want {
		err = fmt.Errorf("read %s: scan offset %d differs from slice offset %d", path, offset, want)
	}

	var data []byte
	if err == nil {
		data, err = r.ReadRows(path, offset, length)
	}
	if err := collective.Agree(ctx, island, "read "+path, err); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ch.Kind = kind
	ch.Shape = dataset.FullShape(dims...)
	ch.SetLocal(length, data)
	if err := ch.Validate(); err != nil {
		return err
	}

	readRows.Add(int(length))
	Logger.Debugf("rank %d/%d: read %s rows [%d, %d)", island.Rank(), island.Size(), path, offset, offset+length)
	return nil
}

// --------------------------------------------------------------------------
// Parallel write
// --------------------------------------------------------------------------

// Write writes the local rows of ch on every rank of the island into a new
// dataset at path. The total row count is the sum of the local row counts
// and is agreed before the dataset is created; each rank then writes its rows
// in place at its scan offset, so no rank handles more than its own share.
// Write is collective over island.
func Write(ctx context.Context, island *comm.Comm, w *collective.Writer, path string, ch *dataset.Chunk) error {
	var rows, failed uint64
	vErr := ch.Validate()
	if vErr != nil {
		failed = 1
	} else {
		rows = ch.Shape.Rows()
	}

	sums, err := comm.Allreduce(ctx, island, []uint64{rows, failed}, comm.OpSum)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if vErr != nil {
		return vErr
	}
	if sums[1] > 0 {
		return fmt.Errorf("write %s: invalid field on %d other ranks", path, sums[1])
	}
	total := sums[0]

	dims := append([]uint64{total}, ch.Shape.Trailing()...)
	if err := w.CreateDataset(ctx, path, dims, ch.Kind); err != nil {
		return err
	}

	offset, err := ScanOffset(ctx, island, rows)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := w.WriteRows(ctx, path, ch.Kind, ch.RowBytes(), offset, rows, ch.Data); err != nil {
		return err
	}

	writtenRows.Add(int(rows))
	Logger.Debugf("rank %d/%d: wrote %s rows [%d, %d) of %d", island.Rank(), island.Size(), path, offset, offset+rows, total)
	return nil
}
