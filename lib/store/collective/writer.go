package collective

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("collective")

// Writer drives one destination file from all ranks of an island. Every
// method is a collective call. Structure changes run on the island root
// only, which then broadcasts the outcome so that all ranks return the same
// error and stay aligned in their call sequence. Row writes are done by
// every rank into its own range of the file.
type Writer struct {
	island *comm.Comm
	w      store.IWriter     // nil on non-root ranks
	slabs  store.ISlabWriter // nil on root
	path   string
}

// Create opens the destination on the island root with open and agrees on
// the result. Once the file exists, the other ranks attach to it with
// openSlabs for their row writes. open is only called on root; openSlabs
// may be nil when only root writes values.
func Create(ctx context.Context, island *comm.Comm, path string, open func() (store.IWriter, error), openSlabs func() (store.ISlabWriter, error)) (*Writer, error) {
	cw := &Writer{island: island, path: path}

	var err error
	if island.IsRoot() {
		cw.w, err = open()
	}
	if err := island.BcastStatus(ctx, 0, err); err != nil {
		cw.Abort()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	var sErr error
	if !island.IsRoot() && openSlabs != nil {
		cw.slabs, sErr = openSlabs()
	}
	if err := Agree(ctx, island, "attach to "+path, sErr); err != nil {
		cw.Abort()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return cw, nil
}

// Root returns the underlying writer on the island root and nil elsewhere
func (cw *Writer) Root() store.IWriter {
	return cw.w
}

// Path returns the path of the destination file
func (cw *Writer) Path() string {
	return cw.path
}

// Do executes fn with the underlying writer on root only and agrees on the
// result. It is the building block of the structure methods.
func (cw *Writer) Do(ctx context.Context, fn func(w store.IWriter) error) error {
	var err error
	if cw.island.IsRoot() {
		err = fn(cw.w)
	}
	return cw.island.BcastStatus(ctx, 0, err)
}

// CreateGroup creates a group collectively
func (cw *Writer) CreateGroup(ctx context.Context, path string) error {
	return cw.Do(ctx, func(w store.IWriter) error {
		return w.CreateGroup(path)
	})
}

// CreateDataset creates a dataset collectively. The arguments of root are used.
func (cw *Writer) CreateDataset(ctx context.Context, path string, dims []uint64, kind dtype.Kind) error {
	return cw.Do(ctx, func(w store.IWriter) error {
		return w.CreateDataset(path, dims, kind)
	})
}

// SetAttr sets an attribute collectively. The value of root is used.
func (cw *Writer) SetAttr(ctx context.Context, path string, a store.Attr) error {
	return cw.Do(ctx, func(w store.IWriter) error {
		return w.SetAttr(path, a)
	})
}

// --------------------------------------------------------------------------
// Row writes
// --------------------------------------------------------------------------

// WriteRows writes the local rows of every rank into a dataset created
// before. Rank i writes n_i rows of rowBytes bytes starting at row off_i
// straight into the value range of the dataset, root through its store and
// the other ranks through their slab writer; no rows are sent between ranks.
// Ranks may write zero rows. A rank that fails locally still takes part in
// every call, and all ranks return an error.
func (cw *Writer) WriteRows(ctx context.Context, path string, kind dtype.Kind, rowBytes int, off, n uint64, data []byte) error {
	var layout []uint64
	var lErr error
	if cw.island.IsRoot() {
		layout, lErr = cw.layout(path)
	}
	if err := cw.island.BcastStatus(ctx, 0, lErr); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	layout, err := cw.island.BcastInts(ctx, 0, layout)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	wErr := cw.writeLocal(path, layout, kind, rowBytes, off, n, data)
	if err := Agree(ctx, cw.island, "write "+path, wErr); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// layout returns value offset, rows, row bytes and kind of a dataset on root
func (cw *Writer) layout(path string) ([]uint64, error) {
	rw, ok := cw.w.(store.IRegionWriter)
	if !ok {
		return nil, store.Errorf(store.RetCUnsupportedOperation, "%s does not support in-place row writes", cw.path)
	}
	offset, dims, kind, err := rw.Region(path)
	if err != nil {
		return nil, err
	}
	rowBytes := uint64(kind.Size())
	for _, d := range dims[1:] {
		rowBytes *= d
	}
	return []uint64{offset, dims[0], rowBytes, uint64(kind)}, nil
}

// writeLocal checks the rows of this rank against the layout and writes them
func (cw *Writer) writeLocal(path string, layout []uint64, kind dtype.Kind, rowBytes int, off, n uint64, data []byte) error {
	if len(layout) != 4 {
		return fmt.Errorf("%w: layout of %s has %d values", comm.ErrProtocol, path, len(layout))
	}
	region, rows, rb := layout[0], layout[1], layout[2]

	switch {
	case dtype.Kind(layout[3]) != kind:
		return store.Errorf(store.RetCWrongType, "dataset %s holds %s values, got %s", path, dtype.Kind(layout[3]), kind)
	case uint64(rowBytes) != rb:
		return store.Errorf(store.RetCInvalidOperation, "dataset %s has rows of %d bytes, got %d", path, rb, rowBytes)
	case off > rows || n > rows-off:
		return store.Errorf(store.RetCInvalidOperation, "rows [%d, %d) out of range for dataset %s with %d rows", off, off+n, path, rows)
	case uint64(len(data)) != n*rb:
		return store.Errorf(store.RetCInvalidOperation, "dataset %s: %d bytes for %d rows of %d bytes", path, len(data), n, rb)
	case n == 0:
		return nil
	}

	if cw.island.IsRoot() {
		return cw.w.WriteRows(path, off, n, data)
	}
	if cw.slabs == nil {
		return store.Errorf(store.RetCUnsupportedOperation, "rank %d is not attached to %s", cw.island.Rank(), cw.path)
	}
	return cw.slabs.WriteSlab(region+off*rb, data)
}

// --------------------------------------------------------------------------
// Close
// --------------------------------------------------------------------------

// Close releases the slab writers, then persists and releases the
// destination on root. Close is collective.
func (cw *Writer) Close(ctx context.Context) error {
	var sErr error
	if cw.slabs != nil {
		sErr = cw.slabs.Close()
		cw.slabs = nil
	}
	if err := Agree(ctx, cw.island, "detach from "+cw.path, sErr); err != nil {
		cw.Abort()
		return fmt.Errorf("close %s: %w", cw.path, err)
	}

	err := cw.Do(ctx, func(w store.IWriter) error {
		return w.Close()
	})
	if err != nil {
		return fmt.Errorf("close %s: %w", cw.path, err)
	}
	Logger.Debugf("rank %d/%d: closed %s", cw.island.Rank(), cw.island.Size(), cw.path)
	return nil
}

// Abort releases the destination without agreement. It is used on error
// paths where the other ranks may no longer take part in collective calls.
func (cw *Writer) Abort() {
	if cw.slabs != nil {
		_ = cw.slabs.Close()
		cw.slabs = nil
	}
	if cw.w != nil {
		_ = cw.w.Close()
		cw.w = nil
	}
}
