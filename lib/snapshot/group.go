package snapshot

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/dataset"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/sliceio"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/collective"
	"github.com/ValentinKolb/dReshard/lib/transfer"
	"github.com/ValentinKolb/dReshard/rpc/comm"
)

// RecordGroup holds the attributes and fields of one block of a snapshot.
// The attribute and field lists come from the block definition, so they are
// the same on every rank. An absent block stays empty and takes part in no
// collective call.
type RecordGroup struct {
	Block   schema.Block
	Present bool

	// CreatesGroup is set on the first present block of a group path.
	// Writing that block creates the group.
	CreatesGroup bool

	Attrs  []store.Attr
	Fields []*dataset.Chunk
}

// NewRecordGroup creates an empty record group for b
func NewRecordGroup(b schema.Block, present, createsGroup bool) *RecordGroup {
	g := &RecordGroup{Block: b, Present: present, CreatesGroup: createsGroup}
	if !present {
		return g
	}
	g.Fields = make([]*dataset.Chunk, len(b.Fields))
	for i, f := range b.Fields {
		g.Fields[i] = dataset.New(f.Name, f.Kind, f.Scaled)
	}
	return g
}

// FieldPath returns the store path of field i
func (g *RecordGroup) FieldPath(i int) string {
	return store.Join(g.Block.Group, g.Fields[i].Name)
}

// Bytes returns the number of field bytes held by this rank
func (g *RecordGroup) Bytes() uint64 {
	var n uint64
	for _, ch := range g.Fields {
		n += uint64(len(ch.Data))
	}
	return n
}

// Clear releases the field buffers
func (g *RecordGroup) Clear() {
	for _, ch := range g.Fields {
		ch.Clear()
	}
}

func (g *RecordGroup) String() string {
	return fmt.Sprintf("%s present=%v attrs=%d fields=%d", g.Block, g.Present, len(g.Attrs), len(g.Fields))
}

// --------------------------------------------------------------------------
// Read strategies
// --------------------------------------------------------------------------

// ReadSerialThenDistribute reads the block on the island root and spreads it
// over the island. Attributes and scaling attributes are broadcast, every
// field is distributed row-balanced. r is only used on root.
func (g *RecordGroup) ReadSerialThenDistribute(ctx context.Context, island *comm.Comm, r store.IReader) error {
	if !g.Present {
		return nil
	}

	var rootErr error
	if island.IsRoot() {
		rootErr = g.readRoot(r, true)
	}
	if err := island.BcastStatus(ctx, 0, rootErr); err != nil {
		return fmt.Errorf("read %s: %w", g.Block, err)
	}
	if err := g.bcastAttrs(ctx, island); err != nil {
		return fmt.Errorf("read %s: %w", g.Block, err)
	}

	for i, ch := range g.Fields {
		if err := transfer.Distribute(ctx, island, ch); err != nil {
			return fmt.Errorf("distribute %s: %w", g.FieldPath(i), err)
		}
	}
	return nil
}

// ReadParallel reads the attributes on the island root and broadcasts them,
// then every rank reads its slice of each field from r
func (g *RecordGroup) ReadParallel(ctx context.Context, island *comm.Comm, r store.IReader) error {
	if !g.Present {
		return nil
	}

	var rootErr error
	if island.IsRoot() {
		rootErr = g.readRoot(r, false)
	}
	if err := island.BcastStatus(ctx, 0, rootErr); err != nil {
		return fmt.Errorf("read %s: %w", g.Block, err)
	}
	if err := g.bcastAttrs(ctx, island); err != nil {
		return fmt.Errorf("read %s: %w", g.Block, err)
	}

	for i, ch := range g.Fields {
		if err := sliceio.Read(ctx, island, r, g.FieldPath(i), ch); err != nil {
			return err
		}
	}
	return nil
}

// readRoot reads the attributes, the scaling attributes and, if full is set,
// the complete fields of the block
func (g *RecordGroup) readRoot(r store.IReader, full bool) error {
	g.Attrs = g.Attrs[:0]
	for _, name := range g.Block.Attrs {
		a, err := r.Attr(g.Block.Group, name)
		if err != nil {
			return fmt.Errorf("attribute %s of %s: %w", name, g.Block.Group, err)
		}
		g.Attrs = append(g.Attrs, a)
	}

	for i, ch := range g.Fields {
		path := g.FieldPath(i)
		if err := readScaling(r, path, ch); err != nil {
			return err
		}
		if !full {
			continue
		}

		dims, kind, err := r.Extent(path)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", path, err)
		}
		if kind != ch.Kind {
			return store.Errorf(store.RetCWrongType, "dataset %s holds %s values, expected %s", path, kind, ch.Kind)
		}
		data, err := r.ReadFull(path)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", path, err)
		}
		ch.SetFull(dims, data)
		if err := ch.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func readScaling(r store.IReader, path string, ch *dataset.Chunk) error {
	if ch.Scaling == nil {
		return nil
	}
	vals := make([]float64, len(dataset.ScalingNames))
	for i, name := range dataset.ScalingNames {
		a, err := r.Attr(path, name)
		if err != nil {
			return fmt.Errorf("scaling attribute %s of %s: %w", name, path, err)
		}
		if vals[i], err = store.Scalar[float64](a); err != nil {
			return fmt.Errorf("scaling attribute %s of %s: %w", name, path, err)
		}
	}
	return ch.Scaling.SetValues(vals)
}

// bcastAttrs replicates the attributes and the scaling attributes of root
func (g *RecordGroup) bcastAttrs(ctx context.Context, island *comm.Comm) error {
	if island.Size() == 1 {
		return nil
	}

	enc, err := island.BcastBytes(ctx, 0, store.EncodeAttrs(g.Attrs))
	if err != nil {
		return err
	}
	if g.Attrs, err = store.DecodeAttrs(enc); err != nil {
		return err
	}

	var scaling []float64
	for _, ch := range g.Fields {
		if ch.Scaling != nil {
			scaling = append(scaling, ch.Scaling.Values()...)
		}
	}
	enc, err = island.BcastBytes(ctx, 0, dtype.Encode(scaling))
	if err != nil {
		return err
	}
	if scaling, err = dtype.Decode[float64](enc); err != nil {
		return err
	}

	n := len(dataset.ScalingNames)
	for _, ch := range g.Fields {
		if ch.Scaling == nil {
			continue
		}
		if len(scaling) < n {
			return fmt.Errorf("received %d scaling values, too few for %s", len(scaling), g.Block)
		}
		if err := ch.Scaling.SetValues(scaling[:n]); err != nil {
			return err
		}
		scaling = scaling[n:]
	}
	return nil
}

// --------------------------------------------------------------------------
// Write strategies
// --------------------------------------------------------------------------

// WriteGatherThenSerial gathers every field on the island root, which then
// writes the whole block alone. The other ranks make no store calls.
func (g *RecordGroup) WriteGatherThenSerial(ctx context.Context, island *comm.Comm, w *collective.Writer) error {
	if !g.Present {
		return nil
	}

	for i, ch := range g.Fields {
		if err := transfer.Gather(ctx, island, ch); err != nil {
			return fmt.Errorf("gather %s: %w", g.FieldPath(i), err)
		}
	}

	err := w.Do(ctx, g.writeRoot)
	if err != nil {
		return fmt.Errorf("write %s: %w", g.Block, err)
	}
	return nil
}

func (g *RecordGroup) writeRoot(w store.IWriter) error {
	if g.CreatesGroup {
		if err := w.CreateGroup(g.Block.Group); err != nil {
			return err
		}
	}
	for _, a := range g.Attrs {
		if err := w.SetAttr(g.Block.Group, a); err != nil {
			return err
		}
	}

	for i, ch := range g.Fields {
		path := g.FieldPath(i)
		if err := w.CreateDataset(path, ch.Shape.Total, ch.Kind); err != nil {
			return err
		}
		if err := w.WriteFull(path, ch.Data); err != nil {
			return err
		}
		for _, a := range scalingAttrs(ch) {
			if err := w.SetAttr(path, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteParallel writes the block with collective calls from every rank:
// group and attributes through the collective writer, each field through a
// parallel slice write
func (g *RecordGroup) WriteParallel(ctx context.Context, island *comm.Comm, w *collective.Writer) error {
	if !g.Present {
		return nil
	}

	if g.CreatesGroup {
		if err := w.CreateGroup(ctx, g.Block.Group); err != nil {
			return fmt.Errorf("write %s: %w", g.Block, err)
		}
	}
	for _, a := range g.Attrs {
		if err := w.SetAttr(ctx, g.Block.Group, a); err != nil {
			return fmt.Errorf("write %s: %w", g.Block, err)
		}
	}

	for i, ch := range g.Fields {
		path := g.FieldPath(i)
		if err := sliceio.Write(ctx, island, w, path, ch); err != nil {
			return err
		}
		for _, a := range scalingAttrs(ch) {
			if err := w.SetAttr(ctx, path, a); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}
	return nil
}

func scalingAttrs(ch *dataset.Chunk) []store.Attr {
	if ch.Scaling == nil {
		return nil
	}
	vals := ch.Scaling.Values()
	out := make([]store.Attr, len(vals))
	for i, name := range dataset.ScalingNames {
		out[i] = store.NewScalar(name, vals[i])
	}
	return out
}
