package sliceio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/ValentinKolb/dReshard/lib/dataset"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/collective"
	"github.com/ValentinKolb/dReshard/lib/store/mstore"
	"github.com/ValentinKolb/dReshard/lib/transfer"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/spf13/afero"
)

var (
	testRows  = []uint64{0, 1, 2, 3, 10, 17, 100}
	testSizes = []int{1, 2, 3, 4, 7}
)

func TestLocalSliceScenario(t *testing.T) {
	var offsets, lengths []uint64
	for k := 0; k < 3; k++ {
		off, n := LocalSlice(10, k, 3)
		offsets = append(offsets, off)
		lengths = append(lengths, n)
	}
	if !slices.Equal(lengths, []uint64{4, 3, 3}) || !slices.Equal(offsets, []uint64{0, 4, 7}) {
		t.Errorf("LocalSlice(10, *, 3) = offsets %v lengths %v", offsets, lengths)
	}

	for _, size := range testSizes {
		for k := 0; k < size; k++ {
			if off, n := LocalSlice(0, k, size); off != 0 || n != 0 {
				t.Errorf("LocalSlice(0, %d, %d) = (%d, %d)", k, size, off, n)
			}
		}
	}
}

// TestSliceMatchesPlan checks that the parallel read and the distribute plan
// give every rank the same rows
func TestSliceMatchesPlan(t *testing.T) {
	for _, rows := range testRows {
		for _, size := range testSizes {
			plan := transfer.NewPlan(rows, 1, size)
			for k := 0; k < size; k++ {
				off, n := LocalSlice(rows, k, size)
				if off != plan.Displs[k] || n != plan.SendCounts[k] {
					t.Errorf("R=%d S=%d rank %d: slice (%d, %d), plan (%d, %d)",
						rows, size, k, off, n, plan.Displs[k], plan.SendCounts[k])
				}
			}
		}
	}
}

func TestScanOffset(t *testing.T) {
	for _, rows := range testRows {
		for _, size := range testSizes {
			t.Run(fmt.Sprintf("R=%d/S=%d", rows, size), func(t *testing.T) {
				offsets := make([]uint64, size)
				lengths := make([]uint64, size)

				err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
					_, n := LocalSlice(rows, c.Rank(), c.Size())
					off, err := ScanOffset(ctx, c, n)
					offsets[c.Rank()], lengths[c.Rank()] = off, n
					return err
				})
				if err != nil {
					t.Fatal(err)
				}

				if offsets[0] != 0 {
					t.Errorf("offset of rank 0 is %d", offsets[0])
				}
				for k := 1; k < size; k++ {
					if offsets[k] != offsets[k-1]+lengths[k-1] {
						t.Errorf("offset %d = %d, want %d", k, offsets[k], offsets[k-1]+lengths[k-1])
					}
				}
				if offsets[size-1]+lengths[size-1] != rows {
					t.Errorf("last slice ends at %d, want %d", offsets[size-1]+lengths[size-1], rows)
				}
			})
		}
	}
}

// writeSource stores a rows x 3 float64 dataset with values 0, 1, 2, ...
func writeSource(t *testing.T, fs afero.Fs, rows uint64) []float64 {
	t.Helper()
	vals := make([]float64, rows*3)
	for i := range vals {
		vals[i] = float64(i) + 0.25
	}
	w, err := mstore.Create(fs, "in.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.CreateDataset("/Coordinates", []uint64{rows, 3}, dtype.Float64); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFull("/Coordinates", dtype.Encode(vals)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return vals
}

func TestReadWriteRoundTrip(t *testing.T) {
	for _, rows := range testRows {
		for _, size := range testSizes {
			t.Run(fmt.Sprintf("R=%d/S=%d", rows, size), func(t *testing.T) {
				fs := afero.NewMemMapFs()
				vals := writeSource(t, fs, rows)

				err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
					r, err := collective.OpenReaders(ctx, c, "in.dsnap", func() (store.IReader, error) {
						return mstore.Open(fs, "in.dsnap")
					})
					if err != nil {
						return err
					}
					defer r.Close()

					ch := dataset.New("Coordinates", dtype.Invalid, false)
					if err := Read(ctx, c, r, "/Coordinates", ch); err != nil {
						return err
					}

					off, n := LocalSlice(rows, c.Rank(), c.Size())
					got, err := dataset.Values[float64](ch)
					if err != nil {
						return err
					}
					if !slices.Equal(got, vals[off*3:(off+n)*3]) {
						t.Errorf("rank %d: read %v, want rows [%d, %d)", c.Rank(), got, off, off+n)
					}
					if !slices.Equal(ch.Shape.Total, []uint64{rows, 3}) {
						t.Errorf("rank %d: total shape %v", c.Rank(), ch.Shape.Total)
					}

					w, err := collective.Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
						return mstore.Create(fs, "out.dsnap")
					}, func() (store.ISlabWriter, error) {
						return mstore.OpenSlabs(fs, "out.dsnap")
					})
					if err != nil {
						return err
					}
					if err := Write(ctx, c, w, "/Coordinates", ch); err != nil {
						return err
					}
					return w.Close(ctx)
				})
				if err != nil {
					t.Fatal(err)
				}

				in, _ := afero.ReadFile(fs, "in.dsnap")
				out, _ := afero.ReadFile(fs, "out.dsnap")
				r, err := mstore.Open(fs, "out.dsnap")
				if err != nil {
					t.Fatal(err)
				}
				defer r.Close()
				full, err := r.ReadFull("/Coordinates")
				if err != nil {
					t.Fatal(err)
				}
				got, _ := dtype.Decode[float64](full)
				if !slices.Equal(got, vals) {
					t.Errorf("written dataset differs from source")
				}
				if len(in) == 0 || len(out) == 0 {
					t.Errorf("empty container files")
				}
			})
		}
	}
}

// TestWriteUnevenRows writes ranks holding arbitrary row counts
func TestWriteUnevenRows(t *testing.T) {
	fs := afero.NewMemMapFs()
	perRank := []uint64{0, 5, 1, 0, 3}

	err := comm.RunLocal(context.Background(), len(perRank), func(ctx context.Context, c *comm.Comm) error {
		var start uint64
		for _, n := range perRank[:c.Rank()] {
			start += n
		}
		ids := make([]uint32, perRank[c.Rank()])
		for i := range ids {
			ids[i] = uint32(start) + uint32(i)
		}
		ch, err := dataset.NewChunk("ParticleIDs", ids)
		if err != nil {
			return err
		}

		w, err := collective.Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
			return mstore.Create(fs, "out.dsnap")
		}, func() (store.ISlabWriter, error) {
			return mstore.OpenSlabs(fs, "out.dsnap")
		})
		if err != nil {
			return err
		}
		if err := Write(ctx, c, w, "/ParticleIDs", ch); err != nil {
			return err
		}
		return w.Close(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}

	r, err := mstore.Open(fs, "out.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	full, _ := r.ReadFull("/ParticleIDs")
	ids, _ := dtype.Decode[uint32](full)
	if !slices.Equal(ids, []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("ParticleIDs = %v", ids)
	}
}

func TestReadMissingDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, 4)

	errs := make([]error, 3)
	err := comm.RunLocal(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
		r, err := mstore.Open(fs, "in.dsnap")
		if err != nil {
			return err
		}
		defer r.Close()

		// only rank 1 asks for a missing dataset
		path := "/Coordinates"
		if c.Rank() == 1 {
			path = "/Velocities"
		}
		errs[c.Rank()] = Read(ctx, c, r, path, dataset.New("x", dtype.Invalid, false))
		return c.Barrier(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}
	for r, e := range errs {
		if e == nil {
			t.Errorf("rank %d: expected error", r)
		}
	}
	if !errors.Is(errs[1], store.ErrNotFound) {
		t.Errorf("rank 1: expected NotFound, got %v", errs[1])
	}
}

func TestWriteInvalidChunk(t *testing.T) {
	fs := afero.NewMemMapFs()
	errs := make([]error, 3)

	err := comm.RunLocal(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
		ch, _ := dataset.NewChunk("Masses", []float32{1, 2})
		if c.Rank() == 2 {
			ch.Data = ch.Data[:3]
		}
		w, err := collective.Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
			return mstore.Create(fs, "out.dsnap")
		}, func() (store.ISlabWriter, error) {
			return mstore.OpenSlabs(fs, "out.dsnap")
		})
		if err != nil {
			return err
		}
		errs[c.Rank()] = Write(ctx, c, w, "/Masses", ch)
		return w.Close(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}
	for r, e := range errs {
		if e == nil {
			t.Errorf("rank %d: expected error", r)
		}
	}
}
