package collective

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/mstore"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/spf13/afero"
)

func TestWriteRows(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			const rows, cols = 11, 2

			err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
				w, err := Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
					return mstore.Create(fs, "out.dsnap")
				}, slabOpener(fs, "out.dsnap"))
				if err != nil {
					return err
				}
				if (w.Root() != nil) != c.IsRoot() {
					t.Errorf("rank %d: unexpected root writer", c.Rank())
				}
				if err := w.CreateGroup(ctx, "/PartType0"); err != nil {
					return err
				}
				if err := w.SetAttr(ctx, "/PartType0", store.NewScalar("Count", uint64(rows))); err != nil {
					return err
				}
				if err := w.CreateDataset(ctx, "/PartType0/Velocities", []uint64{rows, cols}, dtype.Float32); err != nil {
					return err
				}

				// rank k writes rows in reverse rank order to show that
				// the offsets, not the rank order, place the rows
				var off uint64
				for r := c.Size() - 1; r > c.Rank(); r-- {
					off += uint64(rows/c.Size() + boolInt(r < rows%c.Size()))
				}
				n := uint64(rows/c.Size() + boolInt(c.Rank() < rows%c.Size()))
				vals := make([]float32, n*cols)
				for i := range vals {
					vals[i] = float32(off*cols + uint64(i))
				}
				if err := w.WriteRows(ctx, "/PartType0/Velocities", dtype.Float32, cols*4, off, n, dtype.Encode(vals)); err != nil {
					return err
				}
				return w.Close(ctx)
			})
			if err != nil {
				t.Fatalf("RunLocal failed: %v", err)
			}

			r, err := mstore.Open(fs, "out.dsnap")
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			full, err := r.ReadFull("/PartType0/Velocities")
			if err != nil {
				t.Fatal(err)
			}
			vals, _ := dtype.Decode[float32](full)
			for i, v := range vals {
				if v != float32(i) {
					t.Fatalf("value %d = %v", i, v)
				}
			}
			if len(vals) != rows*cols {
				t.Errorf("expected %d values, got %d", rows*cols, len(vals))
			}
		})
	}
}

func slabOpener(fs afero.Fs, path string) func() (store.ISlabWriter, error) {
	return func() (store.ISlabWriter, error) {
		return mstore.OpenSlabs(fs, path)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestAgreedErrors(t *testing.T) {
	const size = 3
	fs := afero.NewMemMapFs()
	errs := make([]error, size)

	err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
		w, err := Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
			return mstore.Create(fs, "out.dsnap")
		}, slabOpener(fs, "out.dsnap"))
		if err != nil {
			return err
		}
		// the parent group does not exist
		errs[c.Rank()] = w.CreateGroup(ctx, "/a/b")

		// rank 1 announces a wrong byte count
		if err := w.CreateDataset(ctx, "/d", []uint64{3}, dtype.Int64); err != nil {
			return err
		}
		data := make([]byte, 8)
		if c.Rank() == 1 {
			data = make([]byte, 5)
		}
		if err := w.WriteRows(ctx, "/d", dtype.Int64, 8, uint64(c.Rank()), 1, data); err == nil {
			t.Errorf("rank %d: expected write error", c.Rank())
		}
		return w.Close(ctx)
	})
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	if !errors.Is(errs[0], store.ErrNotFound) {
		t.Errorf("root: expected NotFound, got %v", errs[0])
	}
	for r := 1; r < size; r++ {
		if !errors.Is(errs[r], comm.ErrRemote) {
			t.Errorf("rank %d: expected remote error, got %v", r, errs[r])
		}
	}
}

// countingWriter counts the value bytes passed to a root store
type countingWriter struct {
	store.IRegionWriter
	bytes int
}

func (w *countingWriter) WriteFull(path string, data []byte) error {
	w.bytes += len(data)
	return w.IRegionWriter.WriteFull(path, data)
}

func (w *countingWriter) WriteRows(path string, off, n uint64, data []byte) error {
	w.bytes += len(data)
	return w.IRegionWriter.WriteRows(path, off, n, data)
}

// countingSlabs counts the bytes written through a slab writer
type countingSlabs struct {
	store.ISlabWriter
	bytes int
}

func (w *countingSlabs) WriteSlab(offset uint64, data []byte) error {
	w.bytes += len(data)
	return w.ISlabWriter.WriteSlab(offset, data)
}

func TestWriteRowsOwnSlab(t *testing.T) {
	const size, rows, cols = 4, 1000, 3
	fs := afero.NewMemMapFs()
	root := &countingWriter{}
	slabs := make([]*countingSlabs, size)

	err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
		w, err := Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
			rw, err := mstore.Create(fs, "out.dsnap")
			if err != nil {
				return nil, err
			}
			root.IRegionWriter = rw
			return root, nil
		}, func() (store.ISlabWriter, error) {
			sw, err := mstore.OpenSlabs(fs, "out.dsnap")
			if err != nil {
				return nil, err
			}
			slabs[c.Rank()] = &countingSlabs{ISlabWriter: sw}
			return slabs[c.Rank()], nil
		})
		if err != nil {
			return err
		}
		if err := w.CreateDataset(ctx, "/PartType1/Coordinates", []uint64{rows, cols}, dtype.Float64); err != nil {
			return err
		}

		n := uint64(rows / size)
		off := uint64(c.Rank()) * n
		vals := make([]float64, n*cols)
		for i := range vals {
			vals[i] = float64(off*cols + uint64(i))
		}
		if err := w.WriteRows(ctx, "/PartType1/Coordinates", dtype.Float64, cols*8, off, n, dtype.Encode(vals)); err != nil {
			return err
		}
		return w.Close(ctx)
	})
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	// each rank moves its own 250 rows of 24 bytes, root included
	const slab = rows / size * cols * 8
	if root.bytes != slab {
		t.Errorf("root store received %d bytes, want %d", root.bytes, slab)
	}
	if slabs[0] != nil {
		t.Errorf("root opened a slab writer")
	}
	for r := 1; r < size; r++ {
		if slabs[r] == nil || slabs[r].bytes != slab {
			t.Errorf("rank %d: slab writer missing or wrote the wrong byte count", r)
		}
	}

	r, err := mstore.Open(fs, "out.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	full, err := r.ReadFull("/PartType1/Coordinates")
	if err != nil {
		t.Fatal(err)
	}
	vals, _ := dtype.Decode[float64](full)
	if len(vals) != rows*cols {
		t.Fatalf("expected %d values, got %d", rows*cols, len(vals))
	}
	for i, v := range vals {
		if v != float64(i) {
			t.Fatalf("value %d = %v", i, v)
		}
	}
}

func TestWriteRowsLocalFailure(t *testing.T) {
	const size = 3
	fs := afero.NewMemMapFs()
	errs := make([]error, size)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := comm.RunLocal(ctx, size, func(ctx context.Context, c *comm.Comm) error {
		w, err := Create(ctx, c, "out.dsnap", func() (store.IWriter, error) {
			return mstore.Create(fs, "out.dsnap")
		}, slabOpener(fs, "out.dsnap"))
		if err != nil {
			return err
		}
		if err := w.CreateDataset(ctx, "/d", []uint64{6}, dtype.Uint32); err != nil {
			return err
		}
		off := uint64(2 * c.Rank())
		if c.Rank() == 2 {
			// rows beyond the extent of the dataset
			off = 5
		}
		errs[c.Rank()] = w.WriteRows(ctx, "/d", dtype.Uint32, 4, off, 2, make([]byte, 8))

		// the island is still aligned
		if err := c.Barrier(ctx); err != nil {
			return err
		}
		return w.Close(ctx)
	})
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("ranks did not return in time: %v", ctx.Err())
	}
	for r, err := range errs {
		if err == nil {
			t.Errorf("rank %d: expected write error", r)
		}
	}
	if !errors.Is(errs[2], store.ErrInvalid) {
		t.Errorf("rank 2: expected invalid operation, got %v", errs[2])
	}
}

func TestCreateFailure(t *testing.T) {
	err := comm.RunLocal(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
		_, err := Create(ctx, c, "out", func() (store.IWriter, error) {
			return nil, store.NewError(store.RetCInternalError, "disk full")
		}, nil)
		if err == nil {
			t.Errorf("rank %d: expected error", c.Rank())
		}
		// the island is still aligned
		return c.Barrier(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestOpenReaders(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := mstore.Create(fs, "in.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("AllSucceed", func(t *testing.T) {
		err := comm.RunLocal(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
			r, err := OpenReaders(ctx, c, "in.dsnap", func() (store.IReader, error) {
				return mstore.Open(fs, "in.dsnap")
			})
			if err != nil {
				return err
			}
			defer r.Close()
			if members, err := r.Members("/"); err != nil || len(members) != 0 {
				t.Errorf("rank %d: Members = %v, %v", c.Rank(), members, err)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("OneFails", func(t *testing.T) {
		failed := make([]bool, 4)
		err := comm.RunLocal(context.Background(), 4, func(ctx context.Context, c *comm.Comm) error {
			name := "in.dsnap"
			if c.Rank() == 2 {
				name = "missing.dsnap"
			}
			_, err := OpenReaders(ctx, c, name, func() (store.IReader, error) {
				return mstore.Open(fs, name)
			})
			failed[c.Rank()] = err != nil
			return c.Barrier(ctx)
		})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(failed, []bool{true, true, true, true}) {
			t.Errorf("expected every rank to fail, got %v", failed)
		}
	})
}
