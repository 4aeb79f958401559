package mstore

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/spf13/afero"
)

// buildSample writes a small snapshot-like hierarchy and returns the store
func buildSample(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	w, err := Create(fs, path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	steps := []func() error{
		func() error { return w.CreateGroup("/Header") },
		func() error { return w.SetAttr("/Header", store.NewScalar("Time", 0.5)) },
		func() error { return w.SetAttr("/Header", store.NewArray("NumPart_Total", []uint32{4, 0, 0, 0, 0, 0})) },
		func() error { return w.SetAttr("/Header", store.NewString("Git_commit", "abc123")) },
		func() error { return w.CreateGroup("/PartType0") },
		func() error { return w.CreateDataset("/PartType0/Coordinates", []uint64{4, 3}, dtype.Float64) },
		func() error {
			return w.WriteFull("/PartType0/Coordinates", dtype.Encode([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}))
		},
		func() error { return w.SetAttr("/PartType0/Coordinates", store.NewScalar("a_scaling", 1.0)) },
		func() error { return w.CreateDataset("/PartType0/ParticleIDs", []uint64{4}, dtype.Uint64) },
		func() error { return w.WriteRows("/PartType0/ParticleIDs", 0, 2, dtype.Encode([]uint64{10, 11})) },
		func() error { return w.WriteRows("/PartType0/ParticleIDs", 2, 2, dtype.Encode([]uint64{12, 13})) },
		w.Close,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildSample(t, fs, "/out/snap.0.dsnap")

	r, err := Open(fs, "/out/snap.0.dsnap")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	t.Run("Members", func(t *testing.T) {
		root, err := r.Members("/")
		if err != nil || !slices.Equal(root, []string{"Header", "PartType0"}) {
			t.Errorf("Members(/) = %v, %v", root, err)
		}
		pt, err := r.Members("/PartType0")
		if err != nil || !slices.Equal(pt, []string{"Coordinates", "ParticleIDs"}) {
			t.Errorf("Members(/PartType0) = %v, %v", pt, err)
		}
		if _, err := r.Members("/PartType0/Coordinates"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected NotFound for members of a dataset, got %v", err)
		}
	})

	t.Run("Attributes", func(t *testing.T) {
		names, err := r.AttrNames("/Header")
		if err != nil || !slices.Equal(names, []string{"Git_commit", "NumPart_Total", "Time"}) {
			t.Errorf("AttrNames = %v, %v", names, err)
		}

		a, err := r.Attr("/Header", "Time")
		if err != nil {
			t.Fatal(err)
		}
		if v, err := store.Scalar[float64](a); err != nil || v != 0.5 {
			t.Errorf("Time = %v, %v", v, err)
		}

		a, err = r.Attr("/Header", "NumPart_Total")
		if err != nil {
			t.Fatal(err)
		}
		if v, err := store.Values[uint32](a); err != nil || !slices.Equal(v, []uint32{4, 0, 0, 0, 0, 0}) {
			t.Errorf("NumPart_Total = %v, %v", v, err)
		}
		if _, err := store.Values[uint64](a); !errors.Is(err, store.ErrWrongType) {
			t.Errorf("Expected WrongType decoding u32 as u64, got %v", err)
		}

		a, err = r.Attr("/Header", "Git_commit")
		if err != nil || a.Str != "abc123" {
			t.Errorf("Git_commit = %v, %v", a, err)
		}

		if !r.HasAttr("/PartType0/Coordinates", "a_scaling") {
			t.Errorf("Expected dataset attribute a_scaling")
		}
		if _, err := r.Attr("/Header", "Missing"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})

	t.Run("Datasets", func(t *testing.T) {
		dims, kind, err := r.Extent("/PartType0/Coordinates")
		if err != nil || kind != dtype.Float64 || !slices.Equal(dims, []uint64{4, 3}) {
			t.Errorf("Extent = %v %v %v", dims, kind, err)
		}

		rows, err := r.ReadRows("/PartType0/Coordinates", 1, 2)
		if err != nil {
			t.Fatal(err)
		}
		vals, _ := dtype.Decode[float64](rows)
		if !slices.Equal(vals, []float64{3, 4, 5, 6, 7, 8}) {
			t.Errorf("ReadRows = %v", vals)
		}

		full, err := r.ReadFull("/PartType0/ParticleIDs")
		if err != nil {
			t.Fatal(err)
		}
		ids, _ := dtype.Decode[uint64](full)
		if !slices.Equal(ids, []uint64{10, 11, 12, 13}) {
			t.Errorf("ReadFull = %v", ids)
		}

		if empty, err := r.ReadRows("/PartType0/ParticleIDs", 4, 0); err != nil || len(empty) != 0 {
			t.Errorf("Expected empty read at the end, got %v, %v", empty, err)
		}
		if _, err := r.ReadRows("/PartType0/ParticleIDs", 3, 2); !errors.Is(err, store.ErrInvalid) {
			t.Errorf("Expected InvalidOperation for rows out of range, got %v", err)
		}
		if _, _, err := r.Extent("/PartType0"); !errors.Is(err, store.ErrWrongType) {
			t.Errorf("Expected WrongType for extent of a group, got %v", err)
		}
		if r.HasDataset("/PartType1/Coordinates") || r.HasGroup("/PartType1") {
			t.Errorf("Unexpected object PartType1")
		}
	})
}

func TestWriterErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "snap.dsnap")
	if err != nil {
		t.Fatal(err)
	}

	if err := w.CreateDataset("/d", []uint64{3, 2}, dtype.Int32); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		op   func() error
		want *store.Error
	}{
		{"missing parent", func() error { return w.CreateGroup("/a/b") }, store.ErrNotFound},
		{"root", func() error { return w.CreateGroup("/") }, store.ErrInvalid},
		{"duplicate", func() error { return w.CreateGroup("/d") }, store.ErrInvalid},
		{"string dataset", func() error { return w.CreateDataset("/s", []uint64{1}, dtype.String) }, store.ErrWrongType},
		{"rank 3", func() error { return w.CreateDataset("/r3", []uint64{1, 1, 1}, dtype.Float32) }, store.ErrInvalid},
		{"attr on missing object", func() error { return w.SetAttr("/missing", store.NewScalar("x", int32(1))) }, store.ErrNotFound},
		{"write missing dataset", func() error { return w.WriteFull("/missing", nil) }, store.ErrNotFound},
		{"short buffer", func() error { return w.WriteFull("/d", make([]byte, 8)) }, store.ErrInvalid},
		{"rows past end", func() error { return w.WriteRows("/d", 2, 2, make([]byte, 16)) }, store.ErrInvalid},
		{"row size mismatch", func() error { return w.WriteRows("/d", 0, 1, make([]byte, 4)) }, store.ErrInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.op(); !errors.Is(err, tc.want) {
				t.Errorf("Expected %s, got %v", tc.want.Code, err)
			}
		})
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.CreateGroup("/late"); err == nil {
		t.Errorf("Expected error after Close")
	}
}

func TestReadOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildSample(t, fs, "snap.dsnap")

	r, err := Open(fs, "snap.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	w, ok := r.(store.IWriter)
	if !ok {
		t.Skip("reader does not expose the writer methods")
	}
	if err := w.CreateGroup("/x"); !errors.Is(err, &store.Error{Code: store.RetCUnsupportedOperation}) {
		t.Errorf("Expected UnsupportedOperation, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	if _, err := Open(fs, "missing.dsnap"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}

	if err := afero.WriteFile(fs, "garbage.dsnap", []byte("not a container"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(fs, "garbage.dsnap"); err == nil {
		t.Errorf("Expected error for garbage file")
	}
}

func TestDeterministicFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildSample(t, fs, "a.dsnap")
	buildSample(t, fs, "b.dsnap")

	a, _ := afero.ReadFile(fs, "a.dsnap")
	b, _ := afero.ReadFile(fs, "b.dsnap")
	if len(a) == 0 || !bytes.Equal(a, b) {
		t.Errorf("Equal content produced different files (%d and %d bytes)", len(a), len(b))
	}
}

func TestSlabs(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "out.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.CreateDataset("/ids", []uint64{4}, dtype.Uint64); err != nil {
		t.Fatal(err)
	}
	offset, dims, kind, err := w.Region("/ids")
	if err != nil {
		t.Fatal(err)
	}
	if offset != headerSize || !slices.Equal(dims, []uint64{4}) || kind != dtype.Uint64 {
		t.Fatalf("Region = %d, %v, %s", offset, dims, kind)
	}

	t.Run("RowsInPlace", func(t *testing.T) {
		sw, err := OpenSlabs(fs, "out.dsnap")
		if err != nil {
			t.Fatal(err)
		}
		if err := sw.WriteSlab(offset+2*8, dtype.Encode([]uint64{12, 13})); err != nil {
			t.Fatal(err)
		}
		if err := sw.WriteSlab(0, []byte{1}); !errors.Is(err, store.ErrInvalid) {
			t.Errorf("Expected invalid operation for a header write, got %v", err)
		}
		if err := sw.Close(); err != nil {
			t.Fatal(err)
		}
	})

	if err := w.WriteRows("/ids", 0, 2, dtype.Encode([]uint64{10, 11})); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := w.Region("/missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(fs, "out.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rows, err := r.ReadRows("/ids", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := dtype.Decode[uint64](rows); !slices.Equal(got, []uint64{11, 12, 13}) {
		t.Errorf("ReadRows = %v", got)
	}

	if _, err := OpenSlabs(fs, "missing.dsnap"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}
