package verify

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/snapshot"
	"github.com/ValentinKolb/dReshard/lib/snapshot/snaptest"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/mstore"
	"github.com/spf13/afero"
)

// write creates <dir>/snap.<i>.dsnap from spec and applies edit before closing
func write(t *testing.T, fs afero.Fs, dir string, i int, spec snaptest.Spec, edit func(w store.IWriter) error) {
	t.Helper()
	w, err := mstore.Create(fs, snapshot.FilePath(dir, "snap", i, mstore.Ext))
	if err != nil {
		t.Fatal(err)
	}
	if err := snaptest.Write(w, spec); err != nil {
		t.Fatal(err)
	}
	if edit != nil {
		if err := edit(w); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSetsEqual(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 2; i++ {
		write(t, fs, "/a", i, snaptest.Full(uint64(i), 7), nil)
		write(t, fs, "/b", i, snaptest.Full(uint64(i), 7), nil)
	}

	diffs, err := Sets(fs, "/a", "/b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Errorf("Expected no differences, got %v", diffs)
	}
}

func TestSetsDifferences(t *testing.T) {
	spec := snaptest.DarkMatter(1, 300)

	tests := []struct {
		name string
		edit func(w store.IWriter) error
		want string
	}{
		{
			name: "Value",
			edit: func(w store.IWriter) error {
				return w.WriteRows("/PartType1/ParticleIDs", 123, 1, dtype.Encode([]uint64{0}))
			},
			want: "values differ from row 123",
		},
		{
			name: "Attribute",
			edit: func(w store.IWriter) error {
				return w.SetAttr(schema.HeaderGroup, store.NewScalar("Redshift", -1.0))
			},
			want: "attribute Redshift differs",
		},
		{
			name: "ExtraAttribute",
			edit: func(w store.IWriter) error {
				return w.SetAttr("/PartType1/Coordinates", store.NewString("note", "x"))
			},
			want: "attribute note only in second",
		},
		{
			name: "ExtraGroup",
			edit: func(w store.IWriter) error {
				return w.CreateGroup("/PartType2")
			},
			want: "/PartType2: only in second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			write(t, fs, "/a", 0, spec, nil)
			write(t, fs, "/b", 0, spec, tt.edit)

			diffs, err := Sets(fs, "/a", "/b", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(diffs) != 1 {
				t.Fatalf("Expected one difference, got %v", diffs)
			}
			if !strings.Contains(diffs[0].String(), tt.want) {
				t.Errorf("difference %q does not mention %q", diffs[0], tt.want)
			}
		})
	}
}

func TestSetsLimitAndCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/a", 0, snaptest.Full(1, 5), nil)
	write(t, fs, "/b", 0, snaptest.Full(2, 5), nil)

	diffs, err := Sets(fs, "/a", "/b", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 3 {
		t.Errorf("Expected the limit of 3 differences, got %d", len(diffs))
	}

	write(t, fs, "/b", 1, snaptest.Full(2, 5), nil)
	diffs, err = Sets(fs, "/a", "/b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 1 || !strings.Contains(diffs[0].What, "has 1 files") {
		t.Errorf("Expected a file count difference, got %v", diffs)
	}

	if _, err := Sets(fs, "/a", "/missing", 0); err == nil {
		t.Errorf("Expected error for a missing directory")
	}
}

func TestFilesShapeMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := mstore.Create(fs, "/a.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	b, err := mstore.Create(fs, "/b.dsnap")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.CreateDataset("/x", []uint64{4}, dtype.Float32); err != nil {
		t.Fatal(err)
	}
	if err := b.CreateDataset("/x", []uint64{4}, dtype.Int32); err != nil {
		t.Fatal(err)
	}

	diffs, err := Files(a, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 1 || !strings.Contains(diffs[0].What, "shape") {
		t.Errorf("Expected a shape difference, got %v", diffs)
	}
}
