package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/h5store"
	"github.com/ValentinKolb/dReshard/lib/store/mstore"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/spf13/afero"
)

// Source is a set of snapshot files <Dir>/<Base>.<i>.<Ext> for i in [0, Count)
type Source struct {
	Dir   string
	Base  string
	Ext   string
	Count int
}

// Path returns the path of file i
func (s Source) Path(i int) string {
	return FilePath(s.Dir, s.Base, i, s.Ext)
}

func (s Source) String() string {
	return fmt.Sprintf("%s.{0..%d}.%s", filepath.Join(s.Dir, s.Base), s.Count-1, s.Ext)
}

// FilePath returns <dir>/<base>.<i>.<ext>
func FilePath(dir, base string, i int, ext string) string {
	return filepath.Join(dir, base+"."+strconv.Itoa(i)+"."+ext)
}

// parseName splits <base>.<i>.<ext> for the known extensions
func parseName(name string) (base string, idx int, ext string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return "", 0, "", false
	}
	ext = parts[len(parts)-1]
	if ext != mstore.Ext && ext != h5store.Ext {
		return "", 0, "", false
	}
	idx, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || idx < 0 {
		return "", 0, "", false
	}
	base = strings.Join(parts[:len(parts)-2], ".")
	if base == "" {
		return "", 0, "", false
	}
	return base, idx, ext, true
}

// Discover finds the snapshot files in dir. Files of other names are
// ignored. All snapshot files must share base name and extension, and
// their indices must form the range [0, n).
func Discover(fs afero.Fs, dir string) (Source, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return Source{}, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	src := Source{Dir: dir}
	var indices []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, idx, ext, ok := parseName(e.Name())
		if !ok {
			continue
		}
		if src.Base == "" {
			src.Base, src.Ext = base, ext
		}
		if base != src.Base || ext != src.Ext {
			return Source{}, fmt.Errorf("%s holds more than one snapshot: %s.*.%s and %s.*.%s",
				dir, src.Base, src.Ext, base, ext)
		}
		indices = append(indices, idx)
	}

	if len(indices) == 0 {
		return Source{}, fmt.Errorf("no snapshot files (*.<i>.%s or *.<i>.%s) in %s: %w", mstore.Ext, h5store.Ext, dir, store.ErrNotFound)
	}
	slices.Sort(indices)
	for i, idx := range indices {
		if idx != i {
			return Source{}, fmt.Errorf("snapshot files in %s are not numbered 0..%d: missing %s",
				dir, len(indices)-1, FilePath(dir, src.Base, i, src.Ext))
		}
	}
	src.Count = len(indices)
	return src, nil
}

// ShareSource discovers the source on rank 0 of world and broadcasts it.
// ShareSource is collective over world.
func ShareSource(ctx context.Context, world *comm.Comm, fs afero.Fs, dir string) (Source, error) {
	var src Source
	var dErr error
	if world.IsRoot() {
		src, dErr = Discover(fs, dir)
	}
	if err := world.BcastStatus(ctx, 0, dErr); err != nil {
		return Source{}, err
	}

	names, err := world.BcastBytes(ctx, 0, []byte(src.Base+"\x00"+src.Ext))
	if err != nil {
		return Source{}, err
	}
	count, err := world.BcastInts(ctx, 0, []uint64{uint64(src.Count)})
	if err != nil {
		return Source{}, err
	}

	base, ext, ok := strings.Cut(string(names), "\x00")
	if !ok || len(count) != 1 {
		return Source{}, fmt.Errorf("received malformed source description")
	}
	return Source{Dir: dir, Base: base, Ext: ext, Count: int(count[0])}, nil
}

// Open opens a snapshot file for reading. The extension selects the
// backend: hdf5 files are read from the operating system filesystem, all
// others are containers read through fs.
func Open(fs afero.Fs, path string) (store.IReader, error) {
	if strings.HasSuffix(path, "."+h5store.Ext) {
		return h5store.Open(path)
	}
	return mstore.Open(fs, path)
}
