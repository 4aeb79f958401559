package verify

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/ValentinKolb/dReshard/lib/snapshot"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("verify")

// rowsPerRead bounds the rows compared per read of a dataset
const rowsPerRead = 1 << 16

// Difference is one mismatch between two snapshot files
type Difference struct {
	File string
	Path string
	What string
}

func (d Difference) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Path, d.What)
	}
	return fmt.Sprintf("%s %s: %s", d.File, d.Path, d.What)
}

// comparer walks two readers and collects differences up to limit
type comparer struct {
	a, b  store.IReader
	file  string
	limit int
	diffs []Difference
}

func (c *comparer) full() bool {
	return c.limit > 0 && len(c.diffs) >= c.limit
}

func (c *comparer) add(path, format string, args ...any) {
	if !c.full() {
		c.diffs = append(c.diffs, Difference{File: c.file, Path: path, What: fmt.Sprintf(format, args...)})
	}
}

// Files compares every group, attribute and dataset of a and b. At most
// limit differences are returned (0 means all). Values are compared bit for
// bit. The error is only set when a reader fails.
func Files(a, b store.IReader, limit int) ([]Difference, error) {
	c := &comparer{a: a, b: b, limit: limit}
	if err := c.group("/"); err != nil {
		return nil, err
	}
	return c.diffs, nil
}

func (c *comparer) group(path string) error {
	if err := c.attrs(path); err != nil {
		return err
	}

	ma, err := c.a.Members(path)
	if err != nil {
		return err
	}
	mb, err := c.b.Members(path)
	if err != nil {
		return err
	}
	for _, name := range mb {
		if !slices.Contains(ma, name) {
			c.add(store.Join(path, name), "only in second")
		}
	}

	for _, name := range ma {
		if c.full() {
			return nil
		}
		child := store.Join(path, name)
		switch {
		case !slices.Contains(mb, name):
			c.add(child, "only in first")
		case c.a.HasGroup(child) != c.b.HasGroup(child):
			c.add(child, "group in one file, dataset in the other")
		case c.a.HasGroup(child):
			if err := c.group(child); err != nil {
				return err
			}
		default:
			if err := c.dataset(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *comparer) attrs(path string) error {
	na, err := c.a.AttrNames(path)
	if err != nil {
		return err
	}
	nb, err := c.b.AttrNames(path)
	if err != nil {
		return err
	}
	for _, name := range nb {
		if !slices.Contains(na, name) {
			c.add(path, "attribute %s only in second", name)
		}
	}
	for _, name := range na {
		if !slices.Contains(nb, name) {
			c.add(path, "attribute %s only in first", name)
			continue
		}
		aa, err := c.a.Attr(path, name)
		if err != nil {
			return err
		}
		ab, err := c.b.Attr(path, name)
		if err != nil {
			return err
		}
		if !aa.Equal(ab) {
			c.add(path, "attribute %s differs: %s vs %s", name, aa, ab)
		}
	}
	return nil
}

func (c *comparer) dataset(path string) error {
	if err := c.attrs(path); err != nil {
		return err
	}

	da, ka, err := c.a.Extent(path)
	if err != nil {
		return err
	}
	db, kb, err := c.b.Extent(path)
	if err != nil {
		return err
	}
	if ka != kb || !slices.Equal(da, db) {
		c.add(path, "shape %s%v vs %s%v", ka, da, kb, db)
		return nil
	}

	rows := da[0]
	for off := uint64(0); off < rows; off += rowsPerRead {
		n := min(rowsPerRead, rows-off)
		ba, err := c.a.ReadRows(path, off, n)
		if err != nil {
			return err
		}
		bb, err := c.b.ReadRows(path, off, n)
		if err != nil {
			return err
		}
		if i := firstDiff(ba, bb); i >= 0 {
			elem := uint64(i / ka.Size())
			rowLen := uint64(len(ba)) / n
			row := off + uint64(i)/rowLen
			c.add(path, "values differ from row %d (element %d of the slab)", row, elem)
			return nil
		}
	}
	return nil
}

// firstDiff returns the first byte offset where a and b differ, or -1
func firstDiff(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			return i
		}
	}
	return min(len(a), len(b))
}

// --------------------------------------------------------------------------
// Snapshot sets
// --------------------------------------------------------------------------

// Sets compares the snapshot sets in dirA and dirB file by file. Both sets
// must have the same number of files; base names and formats may differ.
func Sets(fs afero.Fs, dirA, dirB string, limit int) ([]Difference, error) {
	sa, err := snapshot.Discover(fs, dirA)
	if err != nil {
		return nil, err
	}
	sb, err := snapshot.Discover(fs, dirB)
	if err != nil {
		return nil, err
	}
	if sa.Count != sb.Count {
		return []Difference{{Path: "/", What: fmt.Sprintf("%s has %d files, %s has %d", sa, sa.Count, sb, sb.Count)}}, nil
	}

	var diffs []Difference
	for i := 0; i < sa.Count; i++ {
		rest := 0
		if limit > 0 {
			rest = limit - len(diffs)
			if rest <= 0 {
				break
			}
		}
		d, err := filePair(fs, sa.Path(i), sb.Path(i), rest)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d...)
	}
	Logger.Debugf("compared %s and %s: %d differences", sa, sb, len(diffs))
	return diffs, nil
}

func filePair(fs afero.Fs, pathA, pathB string, limit int) ([]Difference, error) {
	a, err := snapshot.Open(fs, pathA)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pathA, err)
	}
	defer a.Close()
	b, err := snapshot.Open(fs, pathB)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pathB, err)
	}
	defer b.Close()

	c := &comparer{a: a, b: b, file: pathB, limit: limit}
	if err := c.group("/"); err != nil {
		return nil, fmt.Errorf("compare %s with %s: %w", pathA, pathB, err)
	}
	return c.diffs, nil
}
