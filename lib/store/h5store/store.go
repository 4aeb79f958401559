package h5store

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/scigolib/hdf5"
)

// Ext is the file extension of HDF5 snapshot files
const Ext = "hdf5"

// maxExact is the largest integer magnitude the library returns without loss
const maxExact = 1 << 53

type storeImpl struct {
	file    *hdf5.File
	path    string
	objects map[string]hdf5.Object // clean path -> group or dataset
	members map[string][]string    // clean group path -> sorted child names
}

// rawAttr is an attribute as listed by the library
type rawAttr struct {
	name string
	read func() (interface{}, error)
}

// Open opens an HDF5 snapshot file read-only and indexes its hierarchy
func Open(path string) (store.IReader, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.Errorf(store.RetCNotFound, "open %s: %v", path, err)
		}
		return nil, store.Errorf(store.RetCWrongType, "%s is not a readable HDF5 file: %v", path, err)
	}

	s := &storeImpl{
		file:    f,
		path:    path,
		objects: map[string]hdf5.Object{"/": f.Root()},
		members: map[string][]string{"/": {}},
	}
	f.Walk(func(p string, obj hdf5.Object) {
		p = store.Clean(p)
		if p == "/" {
			return
		}
		s.objects[p] = obj
		if _, ok := obj.(*hdf5.Group); ok && s.members[p] == nil {
			s.members[p] = []string{}
		}
		parent := store.Parent(p)
		s.members[parent] = append(s.members[parent], store.Base(p))
	})
	for _, names := range s.members {
		slices.Sort(names)
	}
	store.Logger.Debugf("opened hdf5 file %s (%d objects)", path, len(s.objects))
	return s, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *storeImpl) object(path string) (hdf5.Object, error) {
	path = store.Clean(path)
	obj, ok := s.objects[path]
	if !ok {
		return nil, store.Errorf(store.RetCNotFound, "%s does not exist in %s", path, s.path)
	}
	return obj, nil
}

func (s *storeImpl) dataset(path string) (*hdf5.Dataset, error) {
	obj, err := s.object(path)
	if err != nil {
		return nil, err
	}
	d, ok := obj.(*hdf5.Dataset)
	if !ok {
		return nil, store.Errorf(store.RetCWrongType, "%s is not a dataset", store.Clean(path))
	}
	return d, nil
}

// attrs lists the attributes of a group or dataset
func (s *storeImpl) attrs(path string) ([]rawAttr, error) {
	obj, err := s.object(path)
	if err != nil {
		return nil, err
	}
	var out []rawAttr
	switch o := obj.(type) {
	case *hdf5.Group:
		list, err := o.Attributes()
		if err != nil {
			return nil, store.Errorf(store.RetCInternalError, "attributes of %s: %v", store.Clean(path), err)
		}
		for _, a := range list {
			out = append(out, rawAttr{name: a.Name, read: a.ReadValue})
		}
	case *hdf5.Dataset:
		list, err := o.Attributes()
		if err != nil {
			return nil, store.Errorf(store.RetCInternalError, "attributes of %s: %v", store.Clean(path), err)
		}
		for _, a := range list {
			out = append(out, rawAttr{name: a.Name, read: a.ReadValue})
		}
	default:
		return nil, store.Errorf(store.RetCWrongType, "%s holds no attributes", store.Clean(path))
	}
	return out, nil
}

var (
	dimsPattern = regexp.MustCompile(`\[\s*(\d+(?:[\s,]+\d+)*)\s*\]`)
	typePattern = regexp.MustCompile(`(?i)\b(u?int(?:32|64)|float(?:32|64)|double)\b`)
)

// describe extracts the dimensions and the element kind from the dataset
// summary of the library. Dimensions are the first bracketed list after the
// word "dim" or "shape", the kind is the first element type name.
func describe(info string) ([]uint64, dtype.Kind, error) {
	lower := strings.ToLower(info)
	from := 0
	for _, key := range []string{"dim", "shape"} {
		if i := strings.Index(lower, key); i >= 0 {
			from = i
			break
		}
	}
	m := dimsPattern.FindStringSubmatch(info[from:])
	if m == nil {
		return nil, dtype.Invalid, store.Errorf(store.RetCWrongType, "no dimensions in %q", info)
	}
	var dims []uint64
	for _, f := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, dtype.Invalid, store.Errorf(store.RetCWrongType, "dimension %q: %v", f, err)
		}
		dims = append(dims, v)
	}

	t := typePattern.FindString(info)
	var kind dtype.Kind
	switch strings.ToLower(t) {
	case "float32":
		kind = dtype.Float32
	case "float64", "double":
		kind = dtype.Float64
	case "int32":
		kind = dtype.Int32
	case "int64":
		kind = dtype.Int64
	case "uint32":
		kind = dtype.Uint32
	case "uint64":
		kind = dtype.Uint64
	default:
		return nil, dtype.Invalid, store.Errorf(store.RetCWrongType, "no supported element type in %q", info)
	}
	return dims, kind, nil
}

// encodeRows converts the values returned by the library back to their
// kind. Integers travel as float64, so values beyond 2^53 are rejected
// rather than rounded.
func encodeRows(path string, kind dtype.Kind, vals []float64) ([]byte, error) {
	size := kind.Size()
	out := make([]byte, len(vals)*size)
	for i, v := range vals {
		b := out[i*size:]
		switch kind {
		case dtype.Float64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		case dtype.Float32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		case dtype.Int32:
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		case dtype.Uint32:
			// 32 bit integers are decoded as signed
			if v < 0 {
				binary.LittleEndian.PutUint32(b, uint32(int32(v)))
			} else {
				binary.LittleEndian.PutUint32(b, uint32(v))
			}
		case dtype.Int64:
			if math.Abs(v) > maxExact {
				return nil, store.Errorf(store.RetCWrongType, "dataset %s: value %g at index %d exceeds the exact integer range", path, v, i)
			}
			binary.LittleEndian.PutUint64(b, uint64(int64(v)))
		case dtype.Uint64:
			if v < 0 || v > maxExact {
				return nil, store.Errorf(store.RetCWrongType, "dataset %s: value %g at index %d exceeds the exact integer range", path, v, i)
			}
			binary.LittleEndian.PutUint64(b, uint64(v))
		default:
			return nil, store.Errorf(store.RetCWrongType, "dataset %s: kind %s", path, kind)
		}
	}
	return out, nil
}

// convertAttr converts an attribute value. Numeric values keep the width the
// library decodes them to.
func convertAttr(name string, v interface{}) (store.Attr, error) {
	var out store.Attr
	switch x := v.(type) {
	case float64:
		out = store.NewScalar(name, x)
	case float32:
		out = store.NewScalar(name, x)
	case int32:
		out = store.NewScalar(name, x)
	case int64:
		out = store.NewScalar(name, x)
	case uint32:
		out = store.NewScalar(name, x)
	case uint64:
		out = store.NewScalar(name, x)
	case string:
		return store.NewString(name, strings.TrimRight(x, "\x00")), nil
	case []float64:
		out = store.NewArray(name, x)
	case []float32:
		out = store.NewArray(name, x)
	case []int32:
		out = store.NewArray(name, x)
	case []int64:
		out = store.NewArray(name, x)
	case []uint32:
		out = store.NewArray(name, x)
	case []uint64:
		out = store.NewArray(name, x)
	case []string:
		if len(x) != 1 {
			return store.Attr{}, store.Errorf(store.RetCWrongType, "attribute %s: string arrays are not supported", name)
		}
		return store.NewString(name, strings.TrimRight(x[0], "\x00")), nil
	default:
		return store.Attr{}, store.Errorf(store.RetCWrongType, "attribute %s: value type %T not supported", name, v)
	}
	return out, out.Validate()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) HasGroup(path string) bool {
	obj, err := s.object(path)
	if err != nil {
		return false
	}
	_, ok := obj.(*hdf5.Group)
	return ok
}

func (s *storeImpl) HasDataset(path string) bool {
	_, err := s.dataset(path)
	return err == nil
}

func (s *storeImpl) HasAttr(path, name string) bool {
	list, err := s.attrs(path)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(list, func(a rawAttr) bool { return a.name == name })
}

func (s *storeImpl) Attr(path, name string) (store.Attr, error) {
	list, err := s.attrs(path)
	if err != nil {
		return store.Attr{}, err
	}
	i := slices.IndexFunc(list, func(a rawAttr) bool { return a.name == name })
	if i < 0 {
		return store.Attr{}, store.Errorf(store.RetCNotFound, "attribute %s of %s does not exist", name, store.Clean(path))
	}
	v, err := list[i].read()
	if err != nil {
		return store.Attr{}, store.Errorf(store.RetCWrongType, "attribute %s: %v", name, err)
	}
	return convertAttr(name, v)
}

func (s *storeImpl) AttrNames(path string) ([]string, error) {
	list, err := s.attrs(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.name
	}
	slices.Sort(names)
	return names, nil
}

func (s *storeImpl) Members(path string) ([]string, error) {
	if !s.HasGroup(path) {
		return nil, store.Errorf(store.RetCNotFound, "group %s does not exist", store.Clean(path))
	}
	return slices.Clone(s.members[store.Clean(path)]), nil
}

func (s *storeImpl) Extent(path string) ([]uint64, dtype.Kind, error) {
	d, err := s.dataset(path)
	if err != nil {
		return nil, dtype.Invalid, err
	}
	info, err := d.Info()
	if err != nil {
		return nil, dtype.Invalid, store.Errorf(store.RetCInternalError, "dataset %s: %v", store.Clean(path), err)
	}
	dims, kind, err := describe(info)
	if err != nil {
		return nil, dtype.Invalid, err
	}
	if len(dims) < 1 || len(dims) > 2 {
		return nil, dtype.Invalid, store.Errorf(store.RetCWrongType, "dataset %s has rank %d", store.Clean(path), len(dims))
	}
	return dims, kind, nil
}

func (s *storeImpl) ReadFull(path string) ([]byte, error) {
	dims, _, err := s.Extent(path)
	if err != nil {
		return nil, err
	}
	return s.ReadRows(path, 0, dims[0])
}

// ReadRows reads rows [off, off+n) with a hyperslab selection, so only the
// requested rows are loaded from the file.
func (s *storeImpl) ReadRows(path string, off, n uint64) ([]byte, error) {
	dims, kind, err := s.Extent(path)
	if err != nil {
		return nil, err
	}
	if off > dims[0] || n > dims[0]-off {
		return nil, store.Errorf(store.RetCInvalidOperation, "rows [%d, %d) out of range for dataset %s with %d rows", off, off+n, store.Clean(path), dims[0])
	}
	if n == 0 {
		return []byte{}, nil
	}

	start := make([]uint64, len(dims))
	count := slices.Clone(dims)
	start[0], count[0] = off, n

	d, _ := s.dataset(path)
	raw, err := d.ReadSlice(start, count)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "read %s: %v", store.Clean(path), err)
	}
	vals, ok := raw.([]float64)
	if !ok {
		return nil, store.Errorf(store.RetCWrongType, "read %s: unexpected value type %T", store.Clean(path), raw)
	}
	if uint64(len(vals)) != rowsLen(dims, n) {
		return nil, store.Errorf(store.RetCInternalError, "read %s: got %d values for %d rows", store.Clean(path), len(vals), n)
	}
	return encodeRows(store.Clean(path), kind, vals)
}

// rowsLen returns the number of values in n rows of a dataset
func rowsLen(dims []uint64, n uint64) uint64 {
	for _, d := range dims[1:] {
		n *= d
	}
	return n
}

func (s *storeImpl) Close() error {
	return s.file.Close()
}
