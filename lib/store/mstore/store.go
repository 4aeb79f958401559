package mstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/dReshard/lib/db"
	"github.com/ValentinKolb/dReshard/lib/db/engines/maple"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/afero"
)

// Ext is the file extension of container files
const Ext = "dsnap"

var writtenBytes = metrics.GetOrCreateCounter(`dreshard_store_bytes_total{op="write"}`)

// File header: magic(8) metadata offset(8) metadata length(8), little endian
const (
	magic      = "DSNAP\x00\x00\x02"
	headerSize = 24
)

// Key prefixes of the objects in the metadata KVDB. The path follows the
// prefix; attribute keys append "\x00" and the attribute name.
const (
	prefixGroup   = "g"
	prefixDataset = "d" // descriptor: kind(1) rank(1) offset(8) dims(8*rank)
	prefixAttr    = "a"
)

type storeImpl struct {
	db       db.KVDB
	index    atomic.Uint64
	file     afero.File
	path     string
	end      uint64 // end of the value region
	writable bool
	closed   atomic.Bool
}

// DBFactory creates the KVDB holding the container metadata
type DBFactory func() db.KVDB

// DefaultFactory creates a maple database with default options
func DefaultFactory() db.KVDB {
	return maple.NewMapleDB(nil)
}

// Create creates a new empty container at path. An existing file is
// replaced. Dataset values are written to the file as they arrive; the file
// becomes a valid container when the store is closed.
func Create(fs afero.Fs, path string) (store.IRegionWriter, error) {
	return CreateWith(fs, path, DefaultFactory)
}

// CreateWith is Create with a custom KVDB factory
func CreateWith(fs afero.Fs, path string, factory DBFactory) (store.IRegionWriter, error) {
	s := &storeImpl{db: factory(), path: path, writable: true, end: headerSize}
	if !s.db.SupportsFeature(db.FeatureSet | db.FeatureScan | db.FeatureSave) {
		return nil, store.NewError(store.RetCUnsupportedOperation, "database does not support the container operations")
	}

	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "create %s: %v", path, err)
	}
	// the header stays zero, and the file unreadable, until Close
	if _, err := f.WriteAt(make([]byte, headerSize), 0); err != nil {
		_ = f.Close()
		return nil, store.Errorf(store.RetCInternalError, "create %s: %v", path, err)
	}
	s.file = f

	s.db.Set(prefixGroup+"/", nil, s.incAndGetIndex())
	return s, nil
}

// Open opens an existing container read-only
func Open(fs afero.Fs, path string) (store.IReader, error) {
	return OpenWith(fs, path, DefaultFactory)
}

// OpenWith is Open with a custom KVDB factory
func OpenWith(fs afero.Fs, path string, factory DBFactory) (store.IReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.Errorf(store.RetCNotFound, "container %s does not exist", path)
		}
		return nil, store.Errorf(store.RetCInternalError, "open %s: %v", path, err)
	}

	s := &storeImpl{db: factory(), file: f, path: path}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.index.Store(s.db.WriteIdx())
	store.Logger.Debugf("opened container %s (%d objects)", path, s.db.GetInfo().Keys)
	return s, nil
}

// load reads the header and the metadata of an opened container
func (s *storeImpl) load() error {
	header := make([]byte, headerSize)
	if err := readAt(s.file, header, 0); err != nil || string(header[:8]) != magic {
		return store.Errorf(store.RetCWrongType, "%s is not a snapshot container", s.path)
	}
	s.end = binary.LittleEndian.Uint64(header[8:16])
	metaLen := binary.LittleEndian.Uint64(header[16:24])
	if s.end < headerSize {
		return store.Errorf(store.RetCWrongType, "%s has a corrupt header", s.path)
	}

	meta := make([]byte, metaLen)
	if err := readAt(s.file, meta, s.end); err != nil {
		return store.Errorf(store.RetCInternalError, "read metadata of %s: %v", s.path, err)
	}
	if err := s.db.Load(bytes.NewReader(meta)); err != nil {
		return store.Errorf(store.RetCInternalError, "load %s: %v", s.path, err)
	}
	if !s.db.Has(prefixGroup + "/") {
		return store.Errorf(store.RetCWrongType, "%s is not a snapshot container", s.path)
	}
	return nil
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Slab Writer
// --------------------------------------------------------------------------

type slabWriter struct {
	file afero.File
	path string
}

// OpenSlabs opens a container that is being created by another process for
// in-place row writes. Offsets come from the Region of the creating store.
func OpenSlabs(fs afero.Fs, path string) (store.ISlabWriter, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.Errorf(store.RetCNotFound, "container %s does not exist", path)
		}
		return nil, store.Errorf(store.RetCInternalError, "open %s: %v", path, err)
	}
	return &slabWriter{file: f, path: path}, nil
}

func (w *slabWriter) WriteSlab(offset uint64, data []byte) error {
	if offset < headerSize {
		return store.Errorf(store.RetCInvalidOperation, "%s: offset %d lies in the header", w.path, offset)
	}
	if _, err := w.file.WriteAt(data, int64(offset)); err != nil {
		return store.Errorf(store.RetCInternalError, "write %s at %d: %v", w.path, offset, err)
	}
	writtenBytes.Add(len(data))
	return nil
}

func (w *slabWriter) Close() error {
	return w.file.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

type descriptor struct {
	kind   dtype.Kind
	offset uint64 // file offset of the first value
	dims   []uint64
}

func (d descriptor) encode() []byte {
	out := make([]byte, 10+8*len(d.dims))
	out[0] = byte(d.kind)
	out[1] = byte(len(d.dims))
	binary.LittleEndian.PutUint64(out[2:], d.offset)
	for i, v := range d.dims {
		binary.LittleEndian.PutUint64(out[10+8*i:], v)
	}
	return out
}

func decodeDescriptor(b []byte) (descriptor, bool) {
	if len(b) < 10 || len(b) != 10+8*int(b[1]) || b[1] == 0 {
		return descriptor{}, false
	}
	d := descriptor{kind: dtype.Kind(b[0]), offset: binary.LittleEndian.Uint64(b[2:]), dims: make([]uint64, b[1])}
	for i := range d.dims {
		d.dims[i] = binary.LittleEndian.Uint64(b[10+8*i:])
	}
	return d, true
}

func (d descriptor) rowBytes() uint64 {
	n := uint64(d.kind.Size())
	for _, v := range d.dims[1:] {
		n *= v
	}
	return n
}

func (d descriptor) size() uint64 {
	return d.dims[0] * d.rowBytes()
}

func attrKey(path, name string) string {
	return prefixAttr + path + "\x00" + name
}

// readAt fills buf from offset off
func readAt(f afero.File, buf []byte, off uint64) error {
	n, err := f.ReadAt(buf, int64(off))
	if n == len(buf) && (err == nil || errors.Is(err, io.EOF)) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (s *storeImpl) checkOpen() error {
	if s.closed.Load() {
		return store.NewError(store.RetCInvalidOperation, "container is closed")
	}
	return nil
}

func (s *storeImpl) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.writable {
		return store.Errorf(store.RetCUnsupportedOperation, "container %s is opened read-only", s.path)
	}
	return nil
}

func (s *storeImpl) exists(path string) bool {
	return s.db.Has(prefixGroup+path) || s.db.Has(prefixDataset+path)
}

func (s *storeImpl) dataset(path string) (descriptor, error) {
	path = store.Clean(path)
	raw, ok := s.db.Get(prefixDataset + path)
	if !ok {
		if s.db.Has(prefixGroup + path) {
			return descriptor{}, store.Errorf(store.RetCWrongType, "%s is a group, not a dataset", path)
		}
		return descriptor{}, store.Errorf(store.RetCNotFound, "dataset %s does not exist", path)
	}
	d, ok := decodeDescriptor(raw)
	if !ok || d.offset < headerSize || d.offset+d.size() > s.end {
		return descriptor{}, store.Errorf(store.RetCInternalError, "dataset %s has a corrupt descriptor", path)
	}
	return d, nil
}

// checkRows validates a row range against a dataset and returns the byte range
func checkRows(path string, d descriptor, off, n uint64) (uint64, uint64, error) {
	if off > d.dims[0] || n > d.dims[0]-off {
		return 0, 0, store.Errorf(store.RetCInvalidOperation, "rows [%d, %d) out of range for dataset %s with %d rows", off, off+n, path, d.dims[0])
	}
	return off * d.rowBytes(), n * d.rowBytes(), nil
}

func (s *storeImpl) readValues(path string, start, length uint64) ([]byte, error) {
	data := make([]byte, length)
	if err := readAt(s.file, data, start); err != nil {
		return nil, store.Errorf(store.RetCInternalError, "dataset %s: %v", path, err)
	}
	return data, nil
}

func (s *storeImpl) writeValues(path string, start uint64, data []byte) error {
	if _, err := s.file.WriteAt(data, int64(start)); err != nil {
		return store.Errorf(store.RetCInternalError, "dataset %s: %v", path, err)
	}
	writtenBytes.Add(len(data))
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) HasGroup(path string) bool {
	return s.checkOpen() == nil && s.db.Has(prefixGroup+store.Clean(path))
}

func (s *storeImpl) HasDataset(path string) bool {
	return s.checkOpen() == nil && s.db.Has(prefixDataset+store.Clean(path))
}

func (s *storeImpl) HasAttr(path, name string) bool {
	return s.checkOpen() == nil && s.db.Has(attrKey(store.Clean(path), name))
}

func (s *storeImpl) Attr(path, name string) (store.Attr, error) {
	if err := s.checkOpen(); err != nil {
		return store.Attr{}, err
	}
	path = store.Clean(path)
	raw, ok := s.db.Get(attrKey(path, name))
	if !ok {
		return store.Attr{}, store.Errorf(store.RetCNotFound, "attribute %s of %s does not exist", name, path)
	}
	return store.DecodeAttr(name, raw)
}

func (s *storeImpl) AttrNames(path string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path = store.Clean(path)
	if !s.exists(path) {
		return nil, store.Errorf(store.RetCNotFound, "object %s does not exist", path)
	}
	prefix := attrKey(path, "")
	keys := s.db.Keys(prefix)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(k, prefix)
	}
	return names, nil
}

func (s *storeImpl) Members(path string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path = store.Clean(path)
	if !s.db.Has(prefixGroup + path) {
		return nil, store.Errorf(store.RetCNotFound, "group %s does not exist", path)
	}
	sub := strings.TrimSuffix(path, "/") + "/"
	var names []string
	for _, prefix := range []string{prefixGroup, prefixDataset} {
		for _, k := range s.db.Keys(prefix + sub) {
			child := strings.TrimPrefix(k, prefix)
			if store.IsChild(path, child) {
				names = append(names, store.Base(child))
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *storeImpl) Extent(path string) ([]uint64, dtype.Kind, error) {
	if err := s.checkOpen(); err != nil {
		return nil, dtype.Invalid, err
	}
	d, err := s.dataset(path)
	if err != nil {
		return nil, dtype.Invalid, err
	}
	return d.dims, d.kind, nil
}

func (s *storeImpl) ReadFull(path string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path = store.Clean(path)
	d, err := s.dataset(path)
	if err != nil {
		return nil, err
	}
	return s.readValues(path, d.offset, d.size())
}

// ReadRows reads only the requested rows from the value region
func (s *storeImpl) ReadRows(path string, off, n uint64) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path = store.Clean(path)
	d, err := s.dataset(path)
	if err != nil {
		return nil, err
	}
	start, length, err := checkRows(path, d, off, n)
	if err != nil {
		return nil, err
	}
	return s.readValues(path, d.offset+start, length)
}

func (s *storeImpl) CreateGroup(path string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path = store.Clean(path)
	if err := s.checkCreate(path); err != nil {
		return err
	}
	s.db.Set(prefixGroup+path, nil, s.incAndGetIndex())
	return nil
}

// CreateDataset reserves the values of the dataset at the end of the value
// region. The reserved range is zero filled.
func (s *storeImpl) CreateDataset(path string, dims []uint64, kind dtype.Kind) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path = store.Clean(path)
	if err := s.checkCreate(path); err != nil {
		return err
	}
	if !kind.Numeric() {
		return store.Errorf(store.RetCWrongType, "dataset %s: %s is not a dataset element kind", path, kind)
	}
	if len(dims) < 1 || len(dims) > 2 {
		return store.Errorf(store.RetCInvalidOperation, "dataset %s: rank %d not supported", path, len(dims))
	}

	d := descriptor{kind: kind, offset: s.end, dims: slices.Clone(dims)}
	if err := s.file.Truncate(int64(d.offset + d.size())); err != nil {
		return store.Errorf(store.RetCInternalError, "dataset %s: reserve %d bytes: %v", path, d.size(), err)
	}
	s.end = d.offset + d.size()
	s.db.Set(prefixDataset+path, d.encode(), s.incAndGetIndex())
	return nil
}

func (s *storeImpl) checkCreate(path string) error {
	if path == "/" || s.exists(path) {
		return store.Errorf(store.RetCInvalidOperation, "object %s already exists", path)
	}
	if parent := store.Parent(path); !s.db.Has(prefixGroup + parent) {
		return store.Errorf(store.RetCNotFound, "parent group %s of %s does not exist", parent, path)
	}
	return nil
}

func (s *storeImpl) SetAttr(path string, a store.Attr) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path = store.Clean(path)
	if !s.exists(path) {
		return store.Errorf(store.RetCNotFound, "object %s does not exist", path)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.db.Set(attrKey(path, a.Name), a.Encode(), s.incAndGetIndex())
	return nil
}

func (s *storeImpl) WriteFull(path string, data []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path = store.Clean(path)
	d, err := s.dataset(path)
	if err != nil {
		return err
	}
	if uint64(len(data)) != d.size() {
		return store.Errorf(store.RetCInvalidOperation, "dataset %s: %d bytes do not match shape %v of %s", path, len(data), d.dims, d.kind)
	}
	return s.writeValues(path, d.offset, data)
}

func (s *storeImpl) WriteRows(path string, off, n uint64, data []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path = store.Clean(path)
	d, err := s.dataset(path)
	if err != nil {
		return err
	}
	start, length, err := checkRows(path, d, off, n)
	if err != nil {
		return err
	}
	if uint64(len(data)) != length {
		return store.Errorf(store.RetCInvalidOperation, "dataset %s: %d bytes for %d rows of %d bytes", path, len(data), n, d.rowBytes())
	}
	return s.writeValues(path, d.offset+start, data)
}

// Region returns the value offset, dimensions and kind of the dataset at path
func (s *storeImpl) Region(path string) (uint64, []uint64, dtype.Kind, error) {
	if err := s.checkWritable(); err != nil {
		return 0, nil, dtype.Invalid, err
	}
	d, err := s.dataset(path)
	if err != nil {
		return 0, nil, dtype.Invalid, err
	}
	return d.offset, d.dims, d.kind, nil
}

// Close appends the metadata to a writable container, completes the header
// and releases the file and the database
func (s *storeImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer s.db.Close()
	if !s.writable {
		return s.file.Close()
	}

	var buf bytes.Buffer
	if err := s.db.Save(&buf); err != nil {
		_ = s.file.Close()
		return store.Errorf(store.RetCInternalError, "save %s: %v", s.path, err)
	}

	header := make([]byte, headerSize)
	copy(header, magic)
	binary.LittleEndian.PutUint64(header[8:16], s.end)
	binary.LittleEndian.PutUint64(header[16:24], uint64(buf.Len()))

	_, err := s.file.WriteAt(buf.Bytes(), int64(s.end))
	if err == nil {
		_, err = s.file.WriteAt(header, 0)
	}
	if cErr := s.file.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return store.Errorf(store.RetCInternalError, "write %s: %v", s.path, err)
	}
	store.Logger.Debugf("wrote container %s (%d value bytes, %d metadata bytes)", s.path, s.end-headerSize, buf.Len())
	return nil
}
