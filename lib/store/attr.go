package store

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"slices"
)

// Attr is a tagged attribute value. Numeric values are stored as a flat
// little-endian buffer in Data; Dims is nil for scalars. String attributes
// carry their value in Str.
type Attr struct {
	Name string
	Kind dtype.Kind
	Dims []uint64
	Data []byte
	Str  string
}

// NewScalar creates a numeric scalar attribute
func NewScalar[V dtype.Numeric](name string, v V) Attr {
	return Attr{Name: name, Kind: dtype.KindOf[V](), Data: dtype.Encode([]V{v})}
}

// NewArray creates a rank-1 numeric attribute
func NewArray[V dtype.Numeric](name string, vals []V) Attr {
	return Attr{
		Name: name,
		Kind: dtype.KindOf[V](),
		Dims: []uint64{uint64(len(vals))},
		Data: dtype.Encode(vals),
	}
}

// NewString creates a string attribute
func NewString(name, s string) Attr {
	return Attr{Name: name, Kind: dtype.String, Str: s}
}

// Len returns the number of elements (1 for scalars and strings)
func (a Attr) Len() uint64 {
	if a.Kind == dtype.String || a.Dims == nil {
		return 1
	}
	n := uint64(1)
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// Validate checks that the buffer matches kind and dims
func (a Attr) Validate() error {
	if a.Name == "" {
		return NewError(RetCInvalidOperation, "attribute without name")
	}
	switch {
	case a.Kind == dtype.String:
		if a.Data != nil || a.Dims != nil {
			return Errorf(RetCWrongType, "string attribute %s carries numeric data", a.Name)
		}
	case a.Kind.Numeric():
		if want := a.Len() * uint64(a.Kind.Size()); uint64(len(a.Data)) != want {
			return Errorf(RetCInvalidOperation, "attribute %s: %d bytes for %d %s values", a.Name, len(a.Data), a.Len(), a.Kind)
		}
	default:
		return Errorf(RetCWrongType, "attribute %s: invalid kind %s", a.Name, a.Kind)
	}
	return nil
}

// Equal reports whether two attributes hold the same value bit for bit
func (a Attr) Equal(b Attr) bool {
	return a.Name == b.Name && a.Kind == b.Kind && a.Str == b.Str &&
		slices.Equal(a.Dims, b.Dims) && slices.Equal(a.Data, b.Data)
}

func (a Attr) String() string {
	if a.Kind == dtype.String {
		return fmt.Sprintf("%s=%q", a.Name, a.Str)
	}
	if a.Dims == nil {
		return fmt.Sprintf("%s[%s]", a.Name, a.Kind)
	}
	return fmt.Sprintf("%s[%s %v]", a.Name, a.Kind, a.Dims)
}

// Values decodes a numeric attribute. V must match the kind.
func Values[V dtype.Numeric](a Attr) ([]V, error) {
	if k := dtype.KindOf[V](); k != a.Kind {
		return nil, Errorf(RetCWrongType, "attribute %s holds %s values, not %s", a.Name, a.Kind, k)
	}
	return dtype.Decode[V](a.Data)
}

// Scalar decodes a numeric scalar attribute
func Scalar[V dtype.Numeric](a Attr) (V, error) {
	vals, err := Values[V](a)
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, Errorf(RetCWrongType, "attribute %s holds %d values, not a scalar", a.Name, len(vals))
	}
	return vals[0], nil
}

// Uints widens an integer attribute to uint64. Negative values are rejected.
func Uints(a Attr) ([]uint64, error) {
	switch a.Kind {
	case dtype.Uint32:
		return widen(Values[uint32](a))
	case dtype.Uint64:
		return Values[uint64](a)
	case dtype.Int32:
		return widen(Values[int32](a))
	case dtype.Int64:
		return widen(Values[int64](a))
	default:
		return nil, Errorf(RetCWrongType, "attribute %s holds %s values, not integers", a.Name, a.Kind)
	}
}

func widen[V int32 | int64 | uint32](vals []V, err error) ([]uint64, error) {
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(vals))
	for i, v := range vals {
		if v < 0 {
			return nil, Errorf(RetCWrongType, "negative value %d at index %d", v, i)
		}
		out[i] = uint64(v)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode serializes the attribute value (without its name):
//
//	kind(1) ndims(1) dims(8*ndims) payload
//
// where payload is Data for numeric kinds and Str for strings. Scalars
// are written with ndims 0.
func (a Attr) Encode() []byte {
	payload := a.Data
	if a.Kind == dtype.String {
		payload = []byte(a.Str)
	}
	out := make([]byte, 2+8*len(a.Dims)+len(payload))
	out[0] = byte(a.Kind)
	out[1] = byte(len(a.Dims))
	pos := 2
	for _, d := range a.Dims {
		binary.LittleEndian.PutUint64(out[pos:], d)
		pos += 8
	}
	copy(out[pos:], payload)
	return out
}

// DecodeAttr is the inverse of Attr.Encode
func DecodeAttr(name string, b []byte) (Attr, error) {
	if len(b) < 2 {
		return Attr{}, Errorf(RetCInternalError, "attribute %s: truncated header", name)
	}
	a := Attr{Name: name, Kind: dtype.Kind(b[0])}
	n := int(b[1])
	pos := 2
	if len(b) < pos+8*n {
		return Attr{}, Errorf(RetCInternalError, "attribute %s: truncated dimensions", name)
	}
	if n > 0 {
		a.Dims = make([]uint64, n)
		for i := range a.Dims {
			a.Dims[i] = binary.LittleEndian.Uint64(b[pos:])
			pos += 8
		}
	}
	if a.Kind == dtype.String {
		a.Str = string(b[pos:])
	} else {
		a.Data = slices.Clone(b[pos:])
	}
	return a, a.Validate()
}

// EncodeAttrs serializes a list of attributes:
//
//	n(4) { nameLen(2) name valueLen(4) value }*n
func EncodeAttrs(attrs []Attr) []byte {
	size := 4
	for _, a := range attrs {
		size += 6 + len(a.Name) + len(a.Encode())
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(attrs)))
	for _, a := range attrs {
		enc := a.Encode()
		out = binary.LittleEndian.AppendUint16(out, uint16(len(a.Name)))
		out = append(out, a.Name...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(enc)))
		out = append(out, enc...)
	}
	return out
}

// DecodeAttrs is the inverse of EncodeAttrs
func DecodeAttrs(b []byte) ([]Attr, error) {
	if len(b) < 4 {
		return nil, NewError(RetCInternalError, "attribute list: truncated count")
	}
	n := int(binary.LittleEndian.Uint32(b))
	pos := 4
	attrs := make([]Attr, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < pos+2 {
			return nil, Errorf(RetCInternalError, "attribute %d: truncated name length", i)
		}
		l := int(binary.LittleEndian.Uint16(b[pos:]))
		pos += 2
		if len(b) < pos+l+4 {
			return nil, Errorf(RetCInternalError, "attribute %d: truncated name", i)
		}
		name := string(b[pos : pos+l])
		pos += l
		l = int(binary.LittleEndian.Uint32(b[pos:]))
		pos += 4
		if len(b) < pos+l {
			return nil, Errorf(RetCInternalError, "attribute %s: truncated value", name)
		}
		a, err := DecodeAttr(name, b[pos:pos+l])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
		pos += l
	}
	if pos != len(b) {
		return nil, Errorf(RetCInternalError, "attribute list: %d trailing bytes", len(b)-pos)
	}
	return attrs, nil
}
