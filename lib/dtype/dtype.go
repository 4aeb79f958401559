package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// --------------------------------------------------------------------------
// Value Kinds
// --------------------------------------------------------------------------

// Kind identifies the element type of a dataset buffer or attribute.
type Kind uint8

const (
	Invalid Kind = iota
	Float32
	Float64
	Uint32
	Uint64
	Int32
	Int64
	String // attributes only
)

func (k Kind) String() string {
	switch k {
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case String:
		return "string"
	default:
		return "invalid"
	}
}

// Size returns the width of one element in bytes (0 for String and Invalid).
func (k Kind) Size() int {
	switch k {
	case Float32, Uint32, Int32:
		return 4
	case Float64, Uint64, Int64:
		return 8
	default:
		return 0
	}
}

// Numeric reports whether k can be used as a dataset element kind.
func (k Kind) Numeric() bool {
	return k.Size() > 0
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := Float32; k <= String; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("unknown value kind %q", s)
}

// --------------------------------------------------------------------------
// Generic helpers
// --------------------------------------------------------------------------

// Numeric is the set of Go types a dataset buffer can hold.
type Numeric interface {
	~float32 | ~float64 | ~uint32 | ~uint64 | ~int32 | ~int64
}

// KindOf returns the Kind matching the type parameter.
func KindOf[V Numeric]() Kind {
	var v V
	switch any(v).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		return Invalid
	}
}

// Encode writes vals as a flat little-endian buffer.
func Encode[V Numeric](vals []V) []byte {
	kind := KindOf[V]()
	size := kind.Size()
	out := make([]byte, len(vals)*size)
	for i, v := range vals {
		putValue(out[i*size:], kind, v)
	}
	return out
}

// Decode is the inverse of Encode. The buffer length must be a multiple
// of the element size.
func Decode[V Numeric](data []byte) ([]V, error) {
	kind := KindOf[V]()
	size := kind.Size()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a multiple of %s element size %d", len(data), kind, size)
	}
	out := make([]V, len(data)/size)
	for i := range out {
		out[i] = getValue[V](data[i*size:], kind)
	}
	return out, nil
}

func putValue[V Numeric](b []byte, kind Kind, v V) {
	switch kind {
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	case Uint32, Int32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Uint64, Int64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

func getValue[V Numeric](b []byte, kind Kind) V {
	switch kind {
	case Float32:
		return V(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return V(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case Uint32:
		return V(binary.LittleEndian.Uint32(b))
	case Int32:
		return V(int32(binary.LittleEndian.Uint32(b)))
	case Uint64:
		return V(binary.LittleEndian.Uint64(b))
	case Int64:
		return V(int64(binary.LittleEndian.Uint64(b)))
	}
	return 0
}
