package dtype

import (
	"math"
	"reflect"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		got  Kind
		want Kind
	}{
		{"float32", KindOf[float32](), Float32},
		{"float64", KindOf[float64](), Float64},
		{"uint32", KindOf[uint32](), Uint32},
		{"uint64", KindOf[uint64](), Uint64},
		{"int32", KindOf[int32](), Int32},
		{"int64", KindOf[int64](), Int64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("KindOf = %s, want %s", tt.got, tt.want)
			}
		})
	}
}

// TestEncodeDecodeBits tests that float values keep their exact bit patterns
func TestEncodeDecodeBits(t *testing.T) {
	vals := []float32{0, -0, 1.5, float32(math.Inf(-1)), math.MaxFloat32, math.SmallestNonzeroFloat32}
	got, err := Decode[float32](Encode(vals))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i := range vals {
		if math.Float32bits(got[i]) != math.Float32bits(vals[i]) {
			t.Errorf("value %d: got bits %x, want %x", i, math.Float32bits(got[i]), math.Float32bits(vals[i]))
		}
	}

	ints := []int64{math.MinInt64, -1, 0, math.MaxInt64}
	gotInts, err := Decode[int64](Encode(ints))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(gotInts, ints) {
		t.Errorf("got %v, want %v", gotInts, ints)
	}
}

func TestDecodeRejectsPartialElement(t *testing.T) {
	if _, err := Decode[uint64](make([]byte, 12)); err == nil {
		t.Errorf("expected error for 12 byte buffer of u64")
	}
}

func TestParseKind(t *testing.T) {
	for k := Float32; k <= String; k++ {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %s, %v", k.String(), parsed, err)
		}
	}
	if _, err := ParseKind("f16"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}
