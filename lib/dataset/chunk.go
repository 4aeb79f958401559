package dataset

import (
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"slices"
)

// ScalingNames are the attribute names of ScalingAttrs in storage order
var ScalingNames = []string{"a_scaling", "h_scaling", "length_scaling", "mass_scaling", "to_cgs", "velocity_scaling"}

// ScalingAttrs are the unit conversion coefficients attached to a particle
// field. They are replicated on every rank, never partitioned.
type ScalingAttrs struct {
	AScaling        float64
	HScaling        float64
	LengthScaling   float64
	MassScaling     float64
	ToCGS           float64
	VelocityScaling float64
}

// Values returns the coefficients in the order of ScalingNames
func (s *ScalingAttrs) Values() []float64 {
	return []float64{s.AScaling, s.HScaling, s.LengthScaling, s.MassScaling, s.ToCGS, s.VelocityScaling}
}

// SetValues is the inverse of Values
func (s *ScalingAttrs) SetValues(v []float64) error {
	if len(v) != len(ScalingNames) {
		return fmt.Errorf("expected %d scaling values, got %d", len(ScalingNames), len(v))
	}
	s.AScaling, s.HScaling, s.LengthScaling = v[0], v[1], v[2]
	s.MassScaling, s.ToCGS, s.VelocityScaling = v[3], v[4], v[5]
	return nil
}

// Chunk is the part of one field held by a rank: a flat row-major buffer of
// little-endian values. Element (r, c) is at index r*cols + c.
type Chunk struct {
	Name    string
	Kind    dtype.Kind
	Data    []byte
	Shape   Shape
	Scaling *ScalingAttrs // nil for fields without scaling attributes
}

// New creates an empty chunk. scaled selects whether the field carries scaling attributes.
func New(name string, kind dtype.Kind, scaled bool) *Chunk {
	ch := &Chunk{Name: name, Kind: kind}
	if scaled {
		ch.Scaling = &ScalingAttrs{}
	}
	return ch
}

// NewChunk creates a chunk holding the complete field vals with the given
// dimensions. Without dims the field is rank 1.
func NewChunk[V dtype.Numeric](name string, vals []V, dims ...uint64) (*Chunk, error) {
	if len(dims) == 0 {
		dims = []uint64{uint64(len(vals))}
	}
	ch := &Chunk{
		Name:  name,
		Kind:  dtype.KindOf[V](),
		Data:  dtype.Encode(vals),
		Shape: FullShape(dims...),
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}
	return ch, nil
}

// Values decodes the local buffer. V must match the kind of the chunk.
func Values[V dtype.Numeric](ch *Chunk) ([]V, error) {
	if k := dtype.KindOf[V](); k != ch.Kind {
		return nil, fmt.Errorf("field %s holds %s values, not %s", ch.Name, ch.Kind, k)
	}
	return dtype.Decode[V](ch.Data)
}

// ElemSize returns the width of one element in bytes
func (c *Chunk) ElemSize() int {
	return c.Kind.Size()
}

// RowBytes returns the number of bytes of one row
func (c *Chunk) RowBytes() int {
	return int(c.Shape.Cols()) * c.ElemSize()
}

// SetLocal replaces the local rows. The total shape is kept.
func (c *Chunk) SetLocal(rows uint64, data []byte) {
	c.Shape = c.Shape.WithLocalRows(rows)
	c.Data = data
}

// SetFull makes the chunk hold the complete field with the given dimensions
func (c *Chunk) SetFull(dims []uint64, data []byte) {
	c.Shape = FullShape(dims...)
	c.Data = data
}

// Clear drops the local rows and the buffer. The total shape is kept.
func (c *Chunk) Clear() {
	c.SetLocal(0, nil)
}

// Validate checks the shape and that the buffer matches it
func (c *Chunk) Validate() error {
	if !c.Kind.Numeric() {
		return fmt.Errorf("field %s: invalid element kind %s", c.Name, c.Kind)
	}
	if err := c.Shape.Validate(); err != nil {
		return fmt.Errorf("field %s: %v", c.Name, err)
	}
	want := c.Shape.Rows() * uint64(c.RowBytes())
	if uint64(len(c.Data)) != want {
		return fmt.Errorf("field %s: buffer holds %d bytes, shape %s needs %d", c.Name, len(c.Data), c.Shape, want)
	}
	return nil
}

// Clone returns a deep copy
func (c *Chunk) Clone() *Chunk {
	clone := &Chunk{
		Name: c.Name,
		Kind: c.Kind,
		Data: slices.Clone(c.Data),
		Shape: Shape{
			Total: slices.Clone(c.Shape.Total),
			Local: slices.Clone(c.Shape.Local),
		},
	}
	if c.Scaling != nil {
		s := *c.Scaling
		clone.Scaling = &s
	}
	return clone
}

func (c *Chunk) String() string {
	return fmt.Sprintf("%s[%s %s]", c.Name, c.Kind, c.Shape)
}
