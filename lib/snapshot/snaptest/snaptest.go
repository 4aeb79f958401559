// Package snaptest writes synthetic snapshot files for tests. Every value is
// derived from a seed, so two files written from the same Spec are equal and
// files with different seeds differ in every dataset.
package snaptest

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/ValentinKolb/dReshard/lib/dataset"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/store"
)

// Spec describes a synthetic snapshot file
type Spec struct {
	Seed uint64
	// Rows per particle block. Blocks without rows are absent.
	Rows map[schema.BlockKind]uint64
	// Blocks are the variant attribute blocks. The base blocks of their
	// groups are added automatically. ParamOptional and ParamNonDark
	// exclude each other.
	Blocks []schema.BlockKind
	// Kinds replaces the catalog element kind of the fields at the given paths
	Kinds map[string]dtype.Kind
}

// DarkMatter returns a spec with only dark matter particles and the base blocks
func DarkMatter(seed, rows uint64) Spec {
	return Spec{
		Seed:   seed,
		Rows:   map[schema.BlockKind]uint64{schema.BlockPartType1: rows},
		Blocks: []schema.BlockKind{schema.BlockConfigBase, schema.BlockParamBase},
	}
}

// Full returns a spec with every particle type and the variant blocks of a
// hydro run
func Full(seed, rows uint64) Spec {
	return Spec{
		Seed: seed,
		Rows: map[schema.BlockKind]uint64{
			schema.BlockPartType0: rows,
			schema.BlockPartType1: rows + 1,
			schema.BlockPartType3: rows / 2,
			schema.BlockPartType4: rows / 3,
			schema.BlockPartType5: 2,
		},
		Blocks: []schema.BlockKind{
			schema.BlockConfigNonDark, schema.BlockConfigLarge,
			schema.BlockParamExt1, schema.BlockParamExt2,
		},
	}
}

// Presence returns the blocks schema.Probe resolves for a file written from s
func (s Spec) Presence() schema.Presence {
	want := map[schema.BlockKind]bool{schema.BlockHeader: true}
	for _, k := range s.Blocks {
		want[k] = true
		switch k.Block().Group {
		case schema.ConfigGroup:
			want[schema.BlockConfigBase] = true
		case schema.ParamGroup:
			want[schema.BlockParamBase] = true
		}
	}
	if want[schema.BlockParamBase] && !want[schema.BlockParamOptional] {
		want[schema.BlockParamNonDark] = true
	}
	for k, rows := range s.Rows {
		if rows > 0 {
			want[k] = true
		}
	}

	var p schema.Presence
	for _, k := range schema.Kinds() {
		if want[k] {
			p = append(p, k)
		}
	}
	return p
}

// Write writes the snapshot described by s to w. w is not closed.
func Write(w store.IWriter, s Spec) error {
	p := s.Presence()
	if p.Has(schema.BlockParamOptional) && p.Has(schema.BlockParamNonDark) {
		return fmt.Errorf("spec selects both %s and %s", schema.BlockParamOptional, schema.BlockParamNonDark)
	}

	for _, g := range p.Groups() {
		if err := w.CreateGroup(g); err != nil {
			return err
		}
	}

	for _, b := range p.Blocks() {
		for _, name := range b.Attrs {
			if err := w.SetAttr(b.Group, s.attr(b.Kind, name)); err != nil {
				return err
			}
		}
		for _, f := range b.Fields {
			if err := s.writeField(w, b, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// Trailing returns the trailing dimensions of a particle field
func Trailing(field string) []uint64 {
	switch field {
	case "Coordinates", "Velocities", "CenterOfMass", "BirthPos", "BirthVel", "MagneticField":
		return []uint64{3}
	case "GFM_Metals":
		return []uint64{10}
	case "GFM_StellarPhotometrics":
		return []uint64{8}
	default:
		return nil
	}
}

func (s Spec) rng(key ...string) *rand.Rand {
	h := fnv.New64a()
	for _, k := range key {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewPCG(s.Seed, h.Sum64()))
}

func (s Spec) counts() (low, high []uint32) {
	low, high = make([]uint32, 6), make([]uint32, 6)
	for k, rows := range s.Rows {
		i := k.Block().PartIndex
		if i < 0 {
			continue
		}
		low[i], high[i] = uint32(rows), uint32(rows>>32)
	}
	return low, high
}

func (s Spec) attr(kind schema.BlockKind, name string) store.Attr {
	r := s.rng(kind.String(), name)
	low, high := s.counts()

	switch {
	case name == "NumPart_Total" || name == "NumPart_ThisFile":
		return store.NewArray(name, low)
	case name == "NumPart_Total_HighWord":
		return store.NewArray(name, high)
	case name == "MassTable":
		return store.NewArray(name, []float64{0, r.Float64(), 0, 0, 0, 0})
	case strings.HasPrefix(name, "Git_") || strings.HasSuffix(name, "File") ||
		strings.HasSuffix(name, "Path") || strings.HasSuffix(name, "Dir"):
		return store.NewString(name, fmt.Sprintf("%s-%d-%x", name, s.Seed, r.Uint32()))
	case strings.HasPrefix(name, "Flag_") || strings.ToUpper(name) == name:
		return store.NewScalar(name, int32(r.IntN(1000)))
	default:
		return store.NewScalar(name, r.NormFloat64()*1e3)
	}
}

func (s Spec) writeField(w store.IWriter, b schema.Block, f schema.FieldSpec) error {
	path := store.Join(b.Group, f.Name)
	dims := append([]uint64{s.Rows[b.Kind]}, Trailing(f.Name)...)
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}

	kind := f.Kind
	if k, ok := s.Kinds[path]; ok {
		kind = k
	}

	if err := w.CreateDataset(path, dims, kind); err != nil {
		return err
	}
	if err := w.WriteFull(path, Values(kind, n, s.rng(b.Group, f.Name))); err != nil {
		return err
	}
	if !f.Scaled {
		return nil
	}

	r := s.rng(path, "scaling")
	for _, name := range dataset.ScalingNames {
		if err := w.SetAttr(path, store.NewScalar(name, r.Float64()*4-2)); err != nil {
			return err
		}
	}
	return nil
}

// Values returns n random values of kind as a little-endian buffer
func Values(kind dtype.Kind, n uint64, r *rand.Rand) []byte {
	switch kind {
	case dtype.Float32:
		vals := make([]float32, n)
		for i := range vals {
			vals[i] = float32(r.NormFloat64() * 1e4)
		}
		return dtype.Encode(vals)
	case dtype.Float64:
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = r.NormFloat64() * 1e4
		}
		return dtype.Encode(vals)
	case dtype.Uint32:
		vals := make([]uint32, n)
		for i := range vals {
			vals[i] = r.Uint32()
		}
		return dtype.Encode(vals)
	case dtype.Uint64:
		vals := make([]uint64, n)
		for i := range vals {
			vals[i] = r.Uint64()
		}
		return dtype.Encode(vals)
	case dtype.Int32:
		vals := make([]int32, n)
		for i := range vals {
			vals[i] = r.Int32()
		}
		return dtype.Encode(vals)
	case dtype.Int64:
		vals := make([]int64, n)
		for i := range vals {
			vals[i] = r.Int64()
		}
		return dtype.Encode(vals)
	default:
		return nil
	}
}
