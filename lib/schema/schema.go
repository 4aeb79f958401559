package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("schema")

// Group paths of the snapshot format
const (
	HeaderGroup = "/Header"
	ConfigGroup = "/Config"
	ParamGroup  = "/Parameters"
)

const (
	numPartTotal   = "NumPart_Total"
	numPartHighWrd = "NumPart_Total_HighWord"
)

// FieldSpec describes one particle field
type FieldSpec struct {
	Name   string
	Kind   dtype.Kind
	Scaled bool // the dataset carries the scaling attributes
}

// --------------------------------------------------------------------------
// Block Kinds
// --------------------------------------------------------------------------

// BlockKind names one fixed block of the snapshot format. A block is either a
// set of attributes of a group or the field list of a particle group.
type BlockKind uint8

const (
	BlockHeader BlockKind = iota
	BlockConfigBase
	BlockConfigLarge
	BlockConfigNonDark
	BlockConfigNonDarkLarge
	BlockParamOptional
	BlockParamBase
	BlockParamExt1
	BlockParamExt2
	BlockParamNonDark
	BlockPartType0
	BlockPartType1
	BlockPartType3
	BlockPartType4
	BlockPartType5
	numBlockKinds
)

// Block is the definition of a BlockKind
type Block struct {
	Kind  BlockKind
	Group string

	// Marker is the attribute of Group whose presence selects the block
	// (its absence when Inverse is set). Empty for unconditional blocks.
	Marker  string
	Inverse bool

	// PartIndex is the index into NumPart_Total of particle blocks, -1 otherwise
	PartIndex int

	Attrs  []string
	Fields []FieldSpec
}

// IsParticle reports whether the block is a particle group
func (b Block) IsParticle() bool {
	return b.PartIndex >= 0
}

func (b Block) String() string {
	return fmt.Sprintf("%s(%s)", b.Kind, b.Group)
}

var catalog = [numBlockKinds]Block{
	BlockHeader:             {Group: HeaderGroup, PartIndex: -1, Attrs: headerAttrs},
	BlockConfigBase:         {Group: ConfigGroup, PartIndex: -1, Attrs: configBaseAttrs},
	BlockConfigLarge:        {Group: ConfigGroup, PartIndex: -1, Marker: "RUNNING_SAFETY_FILE", Attrs: configLargeAttrs},
	BlockConfigNonDark:      {Group: ConfigGroup, PartIndex: -1, Marker: "ADAPTIVE_HYDRO_SOFTENING", Attrs: configNonDarkAttrs},
	BlockConfigNonDarkLarge: {Group: ConfigGroup, PartIndex: -1, Marker: "CHECKSUM_DEBUG", Attrs: configNonDarkLargeAttrs},
	BlockParamOptional:      {Group: ParamGroup, PartIndex: -1, Marker: "CellShapingFactor", Attrs: paramOptionalAttrs},
	BlockParamBase:          {Group: ParamGroup, PartIndex: -1, Attrs: paramBaseAttrs},
	BlockParamExt1:          {Group: ParamGroup, PartIndex: -1, Marker: "SofteningComovingType4", Attrs: paramExt1Attrs},
	BlockParamExt2:          {Group: ParamGroup, PartIndex: -1, Marker: "SofteningComovingType5", Attrs: paramExt2Attrs},
	BlockParamNonDark:       {Group: ParamGroup, PartIndex: -1, Marker: "CellShapingFactor", Inverse: true, Attrs: paramNonDarkAttrs},
	BlockPartType0:          {Group: "/PartType0", PartIndex: 0, Fields: partType0Fields},
	BlockPartType1:          {Group: "/PartType1", PartIndex: 1, Fields: partType1Fields},
	BlockPartType3:          {Group: "/PartType3", PartIndex: 3, Fields: partType3Fields},
	BlockPartType4:          {Group: "/PartType4", PartIndex: 4, Fields: partType4Fields},
	BlockPartType5:          {Group: "/PartType5", PartIndex: 5, Fields: partType5Fields},
}

var kindNames = [numBlockKinds]string{
	"Header", "ConfigBase", "ConfigLarge", "ConfigNonDark", "ConfigNonDarkLarge",
	"ParamOptional", "ParamBase", "ParamExt1", "ParamExt2", "ParamNonDark",
	"PartType0", "PartType1", "PartType3", "PartType4", "PartType5",
}

func init() {
	for k := range catalog {
		catalog[k].Kind = BlockKind(k)
	}
}

// Kinds returns every block kind in catalog order
func Kinds() []BlockKind {
	out := make([]BlockKind, numBlockKinds)
	for k := range out {
		out[k] = BlockKind(k)
	}
	return out
}

// Valid reports whether k is a known block kind
func (k BlockKind) Valid() bool {
	return k < numBlockKinds
}

// Block returns the definition of k. k must be valid.
func (k BlockKind) Block() Block {
	return catalog[k]
}

func (k BlockKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("BlockKind(%d)", uint8(k))
	}
	return kindNames[k]
}

// --------------------------------------------------------------------------
// Presence
// --------------------------------------------------------------------------

// Presence is the list of blocks present in a snapshot, in catalog order
type Presence []BlockKind

// Has reports whether k is present
func (p Presence) Has(k BlockKind) bool {
	for _, pk := range p {
		if pk == k {
			return true
		}
	}
	return false
}

// Blocks returns the definitions of the present blocks
func (p Presence) Blocks() []Block {
	out := make([]Block, len(p))
	for i, k := range p {
		out[i] = k.Block()
	}
	return out
}

// Groups returns the distinct group paths of the present blocks in order
func (p Presence) Groups() []string {
	var out []string
	for _, k := range p {
		g := k.Block().Group
		if len(out) == 0 || out[len(out)-1] != g {
			out = append(out, g)
		}
	}
	return out
}

func (p Presence) String() string {
	names := make([]string, len(p))
	for i, k := range p {
		names[i] = k.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Probe resolves the blocks present in the snapshot read by r. The header
// group is required. The config and parameter groups are optional; when a
// group is missing none of its blocks is present.
func Probe(r store.IReader) (Presence, error) {
	if !r.HasGroup(HeaderGroup) {
		return nil, fmt.Errorf("group %s: %w", HeaderGroup, store.ErrNotFound)
	}

	counts, err := particleCounts(r)
	if err != nil {
		return nil, err
	}

	var p Presence
	for _, b := range catalog {
		switch {
		case b.IsParticle():
			if counts[b.PartIndex] > 0 {
				p = append(p, b.Kind)
			}
		case !r.HasGroup(b.Group):
		case b.Marker == "" || r.HasAttr(b.Group, b.Marker) != b.Inverse:
			p = append(p, b.Kind)
		}
	}
	Logger.Debugf("resolved blocks %s", p)
	return p, nil
}

// particleCounts returns NumPart_Total per particle type. A non-zero high
// word marks a type as present even when the low word is zero.
func particleCounts(r store.IReader) ([]uint64, error) {
	a, err := r.Attr(HeaderGroup, numPartTotal)
	if err != nil {
		return nil, fmt.Errorf("header attribute %s: %w", numPartTotal, err)
	}
	low, err := store.Uints(a)
	if err != nil {
		return nil, fmt.Errorf("header attribute %s: %w", numPartTotal, err)
	}

	counts := make([]uint64, len(low))
	copy(counts, low)
	if r.HasAttr(HeaderGroup, numPartHighWrd) {
		a, err := r.Attr(HeaderGroup, numPartHighWrd)
		if err != nil {
			return nil, fmt.Errorf("header attribute %s: %w", numPartHighWrd, err)
		}
		high, err := store.Uints(a)
		if err != nil {
			return nil, fmt.Errorf("header attribute %s: %w", numPartHighWrd, err)
		}
		for i := 0; i < len(high) && i < len(counts); i++ {
			counts[i] |= high[i] << 32
		}
	}

	for _, b := range catalog {
		if b.IsParticle() && b.PartIndex >= len(counts) {
			return nil, store.Errorf(store.RetCWrongType, "header attribute %s has %d entries, need %d",
				numPartTotal, len(counts), b.PartIndex+1)
		}
	}
	return counts, nil
}

// Resolve probes on the root of group and broadcasts the result, so every
// rank holds the same Presence. r is only used on root and may be nil
// elsewhere. A probe failure is returned on every rank. Resolve is
// collective over group.
func Resolve(ctx context.Context, group *comm.Comm, r store.IReader) (Presence, error) {
	var p Presence
	var probeErr error
	if group.IsRoot() {
		p, probeErr = Probe(r)
	}
	if err := group.BcastStatus(ctx, 0, probeErr); err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot blocks: %w", err)
	}

	ints := make([]uint64, len(p))
	for i, k := range p {
		ints[i] = uint64(k)
	}
	ints, err := group.BcastInts(ctx, 0, ints)
	if err != nil {
		return nil, err
	}

	p = make(Presence, len(ints))
	for i, v := range ints {
		if v >= uint64(numBlockKinds) {
			return nil, fmt.Errorf("received invalid block kind %d", v)
		}
		p[i] = BlockKind(v)
	}
	return p, nil
}
