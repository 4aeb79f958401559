package snapshot

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/collective"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("snapshot")

// Snapshot is the content of one snapshot file held by the ranks of an
// island: one record group per block kind, in catalog order
type Snapshot struct {
	Presence schema.Presence
	Groups   []*RecordGroup
}

// New creates an empty snapshot with a record group for every block kind.
// Blocks not listed in p stay empty.
func New(p schema.Presence) *Snapshot {
	s := &Snapshot{Presence: p}
	created := make(map[string]bool)
	for _, k := range schema.Kinds() {
		b := k.Block()
		present := p.Has(k)
		creates := present && !created[b.Group]
		if creates {
			created[b.Group] = true
		}
		s.Groups = append(s.Groups, NewRecordGroup(b, present, creates))
	}
	return s
}

// Group returns the record group of kind k
func (s *Snapshot) Group(k schema.BlockKind) *RecordGroup {
	return s.Groups[k]
}

// Bytes returns the number of field bytes held by this rank
func (s *Snapshot) Bytes() uint64 {
	var n uint64
	for _, g := range s.Groups {
		n += g.Bytes()
	}
	return n
}

// Clear releases every field buffer
func (s *Snapshot) Clear() {
	for _, g := range s.Groups {
		g.Clear()
	}
}

// Read fills the snapshot from r with the given strategy. With the serial
// strategy r is only used on the island root and may be nil elsewhere.
// Read is collective over island.
func (s *Snapshot) Read(ctx context.Context, island *comm.Comm, strategy common.Strategy, r store.IReader) error {
	for _, g := range s.Groups {
		var err error
		switch strategy {
		case common.StrategySerial:
			err = g.ReadSerialThenDistribute(ctx, island, r)
		case common.StrategyParallel:
			err = g.ReadParallel(ctx, island, r)
		default:
			return fmt.Errorf("invalid read strategy %q", strategy)
		}
		if err != nil {
			return err
		}
	}
	Logger.Debugf("rank %d/%d: read %d bytes (%s)", island.Rank(), island.Size(), s.Bytes(), strategy)
	return nil
}

// Write writes the snapshot through w with the given strategy. Write is
// collective over island; w must have been created on the same island.
func (s *Snapshot) Write(ctx context.Context, island *comm.Comm, strategy common.Strategy, w *collective.Writer) error {
	for _, g := range s.Groups {
		var err error
		switch strategy {
		case common.StrategySerial:
			err = g.WriteGatherThenSerial(ctx, island, w)
		case common.StrategyParallel:
			err = g.WriteParallel(ctx, island, w)
		default:
			return fmt.Errorf("invalid write strategy %q", strategy)
		}
		if err != nil {
			return err
		}
	}
	Logger.Debugf("rank %d/%d: wrote %s (%s)", island.Rank(), island.Size(), w.Path(), strategy)
	return nil
}
