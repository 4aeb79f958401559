package snapshot

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/bench"
	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/lib/store/collective"
	"github.com/ValentinKolb/dReshard/lib/store/mstore"
	"github.com/ValentinKolb/dReshard/lib/topology"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/spf13/afero"
)

// Options of one reshape run
type Options struct {
	common.ReshapeConfig

	// Fs holds the containers and the output directory
	Fs afero.Fs
	// Recorder times the phases of the run (optional)
	Recorder *bench.Recorder
}

func (o *Options) validate() error {
	if o.Fs == nil {
		return fmt.Errorf("no filesystem")
	}
	if o.InputDir == "" || o.OutputDir == "" {
		return fmt.Errorf("input and output directory are required")
	}
	for _, s := range []common.Strategy{o.ReadStrategy, o.WriteStrategy} {
		if _, err := common.ParseStrategy(string(s)); err != nil {
			return err
		}
	}
	return nil
}

// Result describes the work of one rank
type Result struct {
	Topology    *topology.WorkerTopology
	Source      string
	Destination string
	Presence    schema.Presence
	// Bytes is the number of field bytes this rank held after the read
	Bytes uint64
}

// Reshape copies every file of the input set into the output directory with
// the ranks of world. The ranks are split into one island per file; each
// island reads its file with opts.ReadStrategy and writes
// <out>/<base>.<island>.dsnap with opts.WriteStrategy. Reshape is collective
// over world and returns an error on every rank if any rank failed.
func Reshape(ctx context.Context, world *comm.Comm, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	err := opts.Recorder.Time(bench.PhaseTotal, func() error {
		return reshape(ctx, world, opts, res)
	})
	if err != nil {
		return nil, fmt.Errorf("rank %d/%d: %w", world.Rank(), world.Size(), err)
	}
	return res, nil
}

func reshape(ctx context.Context, world *comm.Comm, opts Options, res *Result) error {
	rec := opts.Recorder

	var src Source
	err := rec.Time(bench.PhaseSetup, func() error {
		var err error
		if src, err = ShareSource(ctx, world, opts.Fs, opts.InputDir); err != nil {
			return err
		}
		if res.Topology, err = topology.New(ctx, world, src.Count); err != nil {
			return err
		}
		return prepareOutput(ctx, world, opts.Fs, opts.OutputDir)
	})
	if err != nil {
		return err
	}

	topo := res.Topology
	if topo.IsGlobalRoot() {
		Logger.Infof("reshaping %s with %d ranks (read %s, write %s)",
			src, world.Size(), opts.ReadStrategy, opts.WriteStrategy)
	}
	res.Source = src.Path(topo.IslandID)
	res.Destination = FilePath(opts.OutputDir, src.Base, topo.IslandID, mstore.Ext)

	var snap *Snapshot
	err = rec.Time(bench.PhaseRead, func() error {
		var err error
		snap, err = readIsland(ctx, topo.Island, opts.ReadStrategy, opts.Fs, res.Source)
		return err
	})
	if err != nil {
		return err
	}
	res.Presence = snap.Presence
	res.Bytes = snap.Bytes()

	err = rec.Time(bench.PhaseWrite, func() error {
		return writeIsland(ctx, topo.Island, opts.WriteStrategy, opts.Fs, res.Destination, snap)
	})
	snap.Clear()
	if err != nil {
		return err
	}

	Logger.Debugf("%s: %s -> %s", topo, res.Source, res.Destination)
	return nil
}

// prepareOutput creates dir on rank 0 of world. Every rank returns the
// outcome after all ranks passed a barrier.
func prepareOutput(ctx context.Context, world *comm.Comm, fs afero.Fs, dir string) error {
	var mkErr error
	if world.IsRoot() {
		mkErr = fs.MkdirAll(dir, 0o755)
	}
	if err := world.BcastStatus(ctx, 0, mkErr); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return world.Barrier(ctx)
}

// readIsland opens the source file of the island and reads it. With the
// parallel strategy every rank opens the file, otherwise only the root.
func readIsland(ctx context.Context, island *comm.Comm, strategy common.Strategy, fs afero.Fs, path string) (*Snapshot, error) {
	open := func() (store.IReader, error) {
		return Open(fs, path)
	}

	var r store.IReader
	var err error
	if strategy == common.StrategyParallel {
		r, err = collective.OpenReaders(ctx, island, path, open)
	} else {
		var oErr error
		if island.IsRoot() {
			r, oErr = open()
		}
		err = island.BcastStatus(ctx, 0, oErr)
	}
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if r != nil {
			_ = r.Close()
		}
	}()

	p, err := schema.Resolve(ctx, island, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	snap := New(p)
	if err := snap.Read(ctx, island, strategy, r); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// writeIsland writes snap into a new container at path
func writeIsland(ctx context.Context, island *comm.Comm, strategy common.Strategy, fs afero.Fs, path string, snap *Snapshot) error {
	w, err := collective.Create(ctx, island, path, func() (store.IWriter, error) {
		return mstore.Create(fs, path)
	}, func() (store.ISlabWriter, error) {
		return mstore.OpenSlabs(fs, path)
	})
	if err != nil {
		return err
	}

	if err := snap.Write(ctx, island, strategy, w); err != nil {
		w.Abort()
		return fmt.Errorf("%s: %w", path, err)
	}
	return w.Close(ctx)
}
