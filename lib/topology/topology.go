package topology

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("topology")

// WorkerTopology places one rank of the world in its island. It is created
// once at start-up and never changes.
type WorkerTopology struct {
	GlobalRank int
	GlobalSize int
	FileCount  int
	IslandID   int
	IslandRank int
	IslandSize int

	// Island is the communicator of all ranks working on file IslandID
	Island *comm.Comm
}

// New computes the island of the caller and splits the world communicator
// into islands. The arguments are checked before any collective call, so
// invalid input makes every rank fail the same way without communication.
// New is collective over world.
func New(ctx context.Context, world *comm.Comm, fileCount int) (*WorkerTopology, error) {
	rank, size := world.Rank(), world.Size()

	island, err := AssignIsland(rank, size, fileCount)
	if err != nil {
		return nil, err
	}

	sub, err := world.Split(ctx, island, rank)
	if err != nil {
		return nil, fmt.Errorf("failed to split world into %d islands: %w", fileCount, err)
	}

	t := &WorkerTopology{
		GlobalRank: rank,
		GlobalSize: size,
		FileCount:  fileCount,
		IslandID:   island,
		IslandRank: sub.Rank(),
		IslandSize: sub.Size(),
		Island:     sub,
	}

	// The split must agree with the local computation
	_, wantSize := BlockRange(uint64(size), fileCount, island)
	if uint64(t.IslandSize) != wantSize {
		return nil, fmt.Errorf("island %d has %d members, expected %d", island, t.IslandSize, wantSize)
	}

	Logger.Debugf("rank %d/%d: %s", rank, size, t)
	return t, nil
}

// IsIslandRoot reports whether the caller is rank 0 of its island
func (t *WorkerTopology) IsIslandRoot() bool {
	return t.IslandRank == 0
}

// IsGlobalRoot reports whether the caller is rank 0 of the world
func (t *WorkerTopology) IsGlobalRoot() bool {
	return t.GlobalRank == 0
}

func (t *WorkerTopology) String() string {
	return fmt.Sprintf("island %d/%d rank %d/%d", t.IslandID, t.FileCount, t.IslandRank, t.IslandSize)
}
