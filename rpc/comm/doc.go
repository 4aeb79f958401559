// Package comm implements the collective operations the reshaping pipeline is
// built on: barrier, broadcast, scatter/gather with per-rank counts and
// displacements, reductions, exclusive scan and communicator split.
//
// Every collective is a fixed pattern of point-to-point messages over a
// transport.IPeerTransport. A Comm hands out one sequence number per
// collective and tags each message with (context, sequence), so messages of
// different collectives or communicators can never be confused. Payloads
// travel in a common.Message envelope encoded by the configured serializer;
// a receiver that finds a different message type than it expects returns
// ErrProtocol.
//
// Failure model:
//
//	Ranks fail stop. Within one process RunLocal cancels the shared context on
//	the first error. Operations that only root performs (file creation, serial
//	reads) end with BcastStatus, which turns root's error into ErrRemote on
//	every other rank, so all ranks leave the operation with an error together.
//
// Usage Example:
//
//	err := comm.RunLocal(ctx, 4, func(ctx context.Context, c *comm.Comm) error {
//		offset, err := c.Exscan(ctx, uint64(c.Rank()+1))
//		if err != nil {
//			return err
//		}
//		total, err := comm.AllreduceOne(ctx, c, uint64(c.Rank()+1), comm.OpSum)
//		...
//	})
package comm
