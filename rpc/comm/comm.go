package comm

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/serializer"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("comm")

var (
	// ErrProtocol is returned when a peer sends something this rank did not
	// expect. It means the ranks issued collectives in different orders.
	ErrProtocol = errors.New("collective protocol violation")

	// ErrRemote wraps an error that another rank reported through a status broadcast
	ErrRemote = errors.New("remote rank failed")
)

// worldContext is the context id of every world communicator
const worldContext uint64 = 1

// Comm is a communicator: an ordered group of ranks that issue the same
// sequence of collective operations. A Comm must only be used by one
// goroutine at a time.
type Comm struct {
	transport  transport.IPeerTransport
	serializer serializer.IRPCSerializer

	context uint64
	rank    int   // rank within this communicator
	members []int // members[i] is the transport rank of communicator rank i
	seq     uint64
}

// NewWorld creates the communicator of all ranks of a transport
func NewWorld(tr transport.IPeerTransport, ser serializer.IRPCSerializer) *Comm {
	members := make([]int, tr.Size())
	for i := range members {
		members[i] = i
	}
	return &Comm{
		transport:  tr,
		serializer: ser,
		context:    worldContext,
		rank:       tr.Rank(),
		members:    members,
	}
}

// Rank returns the rank of the caller within the communicator
func (c *Comm) Rank() int {
	return c.rank
}

// Size returns the number of ranks of the communicator
func (c *Comm) Size() int {
	return len(c.members)
}

// IsRoot reports whether the caller is rank 0
func (c *Comm) IsRoot() bool {
	return c.rank == 0
}

// GlobalRank returns the transport rank of communicator rank r
func (c *Comm) GlobalRank(r int) int {
	return c.members[r]
}

func (c *Comm) String() string {
	return fmt.Sprintf("comm[%x] rank %d/%d", c.context, c.rank, len(c.members))
}

// --------------------------------------------------------------------------
// Point-to-point helpers
// --------------------------------------------------------------------------

// nextSeq reserves the tag of the next collective
func (c *Comm) nextSeq() uint64 {
	c.seq++
	return c.seq
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= len(c.members) {
		return fmt.Errorf("root %d out of range for %s", root, c)
	}
	return nil
}

// send serializes msg and sends it to communicator rank dst
func (c *Comm) send(ctx context.Context, dst int, seq uint64, msg *common.Message) error {
	data, err := c.serializer.Serialize(*msg)
	if err != nil {
		return fmt.Errorf("failed to serialize %s message: %w", msg.MsgType, err)
	}
	tag := transport.Tag{Context: c.context, Seq: seq}
	if err := c.transport.Send(ctx, c.members[dst], tag, data); err != nil {
		return fmt.Errorf("%s: %s to rank %d: %w", c, msg.MsgType, dst, err)
	}
	return nil
}

// recv waits for the message of communicator rank src and checks its type
func (c *Comm) recv(ctx context.Context, src int, seq uint64, want common.MessageType) (*common.Message, error) {
	tag := transport.Tag{Context: c.context, Seq: seq}
	data, err := c.transport.Recv(ctx, c.members[src], tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %s from rank %d: %w", c, want, src, err)
	}

	msg := &common.Message{}
	if err := c.serializer.Deserialize(data, msg); err != nil {
		return nil, fmt.Errorf("%s: failed to deserialize %s from rank %d: %w", c, want, src, err)
	}

	if msg.MsgType != want {
		return nil, fmt.Errorf("%w: %s expected %s from rank %d, got %s", ErrProtocol, c, want, src, msg.MsgType)
	}
	return msg, nil
}
