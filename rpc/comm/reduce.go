package comm

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"math"
)

// Op is a reduction operator
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
)

func (o Op) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Number is the set of element types that can be reduced
type Number interface {
	uint64 | int64 | float64
}

func apply[V Number](op Op, a, b V) V {
	switch op {
	case OpMax:
		return max(a, b)
	case OpMin:
		return min(a, b)
	default:
		return a + b
	}
}

func toBits[V Number](v V) uint64 {
	switch x := any(v).(type) {
	case float64:
		return math.Float64bits(x)
	case int64:
		return uint64(x)
	case uint64:
		return x
	}
	return 0
}

func fromBits[V Number](b uint64) V {
	var zero V
	switch any(zero).(type) {
	case float64:
		return any(math.Float64frombits(b)).(V)
	case int64:
		return any(int64(b)).(V)
	default:
		return any(b).(V)
	}
}

func encodeNumbers[V Number](vals []V) []uint64 {
	res := make([]uint64, len(vals))
	for i, v := range vals {
		res[i] = toBits(v)
	}
	return res
}

func decodeNumbers[V Number](bits []uint64) []V {
	res := make([]V, len(bits))
	for i, b := range bits {
		res[i] = fromBits[V](b)
	}
	return res
}

// Reduce combines vals element-wise over all ranks with op. Root returns the
// result, other ranks return nil. All ranks must pass vectors of equal length.
func Reduce[V Number](ctx context.Context, c *Comm, root int, vals []V, op Op) ([]V, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.nextSeq()

	if c.rank != root {
		msg := common.NewControlMessage(common.MsgTReduce, encodeNumbers(vals)...)
		msg.Count = uint64(len(vals))
		return nil, c.send(ctx, root, seq, msg)
	}

	acc := append([]V{}, vals...)
	for src := 0; src < c.Size(); src++ {
		if src == root {
			continue
		}
		msg, err := c.recv(ctx, src, seq, common.MsgTReduce)
		if err != nil {
			return nil, err
		}
		if msg.Count != uint64(len(acc)) || len(msg.Ints) != len(acc) {
			return nil, fmt.Errorf("%w: rank %d reduces %d values, expected %d", ErrProtocol, src, len(msg.Ints), len(acc))
		}
		for i, v := range decodeNumbers[V](msg.Ints) {
			acc[i] = apply(op, acc[i], v)
		}
	}
	return acc, nil
}

// Allreduce combines vals element-wise over all ranks and returns the result on every rank
func Allreduce[V Number](ctx context.Context, c *Comm, vals []V, op Op) ([]V, error) {
	acc, err := Reduce(ctx, c, 0, vals, op)
	if err != nil {
		return nil, err
	}
	bits, err := c.BcastInts(ctx, 0, encodeNumbers(acc))
	if err != nil {
		return nil, err
	}
	if len(bits) != len(vals) {
		return nil, fmt.Errorf("%w: allreduce returned %d values, expected %d", ErrProtocol, len(bits), len(vals))
	}
	return decodeNumbers[V](bits), nil
}

// AllreduceOne is Allreduce for a single value
func AllreduceOne[V Number](ctx context.Context, c *Comm, v V, op Op) (V, error) {
	res, err := Allreduce(ctx, c, []V{v}, op)
	if err != nil {
		var zero V
		return zero, err
	}
	return res[0], nil
}
