package comm

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
)

// Undefined is the color of ranks that do not join any sub-communicator
const Undefined = -1

// Split partitions the communicator into disjoint sub-communicators, one per
// color. Within a sub-communicator ranks are ordered by key, ties broken by
// their rank in c. Ranks passing Undefined get a nil communicator.
// Split is collective over c.
func (c *Comm) Split(ctx context.Context, color, key int) (*Comm, error) {
	if color < Undefined {
		return nil, fmt.Errorf("invalid color %d", color)
	}

	// Tag of the split, before the collectives below advance the sequence
	splitSeq := c.seq + 1

	table, err := c.AllgatherInts(ctx, []uint64{uint64(int64(color)), uint64(int64(key))})
	if err != nil {
		return nil, err
	}

	if color == Undefined {
		return nil, nil
	}

	type entry struct {
		key  int
		rank int
	}
	var group []entry
	for r, row := range table {
		if int(int64(row[0])) == color {
			group = append(group, entry{key: int(int64(row[1])), rank: r})
		}
	}
	sort.Slice(group, func(i, j int) bool {
		if group[i].key != group[j].key {
			return group[i].key < group[j].key
		}
		return group[i].rank < group[j].rank
	})

	sub := &Comm{
		transport:  c.transport,
		serializer: c.serializer,
		context:    subContext(c.context, splitSeq, color),
		members:    make([]int, len(group)),
	}
	for i, e := range group {
		sub.members[i] = c.members[e.rank]
		if e.rank == c.rank {
			sub.rank = i
		}
	}

	Logger.Debugf("%s: split color %d -> %s", c, color, sub)
	return sub, nil
}

// subContext derives the context id of a sub-communicator. It only depends
// on values every member agrees on.
func subContext(parent, seq uint64, color int) uint64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], parent)
	binary.BigEndian.PutUint64(buf[8:16], seq)
	binary.BigEndian.PutUint64(buf[16:24], uint64(int64(color)))

	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	id := h.Sum64()
	if id == worldContext || id == 0 {
		id += 2
	}
	return id
}
