package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the envelope for every point-to-point payload exchanged by a
// collective operation. Which fields are used depends on the type of message.
type Message struct {
	// Type of the collective that produced this message
	MsgType MessageType `json:"msg_type"`

	Kind  uint8    `json:"kind,omitempty"`  // Element kind of Value (dtype.Kind)
	Count uint64   `json:"count,omitempty"` // Number of elements in Value
	Ints  []uint64 `json:"ints,omitempty"`  // Small control payloads (counts, dims, colors)
	Value []byte   `json:"value,omitempty"` // Bulk payload

	// Err is set when the sender aborts the collective and forwards its error
	Err string `json:"err,omitempty"`
}

// NewDataMessage creates a message carrying a bulk payload
func NewDataMessage(t MessageType, kind uint8, count uint64, value []byte) *Message {
	return &Message{
		MsgType: t,
		Kind:    kind,
		Count:   count,
		Value:   value,
	}
}

// NewControlMessage creates a message carrying only integers
func NewControlMessage(t MessageType, ints ...uint64) *Message {
	return &Message{
		MsgType: t,
		Ints:    ints,
	}
}

// NewStatusMessage creates a message that reports the outcome of a root-side operation
func NewStatusMessage(err error) *Message {
	msg := &Message{
		MsgType: MsgTStatus,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// String returns a JSON representation of the message for debugging
func (m *Message) String() string {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("Message{MsgType: %s, err: %v}", m.MsgType, err)
	}
	return string(b)
}

// --------------------------------------------------------------------------
// Message Types
// --------------------------------------------------------------------------

// MessageType names the collective a message belongs to. A receiver that gets
// a different type than the one it is waiting for has diverged from its peers.
type MessageType uint8

const (
	MsgTUnknown MessageType = iota
	MsgTBarrier
	MsgTBcast
	MsgTScatterv
	MsgTGatherv
	MsgTGather
	MsgTReduce
	MsgTExscan
	MsgTSplit
	MsgTStatus
)

func (t MessageType) String() string {
	switch t {
	case MsgTBarrier:
		return "Barrier"
	case MsgTBcast:
		return "Bcast"
	case MsgTScatterv:
		return "Scatterv"
	case MsgTGatherv:
		return "Gatherv"
	case MsgTGather:
		return "Gather"
	case MsgTReduce:
		return "Reduce"
	case MsgTExscan:
		return "Exscan"
	case MsgTSplit:
		return "Split"
	case MsgTStatus:
		return "Status"
	default:
		return "Unknown"
	}
}
