package serializer

import (
	"errors"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"math"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Barrier token with just a type
		{MsgType: common.MsgTBarrier},

		// Scatter payload
		{
			MsgType: common.MsgTScatterv,
			Kind:    2,
			Count:   3,
			Value:   []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
		},

		// Shape header
		{
			MsgType: common.MsgTBcast,
			Ints:    []uint64{10, 3, 1 << 40},
		},

		// Failed status
		{
			MsgType: common.MsgTStatus,
			Err:     "dataset /PartType1/Coordinates: not found",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTGatherv,
			Kind:    4,
			Count:   1,
			Ints:    []uint64{7},
			Value:   []byte("12345678"),
			Err:     "partial",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, msg, result)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage tests that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			full, err := serializer.Serialize(testMessages()[4])
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			empty, err := serializer.Serialize(common.Message{MsgType: common.MsgTBarrier})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var msg common.Message
			if err := serializer.Deserialize(full, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if err := serializer.Deserialize(empty, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Value != nil || msg.Ints != nil || msg.Err != "" || msg.Count != 0 {
				t.Errorf("Expected empty message after reuse, got %+v", msg)
			}
		})
	}
}

// TestBinarySerializerTruncated tests that truncated frames are rejected
func TestBinarySerializerTruncated(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(testMessages()[4])
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	for cut := 0; cut < len(data)-1; cut++ {
		var msg common.Message
		if err := serializer.Deserialize(data[:cut], &msg); err == nil {
			t.Errorf("Expected error for frame truncated to %d of %d bytes", cut, len(data))
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

// TestBinaryFieldLength tests the limit of the 4 byte length prefixes
func TestBinaryFieldLength(t *testing.T) {
	if err := fieldLength("value", math.MaxUint32); err != nil {
		t.Errorf("Expected the largest length to pass, got %v", err)
	}
	if err := fieldLength("value", math.MaxUint32+1); !errors.Is(err, ErrFieldTooLarge) {
		t.Errorf("Expected ErrFieldTooLarge, got %v", err)
	}
	if err := fieldLength("ints", 1<<40); !errors.Is(err, ErrFieldTooLarge) {
		t.Errorf("Expected ErrFieldTooLarge for ints, got %v", err)
	}
}
