package serializer

import (
	"github.com/ValentinKolb/dReshard/rpc/common"
	"testing"
)

// benchmarkMessages returns envelopes shaped like the ones collectives exchange
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"BarrierToken": {
			MsgType: common.MsgTBarrier,
		},
		"ShapeHeader": {
			MsgType: common.MsgTBcast,
			Ints:    []uint64{2, 1_000_000, 3},
		},
		"RowCounts": {
			MsgType: common.MsgTGather,
			Kind:    4,
			Count:   64,
			Value:   make([]byte, 64*8),
		},
		"Chunk64KB": {
			MsgType: common.MsgTScatterv,
			Kind:    2,
			Count:   8 * 1024,
			Value:   make([]byte, 64*1024),
		},
		"Chunk4MB": {
			MsgType: common.MsgTScatterv,
			Kind:    1,
			Count:   1024 * 1024,
			Value:   make([]byte, 4*1024*1024),
		},
		"FailedStatus": {
			MsgType: common.MsgTStatus,
			Err:     "store error (code NotFound): dataset /PartType0/GFM_Metals does not exist",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.SetBytes(int64(len(msg.Value)))
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
				b.SetBytes(int64(len(msg.Value)))
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var out common.Message
					if err := serializer.Deserialize(data, &out); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}
