// Package serializer encodes the common.Message envelopes that collective
// operations exchange. Every rank of a world must use the same serializer.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A flags byte marks which optional
//     fields follow, so control messages (barrier tokens, counts) stay a few bytes
//     long and bulk payloads are copied once. Recommended for production use.
//
//   - jsonSerializerImpl: JSON encoding. Bulk payloads become base64, which makes it
//     slow for large chunks but handy when debugging a diverging collective.
//
//   - gobSerializerImpl: Go's gob encoding.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
package serializer
