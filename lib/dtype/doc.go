// Package dtype defines the closed set of element kinds a snapshot field can
// carry (f32, f64, u32, u64, i32, i64, plus string for attributes) and the
// little-endian codec used to move typed values through flat byte buffers.
//
// Datasets are stored as tagged byte buffers everywhere in dReshard; the generic
// Encode/Decode helpers are the only place where a Go element type is attached
// to those bytes.
package dtype
