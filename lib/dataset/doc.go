// Package dataset holds the value objects of a snapshot field.
//
// A Chunk stores its values as a tagged buffer: a dtype.Kind plus the
// little-endian bytes of the elements. Transport and storage only move
// bytes, scaled by Kind.Size(), so one implementation serves every value
// kind. NewChunk and Values convert from and to typed Go slices.
//
// Shape keeps the total extent of the field next to the local one. Only the
// row dimension is ever partitioned.
package dataset
