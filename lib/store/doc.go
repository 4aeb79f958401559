// Package store defines the hierarchical store used to read and write
// snapshot files: groups containing attributes and row-major datasets of
// rank 1 or 2, addressed by absolute slash separated paths.
//
// Key Components:
//
//   - IReader / IWriter: The read and write sides of a store. Readers can
//     list members and attributes and read whole datasets or row ranges;
//     writers create groups and datasets, set attributes and write whole
//     datasets or row ranges.
//
//   - Attr: A tagged attribute value (numeric kind with dimensions and a
//     little-endian buffer, or a string) with a compact binary encoding.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. Errors match the sentinels ErrNotFound,
//     ErrWrongType and ErrInvalid with errors.Is.
//
// Implementations:
//
//   - mstore: the container format, read/write, backed by the maple KVDB and
//     persisted through an afero filesystem.
//   - h5store: read-only access to HDF5 snapshot files.
//   - collective: wraps a writer so that all ranks of an island drive it
//     with collective calls while only the island root touches the file.
package store
