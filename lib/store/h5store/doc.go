// Package h5store reads snapshot files in HDF5 format through the pure Go
// scigolib/hdf5 library. It implements store.IReader only; snapshots are
// always written in the container format (see mstore).
//
// The hierarchy is indexed once on Open. Rows are read with hyperslab
// selections, so a rank only loads the rows it asks for. The library decodes
// dataset values to float64; they are converted back to the element kind of
// the dataset, and integers beyond 2^53 are reported as errors instead of
// being rounded. Datasets are returned as little-endian buffers.
package h5store
