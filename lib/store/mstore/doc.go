// Package mstore implements the snapshot container format. Create returns a
// store.IRegionWriter and Open a store.IReader; the metadata of both lives in
// a db.KVDB (the maple engine by default).
//
// A container file has three parts:
//
//	header      magic(8) metadata offset(8) metadata length(8)
//	values      the values of every dataset, back to back in creation order
//	metadata    the saved KVDB
//
// Every object of the hierarchy is one entry of the metadata database:
//
//	g<path>                 group marker
//	d<path>                 dataset descriptor: kind, rank, value offset, dimensions
//	a<path>\x00<name>       attribute value (see store.Attr.Encode)
//
// CreateDataset reserves the value range of a dataset at the end of the
// value region, so its byte layout is fixed from then on. Rows are read and
// written in place with ReadAt and WriteAt; other processes write their own
// rows through OpenSlabs at the offset reported by Region. Close appends the
// metadata and completes the header. The file only depends on the content
// and the creation order, so equal snapshots produce equal files.
package mstore
