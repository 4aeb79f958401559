// Package maple implements an in-memory key-value database (KVDB) used as
// the engine of the snapshot container format.
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. Keys are
//     spread over shards by a seeded FNV-1a hash (util.HashString); each
//     shard is an xsync.MapOf keyed by the original string, so prefix scans
//     can return the stored keys. The caller supplies write indices; a write
//     with a smaller index than the stored entry is ignored.
//
// Persistence:
//
//	Save writes a header (magic number, version, entry count) followed by all
//	entries in ascending key order:
//
//	  keyLen(4) key index(8) valueLen(8) value
//
//	Sorting makes the output a function of the content only, so two
//	containers with equal content have byte-identical metadata. Load replaces
//	the current content.
package maple
