// Package db provides the key-value engine interface the snapshot container
// format is built on.
//
// The package focuses on:
//   - A unified interface for key-value operations, including in-place range
//     writes and range reads used for row slabs of datasets
//   - Feature discovery through capability flags
//   - Deterministic persistence (Save writes entries in key order)
//
// Key Components:
//
//   - KVDB Interface: The core interface that all engines must satisfy.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     advertise through SupportsFeature.
//
//   - Database Information: DatabaseInfo reports size estimates, the number of
//     keys and implementation-specific metadata.
//
// Note on Write Indices:
//   - Every write carries a write-index that serves as a logical timestamp.
//     An entry is only replaced by a write with an equal or greater index, and
//     the database's own index only increases.
//
// Related Packages:
//
// The engines/maple package provides a sharded in-memory implementation with
// binary persistence. The testing package holds a conformance suite and
// benchmarks for any KVDB implementation.
package db
