// Package util provides helpers shared by the KVDB engines and the
// benchmark reporting.
//
// The package contains:
//   - statistics: Stats and DistributionStats summaries and exact percentiles
//   - functions: the seeded FNV-1a string hash used for sharding and seed generation
package util
