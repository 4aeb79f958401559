// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the KVDB interface contract
//     (write indices, range access, prefix scans, deterministic persistence)
//   - benchmark: Performance tests for the access patterns of the container format
//
// Example usage:
//
//	factory := func() db.KVDB {
//		return NewMyDatabase()
//	}
//
//	testing.RunKVDBTests(t, "MyDatabase", factory)
//	testing.RunKVDBBenchmarks(b, "MyDatabase", factory)
package testing
