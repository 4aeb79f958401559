package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/db"
	"testing"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory())
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Keys", func(b *testing.B) {
		benchmarkKeys(b, factory())
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureSet)

	value := []byte("attribute value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("key-%d", i%10000), value, uint64(i))
	}
}

// Benchmark for Set with dataset sized values
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureSet)

	value := make([]byte, 1024*1024)
	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("dataset-%d", i%16), value, uint64(i))
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	for i := 0; i < 10000; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte("value"), 0)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := database.Get(fmt.Sprintf("key-%d", i%10000)); !ok {
			b.Fatal("key not found")
		}
	}
}

// Benchmark for prefix scans as used for group listings
func benchmarkKeys(b *testing.B, database db.KVDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureSet|db.FeatureScan)

	for g := 0; g < 6; g++ {
		for f := 0; f < 30; f++ {
			database.Set(fmt.Sprintf("g/PartType%d/field%d", g, f), nil, 0)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if keys := database.Keys(fmt.Sprintf("g/PartType%d/", i%6)); len(keys) != 30 {
			b.Fatalf("expected 30 keys, got %d", len(keys))
		}
	}
}

// Benchmark for Save and Load
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory()
	defer database.Close()
	requireFeature(b, database, db.FeatureSet|db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 1000; i++ {
		database.Set(fmt.Sprintf("key-%d", i), make([]byte, 1024), 0)
	}

	var saved bytes.Buffer
	if err := database.Save(&saved); err != nil {
		b.Fatal(err)
	}

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			if err := database.Save(&buf); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory()
		defer target.Close()
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(saved.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})
}
