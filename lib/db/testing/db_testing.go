package testing

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/dReshard/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("SaveDeterministic", func(t *testing.T) {
			testSaveDeterministic(t, factory)
		})

		t.Run("LoadCorrupt", func(t *testing.T) {
			testLoadCorrupt(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "/PartType0/Coordinates"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2, 2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("input")
	database.Set("copy-key", input, 3)
	input[0] = 'X'
	stored, _ := database.Get("copy-key")
	if !bytes.Equal(stored, []byte("input")) {
		t.Errorf("Set should copy the value, got %s", stored)
	}

	if database.WriteIdx() != 3 {
		t.Errorf("Expected write index 3, got %d", database.WriteIdx())
	}
}

func testStaleWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("key", []byte("new"), 10)
	database.Set("key", []byte("old"), 5)

	result, _ := database.Get("key")
	if !bytes.Equal(result, []byte("new")) {
		t.Errorf("Stale write overwrote value: got %s", result)
	}

	database.Delete("key", 9)
	if _, exists := database.Get("key"); !exists {
		t.Errorf("Stale delete removed the key")
	}

	database.SetWriteIdx(3)
	if database.WriteIdx() != 10 {
		t.Errorf("Write index decreased to %d", database.WriteIdx())
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("delete-key", []byte("value"), 1)
	database.Delete("delete-key", 2)

	if _, exists := database.Get("delete-key"); exists {
		t.Errorf("Expected key to be deleted")
	}

	// deleting a missing key is a no-op
	database.Delete("missing", 3)
	if database.Has("missing") {
		t.Errorf("Delete of a missing key created it")
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	if database.Has("has-key") {
		t.Errorf("Expected Has to return false for a missing key")
	}

	database.Set("has-key", nil, 1)
	if !database.Has("has-key") {
		t.Errorf("Expected Has to return true for a key with an empty value")
	}
}

func testKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	keys := []string{"g/PartType1/b", "g/PartType1/a", "g/PartType0/x", "a/Header", "g/PartType10/y"}
	for i, k := range keys {
		database.Set(k, nil, uint64(i))
	}

	got := database.Keys("g/PartType1/")
	if want := []string{"g/PartType1/a", "g/PartType1/b"}; !slices.Equal(got, want) {
		t.Errorf("Keys(prefix) = %v, want %v", got, want)
	}

	all := database.Keys("")
	if len(all) != len(keys) || !slices.IsSorted(all) {
		t.Errorf("Keys(\"\") = %v, want all keys sorted", all)
	}

	if got := database.Keys("missing/"); len(got) != 0 {
		t.Errorf("Expected no keys, got %v", got)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value

		database.Set(key, value, uint64(i))
	}

	// stale content of the target must be replaced
	database2.Set("stale", []byte("x"), 0)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}

	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		actualValue, exists := database2.Get(originalKeys[i])
		if !exists {
			t.Errorf("Key %s not found after Load", originalKeys[i])
			continue
		}
		if !bytes.Equal(actualValue, originalValues[i]) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", originalKeys[i], originalValues[i], actualValue)
		}
	}

	if database2.Has("stale") {
		t.Errorf("Load kept an entry that was not in the saved data")
	}
	if database2.WriteIdx() != uint64(numEntries-1) {
		t.Errorf("Expected write index %d after Load, got %d", numEntries-1, database2.WriteIdx())
	}
}

func testSaveDeterministic(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureSave)

	for i := 0; i < 200; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte{byte(i)}, 1)
	}
	for i := 199; i >= 0; i-- {
		database2.Set(fmt.Sprintf("key-%d", i), []byte{byte(i)}, 1)
	}

	var a, b bytes.Buffer
	if err := database.Save(&a); err != nil {
		t.Fatal(err)
	}
	if err := database2.Save(&b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("Equal contents produced different saved data")
	}
}

func testLoadCorrupt(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureLoad)

	if err := database.Load(bytes.NewReader([]byte("NOTADB\x00\x00\x01"))); err == nil {
		t.Errorf("Expected error for wrong magic number")
	}
	if err := database.Load(bytes.NewReader(nil)); err == nil {
		t.Errorf("Expected error for empty input")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue, 0)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	nilValueKey := "nil-value-key"
	database.Set(nilValueKey, nil, 0)

	result, exists = database.Get(nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	largeValueKey := "large-value-key"
	largeValue := make([]byte, 16*1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 251)
	}

	database.Set(largeValueKey, largeValue, 0)

	result, exists = database.Get(largeValueKey)
	if !exists {
		t.Errorf("Key for large value not found after Set")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value mismatch (got %d bytes)", len(result))
	}
}

func testConcurrent(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d/%d", w, i)
				database.Set(key, []byte(key), uint64(i))
				if v, ok := database.Get(key); !ok || string(v) != key {
					t.Errorf("Read-your-write failed for %s", key)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if info := database.GetInfo(); info.Keys != workers*perWorker {
		t.Errorf("Expected %d keys, info reports %d", workers*perWorker, info.Keys)
	}
}
