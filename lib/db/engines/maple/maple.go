package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/db"
	"github.com/ValentinKolb/dReshard/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dReshard/lib/db/util"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version
	maxKeyLen    = 1 << 16       // Longest key accepted by Load
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for the shard hash
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical timestamp
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards < 1 {
		opts.NumShards = runtime.NumCPU()
	}

	newDB := &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
	}
	newDB.shards = newShards(opts.NumShards)

	return newDB
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	return shards
}

// shardFor returns the shard responsible for a key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) shardFor(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, maple.seed), maple.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key, value, and currentIndex.
// If the key already exists, the old value is overwritten unless the stored
// entry has a greater write index.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIndex uint64) {
	maple.SetWriteIdx(writeIndex)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && writeIndex < old.Index {
			return old, false // stale writes are ignored
		}
		return internal.Entry{Value: valueCopy, Index: writeIndex}, false
	})
}

// Delete removes an entry with the specified key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIndex uint64) {
	maple.SetWriteIdx(writeIndex)

	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && writeIndex < old.Index {
			return old, false
		}
		return old, true
	})
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	e, ok := maple.shardFor(key).Data.Load(key)
	if !ok {
		return nil, false
	}
	data := make([]byte, len(e.Value))
	copy(data, e.Value)
	return data, true
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) bool {
	_, ok := maple.shardFor(key).Data.Load(key)
	return ok
}

// Keys returns all keys with the given prefix in ascending order.
//
// Thread-safety: This method is thread-safe. Keys written concurrently may or may not be included.
func (maple *mapleImpl) Keys(prefix string) []string {
	var keys []string
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, _ internal.Entry) bool {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return true
		})
	}
	sort.Strings(keys)
	return keys
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer.
//
// Format (little endian):
//
//	magic(8) version(1) count(8) { keyLen(4) key index(8) valueLen(8) value }*
//
// Thread-safety: Concurrent writes during Save may or may not be included.
// Save takes a copy of every entry before writing.
func (maple *mapleImpl) Save(w io.Writer) error {
	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Snapshot all entries in key order
	type entryToSave struct {
		key   string
		entry internal.Entry
	}
	var entries []entryToSave
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			value := make([]byte, len(entry.Value))
			copy(value, entry.Value)
			entries = append(entries, entryToSave{key, internal.Entry{Value: value, Index: entry.Index}})
			return true
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write maple version
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}

	// Write total data entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		// Write key
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}

		// Write write index
		if err := binary.Write(bw, binary.LittleEndian, item.entry.Index); err != nil {
			return err
		}

		// Write value
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(item.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// Load restores a database from the reader, replacing the current content.
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (maple *mapleImpl) Load(r io.Reader) error {

	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}

	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}

	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	// Read data entries count
	var dataCount uint64
	if err := binary.Read(br, binary.LittleEndian, &dataCount); err != nil {
		return err
	}

	shards := newShards(maple.numShards)
	var maxIndex uint64

	for i := uint64(0); i < dataCount; i++ {
		// Read key
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		if keyLen > maxKeyLen {
			return fmt.Errorf("entry %d: key length %d exceeds limit", i, keyLen)
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}
		key := string(keyBytes)

		// Read write index
		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		maxIndex = max(maxIndex, index)

		// Read value
		var valueLen uint64
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		shard := internal.GetShard(util.HashString(key, maple.seed), shards)
		shard.Data.Store(key, internal.Entry{Value: value, Index: index})
	}

	maple.shards = shards
	maple.currIndex.Store(0)
	maple.SetWriteIdx(maxIndex)

	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	wg := sync.WaitGroup{}
	wg.Add(len(maple.shards))

	shardSizes := make([]float64, len(maple.shards))
	valueSizes := make([][]float64, len(maple.shards))
	var totalBytes, totalKeys atomic.Int64

	// concurrently collect sizes of all shards
	for shardIndex, shard := range maple.shards {
		go func(i int, s *internal.Shard) {
			defer wg.Done()
			var bytes, keys int64
			s.Data.Range(func(key string, entry internal.Entry) bool {
				valueSizes[i] = append(valueSizes[i], float64(len(entry.Value)))
				bytes += int64(len(key) + len(entry.Value))
				keys++
				return true
			})
			shardSizes[i] = float64(keys)
			totalBytes.Add(bytes)
			totalKeys.Add(keys)
		}(shardIndex, shard)
	}

	wg.Wait()

	var sizes []float64
	for _, v := range valueSizes {
		sizes = append(sizes, v...)
	}

	// Metadata for this specific database implementation
	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		MedianValueSize   int                    `json:"median_value_size"`
		MaxValueSize      int                    `json:"max_value_size"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		MedianValueSize:   int(util.Percentile(sizes, 50)),
		MaxValueSize:      int(util.Percentile(sizes, 100)),
	}

	supportedFeatures := []db.Feature{
		db.FeatureSet, db.FeatureGet,
		db.FeatureDelete, db.FeatureHas, db.FeatureScan,
		db.FeatureSave, db.FeatureLoad,
	}

	entryOverhead := 20 // key length, index and value length in the saved format
	return db.DatabaseInfo{
		SizeBytes:         int(totalBytes.Load()) + int(totalKeys.Load())*entryOverhead,
		Keys:              int(totalKeys.Load()),
		DbType:            db.ImplMaple,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureScan |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close drops all entries
func (maple *mapleImpl) Close() error {
	maple.shards = newShards(maple.numShards)
	return nil
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
