package topology

import "fmt"

// BlockRange splits total items into parts contiguous blocks and returns the
// offset and length of block idx. The first total%parts blocks get one extra
// item. This is the only balanced split in dReshard: island membership, row
// distribution and parallel slices all use it.
func BlockRange(total uint64, parts, idx int) (offset, length uint64) {
	if parts <= 0 || idx < 0 || idx >= parts {
		return 0, 0
	}
	p := uint64(parts)
	i := uint64(idx)
	base := total / p
	rem := total % p

	length = base
	if i < rem {
		length++
	}
	offset = i*base + min(i, rem)
	return offset, length
}

// BlockCounts returns the length of every block of BlockRange(total, parts, *).
func BlockCounts(total uint64, parts int) []uint64 {
	counts := make([]uint64, parts)
	for i := range counts {
		_, counts[i] = BlockRange(total, parts, i)
	}
	return counts
}

// AssignIsland maps a global rank to the island (file) it works on. Islands are
// contiguous ranges of global ranks; the first worldSize%fileCount islands have
// one extra member.
func AssignIsland(rank, worldSize, fileCount int) (int, error) {
	if err := validate(rank, worldSize, fileCount); err != nil {
		return -1, err
	}

	base := worldSize / fileCount
	rem := worldSize % fileCount

	if rank < (base+1)*rem {
		return rank / (base + 1), nil
	}
	return rem + (rank-(base+1)*rem)/base, nil
}

// validate checks the arguments every rank already has, so all ranks fail in the same way.
func validate(rank, worldSize, fileCount int) error {
	if fileCount < 1 {
		return fmt.Errorf("file count must be at least 1 (got %d)", fileCount)
	}
	if worldSize < fileCount {
		return fmt.Errorf("world size %d is smaller than file count %d: every file needs at least one worker", worldSize, fileCount)
	}
	if rank < 0 || rank >= worldSize {
		return fmt.Errorf("rank %d out of range [0, %d)", rank, worldSize)
	}
	return nil
}
