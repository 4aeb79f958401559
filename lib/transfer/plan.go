package transfer

import (
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/topology"
)

// Plan holds the per-rank element counts and displacements of one scatter
// or gather. Displs is the exclusive prefix sum of SendCounts.
type Plan struct {
	SendCounts []uint64
	Displs     []uint64
}

// NewPlan splits rows rows of cols elements each over size ranks. Rank k gets
// topology.BlockRange(rows, size, k) rows, so remainder rows go to the lowest ranks.
func NewPlan(rows, cols uint64, size int) Plan {
	counts := topology.BlockCounts(rows, size)
	for i := range counts {
		counts[i] *= cols
	}
	return planFromCounts(counts)
}

// PlanFromRows builds the plan for ranks holding rows[k] rows of cols elements each
func PlanFromRows(rows []uint64, cols uint64) Plan {
	counts := make([]uint64, len(rows))
	for i, r := range rows {
		counts[i] = r * cols
	}
	return planFromCounts(counts)
}

func planFromCounts(counts []uint64) Plan {
	p := Plan{SendCounts: counts, Displs: make([]uint64, len(counts))}
	for i := 1; i < len(counts); i++ {
		p.Displs[i] = p.Displs[i-1] + counts[i-1]
	}
	return p
}

// Total returns the number of elements covered by the plan
func (p Plan) Total() uint64 {
	var total uint64
	for _, c := range p.SendCounts {
		total += c
	}
	return total
}

// Bytes converts the plan to byte counts and displacements
func (p Plan) Bytes(elemSize int) (counts, displs []int) {
	counts = make([]int, len(p.SendCounts))
	displs = make([]int, len(p.Displs))
	for i := range p.SendCounts {
		counts[i] = int(p.SendCounts[i]) * elemSize
		displs[i] = int(p.Displs[i]) * elemSize
	}
	return counts, displs
}

// Validate checks the plan invariants for a buffer of total elements
func (p Plan) Validate(total uint64) error {
	if len(p.SendCounts) != len(p.Displs) {
		return fmt.Errorf("plan has %d counts but %d displacements", len(p.SendCounts), len(p.Displs))
	}
	var next uint64
	for i := range p.SendCounts {
		if p.Displs[i] != next {
			return fmt.Errorf("displacement %d is %d, expected %d", i, p.Displs[i], next)
		}
		next += p.SendCounts[i]
	}
	if next != total {
		return fmt.Errorf("plan covers %d elements, expected %d", next, total)
	}
	return nil
}
