package bench

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dReshard/lib/db/util"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("bench")

// Phase names used by the reshape driver
const (
	PhaseSetup = "setup"
	PhaseRead  = "read"
	PhaseWrite = "write"
	PhaseTotal = "total"
)

// --------------------------------------------------------------------------
// Recorder
// --------------------------------------------------------------------------

// Recorder times the phases of one rank. Each phase is a timer in a
// registry owned by the recorder, so recorders of different ranks in the
// same process do not share state.
type Recorder struct {
	registry metrics.Registry
	mu       sync.Mutex
	phases   []string
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{registry: metrics.NewRegistry()}
}

func (r *Recorder) timer(phase string) metrics.Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.phases, phase) {
		r.phases = append(r.phases, phase)
	}
	return metrics.GetOrRegisterTimer(phase, r.registry)
}

// Time runs fn and adds its duration to phase. The duration is recorded
// even if fn fails. A nil recorder only runs fn.
func (r *Recorder) Time(phase string, fn func() error) error {
	if r == nil {
		return fn()
	}
	t := r.timer(phase)
	start := time.Now()
	err := fn()
	t.UpdateSince(start)
	return err
}

// Phases returns the recorded phases in the order of their first use
func (r *Recorder) Phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.phases)
}

func (r *Recorder) lookup(phase string) (metrics.Timer, bool) {
	t, ok := r.registry.Get(phase).(metrics.Timer)
	return t, ok
}

// Total returns the summed duration of phase (0 for unknown phases)
func (r *Recorder) Total(phase string) time.Duration {
	if t, ok := r.lookup(phase); ok {
		return time.Duration(t.Sum())
	}
	return 0
}

// Count returns how often phase was timed
func (r *Recorder) Count(phase string) int64 {
	if t, ok := r.lookup(phase); ok {
		return t.Count()
	}
	return 0
}

// Reset drops every recorded phase
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry.UnregisterAll()
	r.phases = nil
}

// --------------------------------------------------------------------------
// Report
// --------------------------------------------------------------------------

// PhaseReport summarizes the total duration of one phase over all ranks
type PhaseReport struct {
	Phase string
	Ranks int
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	// Stats of the per-rank durations in seconds
	Stats util.Stats
}

func (p PhaseReport) String() string {
	return fmt.Sprintf("%-8s min %-12s max %-12s mean %-12s stddev %.6fs",
		p.Phase, p.Min, p.Max, p.Mean, p.Stats.StdDeviation)
}

// Report reduces the phase totals of every rank of world. The phase list of
// rank 0 is used, so ranks that skipped a phase report zero for it. Report
// is collective over world.
func (r *Recorder) Report(ctx context.Context, world *comm.Comm) ([]PhaseReport, error) {
	list, err := world.BcastBytes(ctx, 0, []byte(strings.Join(r.Phases(), "\n")))
	if err != nil {
		return nil, err
	}
	var phases []string
	if len(list) > 0 {
		phases = strings.Split(string(list), "\n")
	}

	secs := make([]float64, len(phases))
	for i, p := range phases {
		secs[i] = r.Total(p).Seconds()
	}

	mins, err := comm.Allreduce(ctx, world, secs, comm.OpMin)
	if err != nil {
		return nil, err
	}
	maxs, err := comm.Allreduce(ctx, world, secs, comm.OpMax)
	if err != nil {
		return nil, err
	}
	sums, err := comm.Allreduce(ctx, world, secs, comm.OpSum)
	if err != nil {
		return nil, err
	}

	bits := make([]uint64, len(secs))
	for i, s := range secs {
		bits[i] = math.Float64bits(s)
	}
	all, err := world.AllgatherInts(ctx, bits)
	if err != nil {
		return nil, err
	}

	reports := make([]PhaseReport, len(phases))
	for i, p := range phases {
		perRank := make([]float64, len(all))
		for rank, b := range all {
			perRank[rank] = math.Float64frombits(b[i])
		}
		reports[i] = PhaseReport{
			Phase: p,
			Ranks: world.Size(),
			Min:   seconds(mins[i]),
			Max:   seconds(maxs[i]),
			Mean:  seconds(sums[i] / float64(world.Size())),
			Stats: util.NewStats(perRank),
		}
	}
	return reports, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// --------------------------------------------------------------------------
// Prometheus
// --------------------------------------------------------------------------

// WritePrometheus writes the byte and row counters of this process in the
// Prometheus text format
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, false)
}
