package bench

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dReshard/rpc/comm"
	vm "github.com/VictoriaMetrics/metrics"
)

func TestRecorderTime(t *testing.T) {
	rec := NewRecorder()

	errBoom := errors.New("boom")
	if err := rec.Time(PhaseRead, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := rec.Time(PhaseWrite, func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Errorf("Expected the error of fn, got %v", err)
	}
	_ = rec.Time(PhaseRead, func() error {
		time.Sleep(2 * time.Millisecond)
		return nil
	})

	if got := rec.Phases(); !slices.Equal(got, []string{PhaseRead, PhaseWrite}) {
		t.Errorf("Phases = %v", got)
	}
	if rec.Count(PhaseRead) != 2 || rec.Count(PhaseWrite) != 1 {
		t.Errorf("Counts = %d, %d", rec.Count(PhaseRead), rec.Count(PhaseWrite))
	}
	if rec.Total(PhaseRead) < 2*time.Millisecond {
		t.Errorf("Total(read) = %s, expected at least 2ms", rec.Total(PhaseRead))
	}
	if rec.Total("unknown") != 0 || rec.Count("unknown") != 0 {
		t.Errorf("Unknown phase has a value")
	}
	if got := rec.Phases(); len(got) != 2 {
		t.Errorf("Looking up a phase registered it: %v", got)
	}

	rec.Reset()
	if len(rec.Phases()) != 0 || rec.Count(PhaseRead) != 0 {
		t.Errorf("Reset kept phases")
	}
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	called := false
	if err := rec.Time(PhaseTotal, func() error { called = true; return nil }); err != nil || !called {
		t.Errorf("nil recorder did not run fn")
	}
}

func TestReport(t *testing.T) {
	const size = 4
	reports := make([][]PhaseReport, size)

	err := comm.RunLocal(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
		rec := NewRecorder()
		// rank r sleeps (r+1) ms in "work"; only rank 0 runs "extra"
		_ = rec.Time("work", func() error {
			time.Sleep(time.Duration(c.Rank()+1) * time.Millisecond)
			return nil
		})
		if c.IsRoot() {
			_ = rec.Time("extra", func() error { return nil })
		}
		var err error
		reports[c.Rank()], err = rec.Report(ctx, c)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	for rank := 1; rank < size; rank++ {
		if !slices.Equal(reports[rank], reports[0]) {
			t.Errorf("rank %d report differs from rank 0", rank)
		}
	}

	r := reports[0]
	if len(r) != 2 || r[0].Phase != "work" || r[1].Phase != "extra" {
		t.Fatalf("unexpected phases %v", r)
	}
	work := r[0]
	if work.Ranks != size {
		t.Errorf("Ranks = %d", work.Ranks)
	}
	if work.Min < time.Millisecond || work.Max < 4*time.Millisecond {
		t.Errorf("work min %s max %s", work.Min, work.Max)
	}
	if work.Min > work.Mean || work.Mean > work.Max {
		t.Errorf("mean %s outside [%s, %s]", work.Mean, work.Min, work.Max)
	}
	if work.Stats.StdDeviation <= 0 || work.Stats.MinMaxRatio >= 1 {
		t.Errorf("Stats = %+v", work.Stats)
	}
	if r[1].Min != 0 {
		t.Errorf("ranks without the extra phase should report 0, min is %s", r[1].Min)
	}
	if !strings.Contains(work.String(), "work") {
		t.Errorf("String() = %q", work.String())
	}
}

func TestWritePrometheus(t *testing.T) {
	vm.GetOrCreateCounter(`dreshard_bench_test_total{op="x"}`).Add(3)

	var buf bytes.Buffer
	WritePrometheus(&buf)
	if !strings.Contains(buf.String(), `dreshard_bench_test_total{op="x"} 3`) {
		t.Errorf("counter missing from output:\n%s", buf.String())
	}
}
