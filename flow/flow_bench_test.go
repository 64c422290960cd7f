package flow_test

import (
	"testing"
	"time"

	"github.com/arborcore/flowgraph/flow"
	"github.com/jamiealquiza/tachymeter"
)

// TestCommitLatencyHistogram is not a correctness test: it drives a small
// diamond graph through repeated commits and records wall-clock latency
// with tachymeter, printing a percentile summary.
func TestCommitLatencyHistogram(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping latency histogram in -short mode")
	}

	x := flow.NewState(0)
	count := 0
	v := buildDiamond(x, &count)
	_ = v

	tm := tachymeter.New(&tachymeter.Config{Size: 200})
	for i := 0; i < 200; i++ {
		start := time.Now()
		x.SendUp(i)
		if err := flow.CommitTopological(x); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
		tm.AddTime(time.Since(start))
	}

	calc := tm.Calc()
	t.Logf("commit latency: avg=%s min=%s p75=%s p99=%s max=%s",
		calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max)
}
