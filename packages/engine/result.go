package engine

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/validate"
)

// Outcome classifies a finished case.
//
//   - pass: request sent, every validation rule held
//   - fail: request sent, one or more rules did not hold
//   - error: the assertion logic never ran (resolution, transport,
//     extraction, or definition problem)
//   - skipped: the case was never dispatched
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
	OutcomeSkip  Outcome = "skipped"
)

// CaseResult is the immutable outcome of one case. Aggregation never
// mutates prior results.
type CaseResult struct {
	Name       string
	Module     string
	Outcome    Outcome
	SkipReason string
	Err        error
	Rules      []*validate.Result
	Extracted  map[string]any
	Duration   time.Duration
	Request    *httpx.Request
	Response   *httpx.Response
}

// Passed reports whether the case passed.
func (r *CaseResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// SuiteResult aggregates one suite run. Cases is indexed by declared
// order, not completion order.
type SuiteResult struct {
	Suite    string
	Path     string
	Cases    []*CaseResult
	Passed   int
	Failed   int
	Errors   int
	Skipped  int
	Aborted  bool
	Duration time.Duration
	Latency  *LatencyStats
}

// Ok reports whether every case passed or was skipped.
func (r *SuiteResult) Ok() bool {
	return r.Failed == 0 && r.Errors == 0
}

func (r *SuiteResult) tally() {
	r.Passed, r.Failed, r.Errors, r.Skipped = 0, 0, 0, 0
	for _, c := range r.Cases {
		switch c.Outcome {
		case OutcomePass:
			r.Passed++
		case OutcomeFail:
			r.Failed++
		case OutcomeError:
			r.Errors++
		case OutcomeSkip:
			r.Skipped++
		}
	}
}

// RunResult aggregates every suite of one run invocation.
type RunResult struct {
	Suites   []*SuiteResult
	Duration time.Duration
}

// Ok reports whether every suite passed.
func (r *RunResult) Ok() bool {
	for _, s := range r.Suites {
		if !s.Ok() {
			return false
		}
	}
	return true
}

// Totals sums case outcomes across suites.
func (r *RunResult) Totals() (passed, failed, errors, skipped int) {
	for _, s := range r.Suites {
		passed += s.Passed
		failed += s.Failed
		errors += s.Errors
		skipped += s.Skipped
	}
	return
}

// LatencyStats summarizes request durations for one suite.
type LatencyStats struct {
	Count int64
	Min   int64 // milliseconds
	Max   int64
	Mean  float64
	P50   int64
	P95   int64
	P99   int64
}

// computeLatency builds percentile stats from recorded durations.
func computeLatency(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return nil
	}
	hist := hdrhistogram.New(1, 10*time.Minute.Milliseconds(), 3)
	for _, d := range durations {
		ms := d.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		_ = hist.RecordValue(ms)
	}
	return &LatencyStats{
		Count: hist.TotalCount(),
		Min:   hist.Min(),
		Max:   hist.Max(),
		Mean:  hist.Mean(),
		P50:   hist.ValueAtQuantile(50),
		P95:   hist.ValueAtQuantile(95),
		P99:   hist.ValueAtQuantile(99),
	}
}
