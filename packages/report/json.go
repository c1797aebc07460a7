package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/restflow/restflow/packages/engine"
)

// JSONReport is the machine-readable run document.
type JSONReport struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

type JSONSuite struct {
	Name     string       `json:"name"`
	Path     string       `json:"path,omitempty"`
	Aborted  bool         `json:"aborted,omitempty"`
	Duration float64      `json:"duration"`
	Latency  *JSONLatency `json:"latency,omitempty"`
	Cases    []JSONCase   `json:"cases"`
}

type JSONLatency struct {
	Count int64   `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Mean  float64 `json:"mean"`
	P50   int64   `json:"p50"`
	P95   int64   `json:"p95"`
	P99   int64   `json:"p99"`
}

type JSONCase struct {
	Name       string         `json:"name"`
	Module     string         `json:"module,omitempty"`
	Outcome    string         `json:"outcome"`
	SkipReason string         `json:"skipReason,omitempty"`
	Duration   float64        `json:"duration"`
	Error      string         `json:"error,omitempty"`
	Request    *JSONRequest   `json:"request,omitempty"`
	Response   *JSONResponse  `json:"response,omitempty"`
	Rules      []JSONRule     `json:"rules,omitempty"`
	Extracted  map[string]any `json:"extracted,omitempty"`
}

type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type JSONResponse struct {
	StatusCode int     `json:"statusCode"`
	Status     string  `json:"status"`
	Duration   float64 `json:"duration"`
}

type JSONRule struct {
	Name     string `json:"name,omitempty"`
	Selector string `json:"selector"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// JSON renders the run as one indented JSON document.
type JSON struct {
	writer io.Writer
}

type JSONOption func(*JSON)

func NewJSON(opts ...JSONOption) *JSON {
	j := &JSON{writer: os.Stdout}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(j *JSON) {
		j.writer = w
	}
}

func (j *JSON) Format(run *engine.RunResult) error {
	passed, failed, errs, skipped := run.Totals()
	doc := JSONReport{
		Summary: JSONSummary{
			Total:   passed + failed + errs + skipped,
			Passed:  passed,
			Failed:  failed,
			Errors:  errs,
			Skipped: skipped,
		},
		Suites:   make([]JSONSuite, 0, len(run.Suites)),
		Duration: float64(run.Duration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	for _, suite := range run.Suites {
		js := JSONSuite{
			Name:     suite.Suite,
			Path:     suite.Path,
			Aborted:  suite.Aborted,
			Duration: float64(suite.Duration.Milliseconds()),
			Cases:    make([]JSONCase, 0, len(suite.Cases)),
		}
		if l := suite.Latency; l != nil {
			js.Latency = &JSONLatency{
				Count: l.Count, Min: l.Min, Max: l.Max, Mean: l.Mean,
				P50: l.P50, P95: l.P95, P99: l.P99,
			}
		}
		for _, cr := range suite.Cases {
			js.Cases = append(js.Cases, jsonCase(cr))
		}
		doc.Suites = append(doc.Suites, js)
	}

	encoder := json.NewEncoder(j.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func jsonCase(cr *engine.CaseResult) JSONCase {
	jc := JSONCase{
		Name:       cr.Name,
		Module:     cr.Module,
		Outcome:    string(cr.Outcome),
		SkipReason: cr.SkipReason,
		Duration:   float64(cr.Duration.Milliseconds()),
		Extracted:  cr.Extracted,
	}
	if cr.Err != nil {
		jc.Error = cr.Err.Error()
	}
	if cr.Request != nil {
		jc.Request = &JSONRequest{
			Method:  cr.Request.Method,
			URL:     cr.Request.URL,
			Headers: cr.Request.Headers,
		}
	}
	if cr.Response != nil {
		jc.Response = &JSONResponse{
			StatusCode: cr.Response.StatusCode,
			Status:     cr.Response.Status,
			Duration:   float64(cr.Response.Duration.Milliseconds()),
		}
	}
	for _, r := range cr.Rules {
		jc.Rules = append(jc.Rules, JSONRule{
			Name:     r.Name,
			Selector: r.Selector,
			Operator: r.Operator,
			Expected: r.Expected,
			Actual:   r.Actual,
			Passed:   r.Passed,
			Message:  r.Message,
			Warning:  r.Warning,
		})
	}
	return jc
}
