package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restflow/restflow/packages/engine"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/validate"
)

func sampleRun() *engine.RunResult {
	suite := &engine.SuiteResult{
		Suite:    "users",
		Path:     "suites/users.yaml",
		Duration: 120 * time.Millisecond,
		Passed:   1,
		Failed:   1,
		Errors:   1,
		Skipped:  1,
		Cases: []*engine.CaseResult{
			{
				Name:     "create user",
				Module:   "auth",
				Outcome:  engine.OutcomePass,
				Duration: 30 * time.Millisecond,
				Response: &httpx.Response{StatusCode: 201, Status: "201 Created", Duration: 28 * time.Millisecond},
				Rules: []*validate.Result{
					{Selector: "status", Operator: "eq", Expected: 201, Actual: 201, Passed: true},
				},
				Extracted: map[string]any{"uid": "u42"},
			},
			{
				Name:     "fetch user",
				Module:   "auth",
				Outcome:  engine.OutcomeFail,
				Duration: 25 * time.Millisecond,
				Response: &httpx.Response{StatusCode: 404, Status: "404 Not Found", Duration: 20 * time.Millisecond},
				Rules: []*validate.Result{
					{Selector: "status", Operator: "eq", Expected: 200, Actual: 404, Passed: false,
						Message: "expected 200, got 404"},
				},
			},
			{
				Name:    "broken case",
				Outcome: engine.OutcomeError,
				Err:     fmt.Errorf("unresolved template token: base"),
			},
			{
				Name:       "flaky case",
				Outcome:    engine.OutcomeSkip,
				SkipReason: "waiting on upstream fix",
			},
		},
	}
	return &engine.RunResult{Suites: []*engine.SuiteResult{suite}, Duration: 150 * time.Millisecond}
}

func TestConsole_Format(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(WithWriter(&buf), WithNoColor(true))
	require.NoError(t, c.Format(sampleRun()))

	out := buf.String()
	assert.Contains(t, out, "Suite: users")
	assert.Contains(t, out, "✓ create user")
	assert.Contains(t, out, "✗ fetch user")
	assert.Contains(t, out, "Expected: 200")
	assert.Contains(t, out, "Actual:   404")
	assert.Contains(t, out, "x broken case")
	assert.Contains(t, out, "unresolved template token")
	assert.Contains(t, out, "- flaky case (waiting on upstream fix)")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "1 errored")
	assert.Contains(t, out, "1 skipped")
}

func TestJSON_Format(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSON(JSONWithWriter(&buf))
	require.NoError(t, j.Format(sampleRun()))

	var doc JSONReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 4, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.Passed)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 1, doc.Summary.Errors)
	assert.Equal(t, 1, doc.Summary.Skipped)
	require.Len(t, doc.Suites, 1)
	require.Len(t, doc.Suites[0].Cases, 4)
	assert.Equal(t, "pass", doc.Suites[0].Cases[0].Outcome)
	assert.Equal(t, "auth", doc.Suites[0].Cases[0].Module)
	assert.Equal(t, "unresolved template token: base", doc.Suites[0].Cases[2].Error)
}

func TestJUnit_Format(t *testing.T) {
	var buf bytes.Buffer
	j := NewJUnit(JUnitWithWriter(&buf))
	require.NoError(t, j.Format(sampleRun()))

	var doc JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 4, doc.Tests)
	assert.Equal(t, 1, doc.Failures)
	assert.Equal(t, 1, doc.Errors)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.TestSuites, 1)
	cases := doc.TestSuites[0].TestCases
	require.Len(t, cases, 4)
	assert.Equal(t, "users.auth", cases[0].ClassName)
	assert.Nil(t, cases[0].Failure)
	require.NotNil(t, cases[1].Failure)
	assert.Contains(t, cases[1].Failure.Content, "expected 200, got 404")
	require.NotNil(t, cases[2].Error)
	require.NotNil(t, cases[3].Skipped)
	assert.Equal(t, "waiting on upstream fix", cases[3].Skipped.Message)
}

func TestNew_FormatterSelection(t *testing.T) {
	var buf bytes.Buffer
	for _, kind := range []string{"", "console", "json", "junit"} {
		f, err := New(kind, &buf)
		require.NoError(t, err, kind)
		require.NotNil(t, f)
	}
	_, err := New("html", &buf)
	assert.Error(t, err)
}
