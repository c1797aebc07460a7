package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restflow/restflow/packages/builtin"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
)

func jsonResponse(status int, body string) *httpx.Response {
	return &httpx.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   80 * time.Millisecond,
	}
}

func TestEvaluate_StatusEquals(t *testing.T) {
	e := NewEvaluator()

	rule := &spec.ValidationRule{Selector: "status", Op: spec.OpEquals, Expected: 200}

	ok := e.Evaluate(jsonResponse(200, `{}`), rule)
	assert.True(t, ok.Passed)

	bad := e.Evaluate(jsonResponse(404, `{}`), rule)
	assert.False(t, bad.Passed)
	assert.Equal(t, 404, bad.Actual)
	assert.Contains(t, bad.Message, "expected 200, got 404")
}

func TestEvaluate_Operators(t *testing.T) {
	resp := jsonResponse(200, `{
		"user": {"id": 42, "name": "ada", "email": "ada@example.com"},
		"tags": ["alpha", "beta"],
		"count": 10
	}`)
	e := NewEvaluator()

	tests := []struct {
		name   string
		rule   *spec.ValidationRule
		passed bool
	}{
		{"eq number", &spec.ValidationRule{Selector: "body.user.id", Op: spec.OpEquals, Expected: 42}, true},
		{"ne", &spec.ValidationRule{Selector: "body.user.id", Op: spec.OpNotEquals, Expected: 41}, true},
		{"gt", &spec.ValidationRule{Selector: "body.count", Op: spec.OpGreaterThan, Expected: 5}, true},
		{"gt fail", &spec.ValidationRule{Selector: "body.count", Op: spec.OpGreaterThan, Expected: 10}, false},
		{"gte", &spec.ValidationRule{Selector: "body.count", Op: spec.OpGreaterOrEqual, Expected: 10}, true},
		{"lt", &spec.ValidationRule{Selector: "body.count", Op: spec.OpLessThan, Expected: 11}, true},
		{"lte fail", &spec.ValidationRule{Selector: "body.count", Op: spec.OpLessOrEqual, Expected: 9}, false},
		{"contains substring", &spec.ValidationRule{Selector: "body.user.email", Op: spec.OpContains, Expected: "@example."}, true},
		{"contains array member", &spec.ValidationRule{Selector: "body.tags", Op: spec.OpContains, Expected: "alpha"}, true},
		{"contains miss", &spec.ValidationRule{Selector: "body.tags", Op: spec.OpContains, Expected: "gamma"}, false},
		{"in", &spec.ValidationRule{Selector: "status", Op: spec.OpIn, Expected: []any{200, 201}}, true},
		{"in miss", &spec.ValidationRule{Selector: "status", Op: spec.OpIn, Expected: []any{301, 302}}, false},
		{"matches", &spec.ValidationRule{Selector: "body.user.email", Op: spec.OpMatches, Expected: `^[a-z]+@[a-z.]+$`}, true},
		{"notEmpty", &spec.ValidationRule{Selector: "body.tags", Op: spec.OpNotEmpty}, true},
		{"exists", &spec.ValidationRule{Selector: "body.user.name", Op: spec.OpExists}, true},
		{"exists miss", &spec.ValidationRule{Selector: "body.user.phone", Op: spec.OpExists}, false},
		{"length", &spec.ValidationRule{Selector: "body.tags", Op: spec.OpLength, Expected: 2}, true},
		{"type", &spec.ValidationRule{Selector: "body.user", Op: spec.OpType, Expected: "object"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(resp, tt.rule)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
		})
	}
}

func TestEvaluate_TypeMismatchFailsExplicitly(t *testing.T) {
	resp := jsonResponse(200, `{"code": "200"}`)
	e := NewEvaluator()

	result := e.Evaluate(resp, &spec.ValidationRule{
		Selector: "body.code", Op: spec.OpEquals, Expected: 200,
	})
	assert.False(t, result.Passed, "string \"200\" must not silently equal number 200")
	assert.Contains(t, result.Message, "type mismatch")
}

func TestEvaluate_OrderingLexicographicWarning(t *testing.T) {
	resp := jsonResponse(200, `{"version": "b"}`)
	e := NewEvaluator()

	result := e.Evaluate(resp, &spec.ValidationRule{
		Selector: "body.version", Op: spec.OpGreaterThan, Expected: "a",
	})
	assert.True(t, result.Passed)
	assert.Contains(t, result.Warning, "type mismatch")
}

func TestEvaluateAll_NoShortCircuit(t *testing.T) {
	resp := jsonResponse(500, `{"ok": false}`)
	e := NewEvaluator()

	rules := []*spec.ValidationRule{
		{Selector: "status", Op: spec.OpEquals, Expected: 200},
		{Selector: "body.ok", Op: spec.OpEquals, Expected: true},
		{Selector: "body.missing", Op: spec.OpExists},
		{Selector: "status", Op: spec.OpLessThan, Expected: 600},
	}

	results := e.EvaluateAll(resp, rules)
	require.Len(t, results, len(rules), "one result per rule, always")
	assert.False(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.False(t, results[2].Passed)
	assert.True(t, results[3].Passed)
}

func TestEvaluate_ExpectedTemplateResolvesExtractedValue(t *testing.T) {
	sc := scope.New()
	sc.Set(scope.LayerExtracted, "uid", float64(42))
	resolver := scope.NewResolver(sc, builtin.NewRegistry())

	e := NewEvaluator(WithResolver(resolver))
	resp := jsonResponse(200, `{"user":{"id":42}}`)

	expected, err := scope.Parse("${uid}")
	require.NoError(t, err)

	result := e.Evaluate(resp, &spec.ValidationRule{
		Selector: "body.user.id", Op: spec.OpEquals, Expected: expected,
	})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluate_Predicate(t *testing.T) {
	e := NewEvaluator(WithPredicate("fast", func(resp *httpx.Response) (bool, error) {
		return resp.Duration < time.Second, nil
	}))
	resp := jsonResponse(200, `{}`)

	result := e.Evaluate(resp, &spec.ValidationRule{
		Selector: "body", Op: spec.OpPredicate, Expected: "fast",
	})
	assert.True(t, result.Passed)

	missing := e.Evaluate(resp, &spec.ValidationRule{
		Selector: "body", Op: spec.OpPredicate, Expected: "unknown",
	})
	assert.False(t, missing.Passed)
	assert.Contains(t, missing.Message, "unknown predicate")
}

func TestEvaluate_PredicateError(t *testing.T) {
	e := NewEvaluator(WithPredicate("boom", func(resp *httpx.Response) (bool, error) {
		return false, fmt.Errorf("backend unavailable")
	}))

	result := e.Evaluate(jsonResponse(200, `{}`), &spec.ValidationRule{
		Selector: "body", Op: spec.OpPredicate, Expected: "boom",
	})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "backend unavailable")
}

func TestEvaluate_Schema(t *testing.T) {
	dir := t.TempDir()
	schema := `{
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			"id": {"type": "number"},
			"name": {"type": "string"}
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(schema), 0o644))

	e := NewEvaluator(WithBaseDir(dir))

	ok := e.Evaluate(jsonResponse(200, `{"id": 1, "name": "ada"}`), &spec.ValidationRule{
		Selector: "body", Op: spec.OpSchema, Expected: "user.json",
	})
	assert.True(t, ok.Passed, ok.Message)

	bad := e.Evaluate(jsonResponse(200, `{"id": "1"}`), &spec.ValidationRule{
		Selector: "body", Op: spec.OpSchema, Expected: "user.json",
	})
	assert.False(t, bad.Passed)
	assert.Contains(t, bad.Message, "schema validation failed")
}

func TestEvaluate_LengthReportsComputedLength(t *testing.T) {
	e := NewEvaluator()
	result := e.Evaluate(jsonResponse(200, `{"tags":["a","b","c"]}`), &spec.ValidationRule{
		Selector: "body.tags", Op: spec.OpLength, Expected: 5,
	})
	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.Actual)
}
