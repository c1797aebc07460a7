package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/restflow/restflow/packages/extract"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
)

// Result is the outcome of one assertion rule.
type Result struct {
	Name     string
	Selector string
	Operator string
	Expected any
	Actual   any
	Passed   bool
	Message  string
	Warning  string
}

// Predicate is a custom scripted check: it receives the structured
// response and decides pass/fail itself.
type Predicate func(resp *httpx.Response) (bool, error)

// Evaluator runs validation rules. Construct one per engine; it is
// stateless across cases.
type Evaluator struct {
	resolver   *scope.Resolver
	predicates map[string]Predicate
	baseDir    string
}

type Option func(*Evaluator)

// WithResolver lets expected values carry ${...} tokens, resolved
// against the case scope at evaluation time.
func WithResolver(r *scope.Resolver) Option {
	return func(e *Evaluator) {
		e.resolver = r
	}
}

// WithBaseDir sets the directory schema file paths resolve against.
func WithBaseDir(dir string) Option {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

// WithPredicate registers a named predicate for the predicate operator.
func WithPredicate(name string, fn Predicate) Option {
	return func(e *Evaluator) {
		e.predicates[name] = fn
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{predicates: make(map[string]Predicate)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAll runs every rule and returns one result per rule, in rule
// order. It never short-circuits on failure.
func (e *Evaluator) EvaluateAll(resp *httpx.Response, rules []*spec.ValidationRule) []*Result {
	results := make([]*Result, len(rules))
	for i, rule := range rules {
		results[i] = e.Evaluate(resp, rule)
	}
	return results
}

// Evaluate runs one rule.
func (e *Evaluator) Evaluate(resp *httpx.Response, rule *spec.ValidationRule) *Result {
	result := &Result{
		Name:     rule.Name,
		Selector: rule.Selector,
		Operator: rule.Op.String(),
		Expected: rule.Expected,
	}

	expected, err := e.resolveExpected(rule.Expected)
	if err != nil {
		result.Message = fmt.Sprintf("resolving expected value: %v", err)
		return result
	}
	result.Expected = expected

	actual, found := extract.Select(resp, rule.Selector)
	result.Actual = actual

	switch rule.Op {
	case spec.OpExists:
		result.Passed = found
		if !found {
			result.Message = fmt.Sprintf("selector %q: expected to exist", rule.Selector)
		}
		return result
	case spec.OpNotEmpty:
		result.Passed = found && !isEmpty(actual)
		if !result.Passed {
			result.Message = fmt.Sprintf("selector %q: expected a non-empty value, got %v", rule.Selector, actual)
		}
		return result
	case spec.OpPredicate:
		e.runPredicate(resp, expected, result)
		return result
	}

	if !found {
		result.Message = fmt.Sprintf("selector %q not found in response", rule.Selector)
		return result
	}

	passed, msg, warning := e.compare(actual, rule.Op, expected)
	result.Passed = passed
	result.Message = msg
	result.Warning = warning
	if rule.Op == spec.OpLength {
		result.Actual = lengthOf(actual)
	}
	return result
}

func (e *Evaluator) resolveExpected(expected any) (any, error) {
	if e.resolver == nil {
		return expected, nil
	}
	return e.resolver.ResolveValue(expected)
}

func (e *Evaluator) runPredicate(resp *httpx.Response, expected any, result *Result) {
	name := fmt.Sprintf("%v", expected)
	fn, ok := e.predicates[name]
	if !ok {
		result.Message = fmt.Sprintf("unknown predicate: %q", name)
		return
	}
	passed, err := fn(resp)
	if err != nil {
		result.Message = fmt.Sprintf("predicate %q: %v", name, err)
		return
	}
	result.Passed = passed
	if !passed {
		result.Message = fmt.Sprintf("predicate %q returned false", name)
	}
}

func (e *Evaluator) compare(actual any, op spec.Operator, expected any) (passed bool, msg, warning string) {
	switch op {
	case spec.OpEquals:
		return equals(actual, expected)
	case spec.OpNotEquals:
		eq, _, warning := equals(actual, expected)
		if eq {
			return false, fmt.Sprintf("expected not to equal %v", expected), ""
		}
		return true, "", warning
	case spec.OpGreaterThan:
		return ordering(actual, expected, ">")
	case spec.OpGreaterOrEqual:
		return ordering(actual, expected, ">=")
	case spec.OpLessThan:
		return ordering(actual, expected, "<")
	case spec.OpLessOrEqual:
		return ordering(actual, expected, "<=")
	case spec.OpContains:
		return contains(actual, expected)
	case spec.OpIn:
		return within(actual, expected)
	case spec.OpMatches:
		return matches(actual, expected)
	case spec.OpLength:
		return length(actual, expected)
	case spec.OpType:
		return typeCheck(actual, expected)
	case spec.OpSchema:
		return e.schema(actual, expected)
	default:
		// The load-time definition check keeps this unreachable.
		return false, fmt.Sprintf("unknown operator: %v", op), ""
	}
}

// classOf buckets a value for mismatch reporting. JSON and YAML numbers
// land in one class regardless of Go type.
func classOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func equals(actual, expected any) (bool, string, string) {
	actualClass, expectedClass := classOf(actual), classOf(expected)
	if actualClass != expectedClass {
		return false, fmt.Sprintf("type mismatch: expected %s (%v), got %s (%v)",
			expectedClass, expected, actualClass, actual), ""
	}
	if actualClass == "number" {
		a, _ := toFloat(actual)
		b, _ := toFloat(expected)
		if a == b {
			return true, "", ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual), ""
	}
	if reflect.DeepEqual(actual, expected) {
		return true, "", ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual), ""
}

// looseEqual is membership equality: numeric cross-type matches allowed,
// everything else must deep-equal.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func ordering(actual, expected any, op string) (bool, string, string) {
	warning := ""
	a, aOk := toFloat(actual)
	b, bOk := toFloat(expected)

	var cmp int
	if aOk && bOk {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		// Non-numeric operands fall back to lexicographic order; the
		// warning makes the coercion visible in the result.
		warning = fmt.Sprintf("type mismatch: %v and %v compared lexicographically", actual, expected)
		cmp = strings.Compare(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected))
	}

	var passed bool
	switch op {
	case ">":
		passed = cmp > 0
	case ">=":
		passed = cmp >= 0
	case "<":
		passed = cmp < 0
	case "<=":
		passed = cmp <= 0
	}

	if passed {
		return true, "", warning
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected), warning
}

func contains(actual, expected any) (bool, string, string) {
	switch a := actual.(type) {
	case string:
		needle := fmt.Sprintf("%v", expected)
		if strings.Contains(a, needle) {
			return true, "", ""
		}
		return false, fmt.Sprintf("expected %q to contain %q", a, needle), ""
	case []any:
		for _, item := range a {
			if looseEqual(item, expected) {
				return true, "", ""
			}
		}
		return false, fmt.Sprintf("expected array to contain %v", expected), ""
	case map[string]any:
		key := fmt.Sprintf("%v", expected)
		if _, ok := a[key]; ok {
			return true, "", ""
		}
		return false, fmt.Sprintf("expected object to contain key %q", key), ""
	default:
		return false, fmt.Sprintf("type mismatch: contains needs a string, array, or object, got %s", classOf(actual)), ""
	}
}

func within(actual, expected any) (bool, string, string) {
	list, ok := expected.([]any)
	if !ok {
		return false, fmt.Sprintf("type mismatch: in needs a list, got %s", classOf(expected)), ""
	}
	for _, item := range list {
		if looseEqual(actual, item) {
			return true, "", ""
		}
	}
	return false, fmt.Sprintf("expected %v to be one of %v", actual, expected), ""
}

func matches(actual, expected any) (bool, string, string) {
	pattern := fmt.Sprintf("%v", expected)
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err), ""
	}

	subject := fmt.Sprintf("%v", actual)
	if re.MatchString(subject) {
		return true, "", ""
	}
	return false, fmt.Sprintf("expected %q to match /%s/", subject, pattern), ""
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func lengthOf(v any) int {
	switch val := v.(type) {
	case string:
		return len(val)
	case []any:
		return len(val)
	case map[string]any:
		return len(val)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		}
		return -1
	}
}

func length(actual, expected any) (bool, string, string) {
	want, ok := toFloat(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected), ""
	}
	got := lengthOf(actual)
	if got == -1 {
		return false, fmt.Sprintf("cannot get length of %s", classOf(actual)), ""
	}
	if float64(got) == want {
		return true, "", ""
	}
	return false, fmt.Sprintf("expected length %v, got %d", expected, got), ""
}

func typeCheck(actual, expected any) (bool, string, string) {
	want := fmt.Sprintf("%v", expected)
	got := classOf(actual)
	if got == want {
		return true, "", ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", want, got), ""
}

func (e *Evaluator) schema(actual, expected any) (bool, string, string) {
	schemaPath := fmt.Sprintf("%v", expected)
	if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
		schemaPath = filepath.Join(e.baseDir, schemaPath)
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return false, fmt.Sprintf("reading schema file: %v", err), ""
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("marshaling actual value: %v", err), ""
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(actualJSON),
	)
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err), ""
	}
	if result.Valid() {
		return true, "", ""
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(details, "; ")), ""
}
