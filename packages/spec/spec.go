package spec

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/restflow/restflow/packages/scope"
)

// Suite is a named, ordered collection of test cases plus suite-local
// variables. Case order is the declared order unless the run is
// explicitly parallelized.
type Suite struct {
	Name      string         `yaml:"name"`
	Variables map[string]any `yaml:"variables"`
	Defaults  Defaults       `yaml:"defaults"`
	Cases     []*Case        `yaml:"cases"`

	// Path is the file the suite was loaded from, when applicable.
	Path string `yaml:"-"`
}

// Defaults are suite-wide settings merged under each case.
type Defaults struct {
	Timeout   Duration          `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	OnFailure FailurePolicy     `yaml:"on_failure"`
}

// Case is one request/validate/extract unit. It executes exactly once
// per run invocation.
type Case struct {
	Name      string            `yaml:"name"`
	Module    string            `yaml:"module"`
	Skip      string            `yaml:"skip"`
	Request   RequestSpec       `yaml:"request"`
	Validate  []*ValidationRule `yaml:"validate"`
	Extract   []*ExtractionRule `yaml:"extract"`
	OnFailure FailurePolicy     `yaml:"on_failure"`
}

// RequestSpec is the declarative request. All string fields may carry
// ${...} tokens; templates are parsed at load and resolved immediately
// before dispatch.
type RequestSpec struct {
	Method  string                     `yaml:"method"`
	URL     *scope.Template            `yaml:"url"`
	Headers map[string]*scope.Template `yaml:"headers"`
	Body    any                        `yaml:"body"`
	Timeout Duration                   `yaml:"timeout"`
}

// ValidationRule is one assertion against the response.
type ValidationRule struct {
	Name     string   `yaml:"name"`
	Selector string   `yaml:"selector"`
	Op       Operator `yaml:"op"`
	Expected any      `yaml:"expected"`
}

// PromoteScope says where an extracted variable becomes visible beyond
// the owning case.
type PromoteScope string

const (
	PromoteNone   PromoteScope = ""       // case-local (default)
	PromoteSuite  PromoteScope = "suite"  // visible to later cases in the suite
	PromoteGlobal PromoteScope = "global" // visible to later cases in any suite
)

// ExtractionRule selects a response value into a named variable. The
// value lands in the case-local extracted layer immediately; promotion to
// a wider scope happens after the case completes.
type ExtractionRule struct {
	Name     string       `yaml:"name"`
	Selector string       `yaml:"selector"`
	Optional bool         `yaml:"optional"`
	Scope    PromoteScope `yaml:"scope"`
}

// FailurePolicy controls what a failed case does to the rest of its suite.
type FailurePolicy string

const (
	FailureContinue FailurePolicy = "continue"
	FailureAbort    FailurePolicy = "abort"
)

func (p *FailurePolicy) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch FailurePolicy(raw) {
	case FailureContinue, FailureAbort, "":
		*p = FailurePolicy(raw)
		return nil
	default:
		return fmt.Errorf("unknown on_failure policy: %q", raw)
	}
}

// Duration wraps time.Duration with YAML support for strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EffectiveTimeout returns the case timeout, falling back to the suite
// default.
func (c *Case) EffectiveTimeout(defaults Defaults) time.Duration {
	if c.Request.Timeout > 0 {
		return c.Request.Timeout.Std()
	}
	return defaults.Timeout.Std()
}

// EffectivePolicy returns the case failure policy, falling back to the
// suite default and then to continue.
func (c *Case) EffectivePolicy(defaults Defaults) FailurePolicy {
	if c.OnFailure != "" {
		return c.OnFailure
	}
	if defaults.OnFailure != "" {
		return defaults.OnFailure
	}
	return FailureContinue
}
