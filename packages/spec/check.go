package spec

import (
	"fmt"
	"regexp"

	"github.com/restflow/restflow/packages/scope"
)

// DefinitionError marks a specification bug in a suite document: a
// missing required field, a malformed rule, an unknown reference. It is
// fatal for the owning case and detected before any request is sent.
type DefinitionError struct {
	Suite  string
	Case   string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Case == "" {
		return fmt.Sprintf("suite %q: %s", e.Suite, e.Reason)
	}
	return fmt.Sprintf("suite %q, case %q: %s", e.Suite, e.Case, e.Reason)
}

// Check validates the whole suite definition and returns every problem
// found. An empty result means the suite is runnable.
func (s *Suite) Check() []*DefinitionError {
	var errs []*DefinitionError
	fail := func(caseName, format string, args ...any) {
		errs = append(errs, &DefinitionError{
			Suite:  s.Name,
			Case:   caseName,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	if s.Name == "" {
		fail("", "suite has no name")
	}
	if len(s.Cases) == 0 {
		fail("", "suite has no cases")
	}

	seen := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if c.Name == "" {
			fail("", "case has no name")
			continue
		}
		if seen[c.Name] {
			fail(c.Name, "duplicate case name")
		}
		seen[c.Name] = true

		if err := c.Check(); err != nil {
			fail(c.Name, "%v", err)
		}
	}
	return errs
}

// Check validates one case definition.
func (c *Case) Check() error {
	if c.Skip != "" {
		// A skipped case never dispatches, so its request can stay partial.
		return nil
	}
	if c.Request.Method == "" {
		return fmt.Errorf("request has no method")
	}
	if c.Request.URL == nil || c.Request.URL.Raw() == "" {
		return fmt.Errorf("request has no url")
	}

	for i, rule := range c.Validate {
		if err := rule.Check(); err != nil {
			return fmt.Errorf("validation rule %d: %w", i+1, err)
		}
	}
	for i, rule := range c.Extract {
		if err := rule.Check(); err != nil {
			return fmt.Errorf("extraction rule %d: %w", i+1, err)
		}
	}
	return nil
}

// Check validates one assertion rule.
func (r *ValidationRule) Check() error {
	if r.Selector == "" {
		return fmt.Errorf("rule has no selector")
	}
	switch r.Op {
	case OpInvalid:
		return fmt.Errorf("rule has no operator")
	case OpMatches:
		// Token-bearing patterns are compiled templates; their regex can
		// only be checked once resolved.
		if _, ok := r.Expected.(*scope.Template); ok {
			break
		}
		pattern, ok := r.Expected.(string)
		if !ok {
			return fmt.Errorf("matches operator needs a string pattern, got %T", r.Expected)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	case OpIn:
		if _, ok := r.Expected.([]any); !ok {
			return fmt.Errorf("in operator needs a list, got %T", r.Expected)
		}
	case OpPredicate:
		if _, ok := r.Expected.(string); !ok {
			return fmt.Errorf("predicate operator needs a predicate name, got %T", r.Expected)
		}
	case OpSchema:
		if _, ok := r.Expected.(string); !ok {
			if _, isTemplate := r.Expected.(*scope.Template); !isTemplate {
				return fmt.Errorf("schema operator needs a schema file path, got %T", r.Expected)
			}
		}
	case OpNotEmpty, OpExists:
		// No expected value required.
	default:
		if r.Expected == nil {
			return fmt.Errorf("operator %s needs an expected value", r.Op)
		}
	}
	return nil
}

// Check validates one extraction rule.
func (r *ExtractionRule) Check() error {
	if r.Name == "" {
		return fmt.Errorf("extraction has no variable name")
	}
	if r.Selector == "" {
		return fmt.Errorf("extraction %q has no selector", r.Name)
	}
	switch r.Scope {
	case PromoteNone, PromoteSuite, PromoteGlobal:
		return nil
	default:
		return fmt.Errorf("extraction %q has unknown scope %q", r.Name, r.Scope)
	}
}
