package scope

import (
	"fmt"
	"strings"

	"github.com/restflow/restflow/packages/builtin"
)

// Resolver substitutes template tokens with current scope values and
// built-in function results.
type Resolver struct {
	scope *Scope
	funcs *builtin.Registry
}

func NewResolver(s *Scope, funcs *builtin.Registry) *Resolver {
	if funcs == nil {
		funcs = builtin.NewRegistry()
	}
	return &Resolver{scope: s, funcs: funcs}
}

// Scope returns the underlying variable store.
func (r *Resolver) Scope() *Scope {
	return r.scope
}

// Resolve evaluates a template. A template that is exactly one token
// yields the typed value; anything else yields the concatenated string.
// An unknown variable or function is a ResolutionError naming the token.
func (r *Resolver) Resolve(t *Template) (any, error) {
	if t == nil {
		return "", nil
	}
	if len(t.segments) == 1 && t.segments[0].kind != segLiteral {
		return r.resolveSegment(t.segments[0])
	}
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.kind == segLiteral {
			sb.WriteString(seg.text)
			continue
		}
		v, err := r.resolveSegment(seg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	return sb.String(), nil
}

// ResolveString evaluates a template and stringifies the result.
func (r *Resolver) ResolveString(t *Template) (string, error) {
	v, err := r.Resolve(t)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}

func (r *Resolver) resolveSegment(seg segment) (any, error) {
	switch seg.kind {
	case segVariable:
		if v, ok := r.scope.Lookup(seg.text); ok {
			return v, nil
		}
		return nil, &ResolutionError{Token: seg.text}
	case segFunction:
		if !r.funcs.Has(seg.text) {
			return nil, &ResolutionError{Token: seg.text + "()"}
		}
		v, err := r.funcs.Call(seg.text, seg.args)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", seg.text, err)
		}
		return v, nil
	default:
		return seg.text, nil
	}
}

// Compile walks an arbitrary decoded YAML value and parses every string
// leaf into a Template, so unresolved-token detection is structural and
// resolution never re-parses. Map keys are left untouched.
func Compile(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return Parse(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			compiled, err := Compile(item)
			if err != nil {
				return nil, err
			}
			out[k] = compiled
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			compiled, err := Compile(item)
			if err != nil {
				return nil, err
			}
			out[i] = compiled
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveValue evaluates a compiled structure: every Template leaf is
// resolved, containers are rebuilt, scalars pass through.
func (r *Resolver) ResolveValue(v any) (any, error) {
	switch val := v.(type) {
	case *Template:
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}
