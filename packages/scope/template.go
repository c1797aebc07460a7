package scope

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolutionError reports a template token that could not be resolved.
type ResolutionError struct {
	Token string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved variable: %s", e.Token)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segVariable
	segFunction
)

type segment struct {
	kind segmentKind
	text string   // literal text or variable/function name
	args []string // function arguments, already unquoted
}

// Template is a parsed template string: a sequence of literal and token
// segments. Parsing happens once at suite load; Resolve never re-parses
// and never re-expands its own output.
type Template struct {
	raw      string
	segments []segment
}

// Parse compiles a template string. Tokens are ${name} or ${func(args)};
// an unterminated token is a parse error.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	rest := raw
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			if rest != "" {
				t.segments = append(t.segments, segment{kind: segLiteral, text: rest})
			}
			return t, nil
		}
		if start > 0 {
			t.segments = append(t.segments, segment{kind: segLiteral, text: rest[:start]})
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return nil, fmt.Errorf("unterminated token in template %q", raw)
		}
		expr := strings.TrimSpace(rest[start+2 : start+end])
		if expr == "" {
			return nil, fmt.Errorf("empty token in template %q", raw)
		}
		seg, err := parseToken(expr)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", raw, err)
		}
		t.segments = append(t.segments, seg)
		rest = rest[start+end+1:]
	}
}

// MustParse is a test helper that panics on parse errors.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func parseToken(expr string) (segment, error) {
	open := strings.Index(expr, "(")
	if open < 0 {
		return segment{kind: segVariable, text: expr}, nil
	}
	if !strings.HasSuffix(expr, ")") {
		return segment{}, fmt.Errorf("malformed function call %q", expr)
	}
	name := strings.TrimSpace(expr[:open])
	if name == "" {
		return segment{}, fmt.Errorf("malformed function call %q", expr)
	}
	argsStr := expr[open+1 : len(expr)-1]
	return segment{kind: segFunction, text: name, args: splitArgs(argsStr)}, nil
}

// splitArgs splits a comma-separated argument list, honoring single and
// double quotes.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	args = append(args, strings.TrimSpace(current.String()))
	return args
}

// Raw returns the original template string.
func (t *Template) Raw() string {
	return t.raw
}

// IsLiteral reports whether the template contains no tokens.
func (t *Template) IsLiteral() bool {
	for _, seg := range t.segments {
		if seg.kind != segLiteral {
			return false
		}
	}
	return true
}

// Tokens returns the variable names referenced by the template, in order.
// Function tokens are not included since they need no scope entry.
func (t *Template) Tokens() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.kind == segVariable {
			names = append(names, seg.text)
		}
	}
	return names
}

// UnmarshalYAML parses the template at document load so malformed tokens
// surface as definition errors, not runtime ones.
func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t *Template) String() string {
	return t.raw
}
