package extract

import (
	"fmt"

	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
)

// Error reports a required selector that matched nothing.
type Error struct {
	Name     string
	Selector string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction %q: selector %q not found in response", e.Name, e.Selector)
}

// Apply runs every extraction rule against the response, writing each
// value into the extracted layer of sc immediately so same-case
// validation and templates see it. A missing selector is a hard error
// unless the rule is optional; optional misses are skipped silently.
//
// The returned map is the extracted snapshot for the case result.
func Apply(resp *httpx.Response, rules []*spec.ExtractionRule, sc *scope.Scope) (map[string]any, error) {
	extracted := make(map[string]any, len(rules))
	for _, rule := range rules {
		value, ok := Select(resp, rule.Selector)
		if !ok {
			if rule.Optional {
				continue
			}
			return extracted, &Error{Name: rule.Name, Selector: rule.Selector}
		}
		sc.Set(scope.LayerExtracted, rule.Name, value)
		extracted[rule.Name] = value
	}
	return extracted, nil
}
