package extract

import (
	"regexp"
	"strings"

	"github.com/restflow/restflow/packages/httpx"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// normalizePath converts bracket array notation to gjson dot notation,
// e.g. "items[0].id" -> "items.0.id".
func normalizePath(path string) string {
	path = bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// Select resolves a selector against a response. The second return
// reports whether the selector matched anything.
func Select(resp *httpx.Response, selector string) (any, bool) {
	switch {
	case selector == "status" || selector == "status_code":
		return resp.StatusCode, true
	case selector == "duration":
		return resp.DurationMs(), true
	case strings.HasPrefix(selector, "header.") || strings.HasPrefix(selector, "headers."):
		name := selector[strings.Index(selector, ".")+1:]
		value := resp.Header(name)
		if value == "" {
			return nil, false
		}
		return value, true
	case selector == "body":
		return resp.BodyPath("")
	case strings.HasPrefix(selector, "body."):
		return resp.BodyPath(normalizePath(strings.TrimPrefix(selector, "body.")))
	default:
		// Bare paths address the body.
		return resp.BodyPath(normalizePath(selector))
	}
}
