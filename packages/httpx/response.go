package httpx

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is the structured response handed to extraction and validation.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration

	parsed     gjson.Result
	parsedOnce bool
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header performs a case-insensitive header lookup.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// JSON returns the parsed body, parsing it at most once.
func (r *Response) JSON() gjson.Result {
	if !r.parsedOnce {
		r.parsed = gjson.ParseBytes(r.Body)
		r.parsedOnce = true
	}
	return r.parsed
}

// BodyPath selects a value from the parsed body by gjson path. An empty
// path returns the whole body value. The second return reports whether
// the path exists.
func (r *Response) BodyPath(path string) (any, bool) {
	if !r.IsJSON() && !gjson.ValidBytes(r.Body) {
		if path == "" {
			return r.BodyString(), true
		}
		return nil, false
	}
	if path == "" {
		return r.JSON().Value(), true
	}
	result := r.JSON().Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}
