package httpx

import (
	"fmt"
	"net/url"
	"time"
)

// Request is a fully resolved HTTP request: every template token has
// already been substituted by the time one of these is built.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Validate checks that the request is dispatchable.
func (r *Request) Validate() error {
	if r.Method == "" {
		return fmt.Errorf("request has no method")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", r.URL)
	}
	return nil
}
