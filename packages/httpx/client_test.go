package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "restflow-test", r.Header.Get("X-Client"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), &Request{
		Method:  "POST",
		URL:     server.URL,
		Headers: map[string]string{"X-Client": "restflow-test"},
		Body:    []byte(`{"name":"ada"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, resp.IsJSON())
	v, ok := resp.BodyPath("id")
	require.True(t, ok)
	assert.Equal(t, float64(7), v)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Do(context.Background(), &Request{
		Method:  "GET",
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestClient_DefaultHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(map[string]string{"Authorization": "Bearer t"}))
	_, err := client.Do(context.Background(), &Request{Method: "GET", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "Bearer t", got)
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "valid", req: Request{Method: "GET", URL: "https://example.com"}},
		{name: "no method", req: Request{URL: "https://example.com"}, wantErr: true},
		{name: "bad scheme", req: Request{Method: "GET", URL: "ftp://example.com"}, wantErr: true},
		{name: "no host", req: Request{Method: "GET", URL: "https://"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_HeaderCaseInsensitive(t *testing.T) {
	resp := &Response{Headers: map[string]string{"Content-Type": "application/json"}}
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, "", resp.Header("X-Missing"))
}

func TestResponse_BodyPath_NonJSON(t *testing.T) {
	resp := &Response{Headers: map[string]string{"Content-Type": "text/plain"}, Body: []byte("hello")}
	v, ok := resp.BodyPath("")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = resp.BodyPath("user.id")
	assert.False(t, ok)
}
