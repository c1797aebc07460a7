package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
)

func jsonResponse(status int, body string) *httpx.Response {
	return &httpx.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "req-9"},
		Body:       []byte(body),
		Duration:   120 * time.Millisecond,
	}
}

func TestSelect(t *testing.T) {
	resp := jsonResponse(200, `{"user":{"id":42,"tags":["a","b"]}}`)

	tests := []struct {
		selector string
		want     any
		found    bool
	}{
		{selector: "status", want: 200, found: true},
		{selector: "status_code", want: 200, found: true},
		{selector: "duration", want: int64(120), found: true},
		{selector: "header.x-request-id", want: "req-9", found: true},
		{selector: "header.X-Missing", found: false},
		{selector: "body.user.id", want: float64(42), found: true},
		{selector: "user.id", want: float64(42), found: true},
		{selector: "body.user.tags[1]", want: "b", found: true},
		{selector: "body.user.missing", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, found := Select(resp, tt.selector)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestApply_WritesScopeImmediately(t *testing.T) {
	resp := jsonResponse(200, `{"user":{"id":42}}`)
	sc := scope.New()

	extracted, err := Apply(resp, []*spec.ExtractionRule{
		{Name: "uid", Selector: "body.user.id"},
	}, sc)
	require.NoError(t, err)
	assert.Equal(t, float64(42), extracted["uid"])

	// Read-after-write within the case: a template resolves the new value.
	r := scope.NewResolver(sc, nil)
	got, err := r.ResolveString(scope.MustParse("/users/${uid}"))
	require.NoError(t, err)
	assert.Equal(t, "/users/42", got)
}

func TestApply_MissingSelectorFails(t *testing.T) {
	resp := jsonResponse(200, `{}`)
	sc := scope.New()

	_, err := Apply(resp, []*spec.ExtractionRule{
		{Name: "uid", Selector: "body.user.id"},
	}, sc)
	require.Error(t, err)

	var exErr *Error
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "body.user.id", exErr.Selector)
	assert.Equal(t, "uid", exErr.Name)
}

func TestApply_OptionalMissIsSilent(t *testing.T) {
	resp := jsonResponse(200, `{"present": 1}`)
	sc := scope.New()

	extracted, err := Apply(resp, []*spec.ExtractionRule{
		{Name: "gone", Selector: "body.absent", Optional: true},
		{Name: "here", Selector: "body.present"},
	}, sc)
	require.NoError(t, err)
	assert.NotContains(t, extracted, "gone")
	assert.Equal(t, float64(1), extracted["here"])
	assert.False(t, sc.Has("gone"))
}
