package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restflow/restflow/packages/engine"
	"github.com/restflow/restflow/packages/validate"
)

type recordingNotifier struct {
	calls []*Summary
	err   error
}

func (r *recordingNotifier) Notify(s *Summary) error {
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recordingNotifier) Name() string { return "recording" }

func greenSummary() *Summary {
	return &Summary{Total: 3, Passed: 3, Duration: time.Second}
}

func redSummary() *Summary {
	return &Summary{Total: 3, Passed: 2, Failed: 1, Duration: time.Second}
}

func TestSummarize(t *testing.T) {
	run := &engine.RunResult{
		Duration: 2 * time.Second,
		Suites: []*engine.SuiteResult{
			{
				Suite:  "users",
				Passed: 1, Failed: 1, Errors: 1,
				Cases: []*engine.CaseResult{
					{Name: "ok", Outcome: engine.OutcomePass},
					{Name: "bad status", Outcome: engine.OutcomeFail, Rules: []*validate.Result{
						{Passed: false, Message: "expected 200, got 404"},
					}},
					{Name: "broken", Outcome: engine.OutcomeError, Err: fmt.Errorf("dial refused")},
				},
			},
		},
	}

	s := Summarize(run)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Errors)
	assert.False(t, s.Ok())
	require.Len(t, s.FailedCases, 2)
	assert.Equal(t, "expected 200, got 404", s.FailedCases[0].Reason)
	assert.Equal(t, "dial refused", s.FailedCases[1].Reason)
}

func TestManager_Policies(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		summaries []*Summary
		wantCalls int
	}{
		{"always sends both", Always, []*Summary{greenSummary(), redSummary()}, 2},
		{"failure skips green", OnFailure, []*Summary{greenSummary(), redSummary()}, 1},
		{"success skips red", OnSuccess, []*Summary{redSummary(), greenSummary()}, 1},
		{"recovery sends failure then recovery", OnRecovery, []*Summary{redSummary(), greenSummary()}, 2},
		{"recovery silent while green", OnRecovery, []*Summary{greenSummary(), greenSummary()}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			m := NewManager(tt.policy, rec)
			for _, s := range tt.summaries {
				_ = m.Notify(s)
			}
			assert.Len(t, rec.calls, tt.wantCalls)
		})
	}
}

func TestManager_RecoveryFlagSet(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewManager(OnRecovery, rec)

	require.NoError(t, m.Notify(redSummary()))
	require.NoError(t, m.Notify(greenSummary()))

	require.Len(t, rec.calls, 2)
	assert.False(t, rec.calls[0].IsRecovery)
	assert.True(t, rec.calls[1].IsRecovery)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, OnFailure, p)

	p, err = ParsePolicy("always")
	require.NoError(t, err)
	assert.Equal(t, Always, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}

func TestSlack_Notify(t *testing.T) {
	var received slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(srv.URL, WithSlackChannel("#ci"))
	summary := redSummary()
	summary.FailedCases = []FailedCase{{Suite: "users", Name: "bad status", Reason: "expected 200, got 404"}}
	require.NoError(t, s.Notify(summary))

	assert.Equal(t, "#ci", received.Channel)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "danger", received.Attachments[0].Color)
	assert.Contains(t, received.Attachments[0].Text, "bad status")
}

func TestSlack_NotifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL).Notify(greenSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestWebhook_Notify(t *testing.T) {
	var received webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookHeader("Authorization", "Bearer tok"))
	require.NoError(t, wh.Notify(redSummary()))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "failed", received.Status)
	assert.Equal(t, 1, received.Summary.Failed)
}
