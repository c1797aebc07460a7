// Package notify pushes run summaries to external channels such as
// Slack or a plain webhook receiver.
package notify

import (
	"fmt"
	"time"

	"github.com/restflow/restflow/packages/engine"
)

// Policy specifies when to send notifications.
type Policy string

const (
	// Always sends a notification for every run
	Always Policy = "always"
	// OnFailure sends only when the run is not green
	OnFailure Policy = "failure"
	// OnSuccess sends only when the run is green
	OnSuccess Policy = "success"
	// OnRecovery sends on failures and on the first green run after one
	OnRecovery Policy = "recovery"
)

// ParsePolicy validates a policy name.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case Always, OnFailure, OnSuccess, OnRecovery:
		return Policy(raw), nil
	case "":
		return OnFailure, nil
	default:
		return "", fmt.Errorf("unknown notify policy: %q", raw)
	}
}

// Summary is the run digest notifiers render.
type Summary struct {
	Suites      int           `json:"suites"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Errors      int           `json:"errors"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
	FailedCases []FailedCase  `json:"failed_cases,omitempty"`
}

// Ok reports whether the summarized run was green.
func (s *Summary) Ok() bool {
	return s.Failed == 0 && s.Errors == 0
}

// FailedCase is one non-passing case in the digest.
type FailedCase struct {
	Suite  string `json:"suite"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// Summarize condenses a run result into a notification digest.
func Summarize(run *engine.RunResult) *Summary {
	passed, failed, errs, skipped := run.Totals()
	s := &Summary{
		Suites:   len(run.Suites),
		Total:    passed + failed + errs + skipped,
		Passed:   passed,
		Failed:   failed,
		Errors:   errs,
		Skipped:  skipped,
		Duration: run.Duration,
	}
	for _, suite := range run.Suites {
		for _, c := range suite.Cases {
			switch c.Outcome {
			case engine.OutcomeFail:
				reason := ""
				for _, r := range c.Rules {
					if !r.Passed {
						reason = r.Message
						break
					}
				}
				s.FailedCases = append(s.FailedCases, FailedCase{Suite: suite.Suite, Name: c.Name, Reason: reason})
			case engine.OutcomeError:
				s.FailedCases = append(s.FailedCases, FailedCase{Suite: suite.Suite, Name: c.Name, Reason: c.Err.Error()})
			}
		}
	}
	return s
}

// Notifier delivers one run digest to a channel.
type Notifier interface {
	Notify(summary *Summary) error
	Name() string
}

// Manager fans a digest out to every registered notifier, gated by the
// policy. It tracks the previous run state for recovery detection.
type Manager struct {
	notifiers []Notifier
	policy    Policy
	lastOk    bool
}

func NewManager(policy Policy, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		policy:    policy,
		lastOk:    true,
	}
}

func (m *Manager) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify applies the policy and dispatches to every notifier. Delivery
// failures do not stop remaining notifiers; the last one is returned.
func (m *Manager) Notify(summary *Summary) error {
	send := false
	ok := summary.Ok()

	switch m.policy {
	case Always:
		send = true
	case OnFailure:
		send = !ok
	case OnSuccess:
		send = ok
	case OnRecovery:
		if !m.lastOk && ok {
			send = true
			summary.IsRecovery = true
		}
		if !ok {
			send = true
		}
	}
	m.lastOk = ok

	if !send {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return lastErr
}
