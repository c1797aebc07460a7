// Package validate evaluates assertion rules against a structured
// response. Every rule in a case runs regardless of earlier failures, so
// a result list always has one entry per rule; partial diagnostics (3 of
// 5 checks failing) are kept intact.
//
// Type mismatches between expected and actual values are explicit rule
// failures with a descriptive reason, never silent coercions. Ordering
// operators parse both sides as numbers when possible; otherwise they
// compare lexicographically and flag the result with a warning.
package validate
