// Package spec defines the in-memory test specification: suites, cases,
// request specs, validation and extraction rules. It also loads suite
// documents from YAML and performs the eager definition checks that turn
// specification bugs (unknown operator, missing field, malformed
// template) into load-time errors instead of runtime surprises.
package spec
