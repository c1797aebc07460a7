// Package cmd implements the restflow CLI commands using Cobra.
//
// Available commands:
//   - run: Execute test suites from YAML files
//   - validate: Check suite definitions without executing
//   - list: Display the suites and cases in files
//   - history: Show results of past runs
//   - init: Create a new restflow project with an example suite
//   - version: Show restflow version information
//
// The CLI supports flags for output formatting, parallel execution,
// rate limiting, run persistence, notifications, and watch mode.
package cmd
