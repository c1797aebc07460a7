// Package report renders run results for people and machines: a colored
// console view, a JSON document, and JUnit XML for CI systems.
package report
