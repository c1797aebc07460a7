// Package engine drives suite execution: it resolves request templates
// against the layered variable scope, sends requests through the
// transport collaborator, runs extraction and validation, dispatches
// lifecycle hooks, and aggregates results.
//
// Cases run sequentially in declared order, or across a bounded worker
// pool in parallel mode. Each case executes against an isolated scope
// forked from the shared suite/global layers at dispatch time; promotion
// of extracted variables back to those layers is serialized and becomes
// visible to cases that start afterwards. Reported result order always
// matches declared case order regardless of completion order.
package engine
