package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/restflow/restflow/packages/hooks"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
)

// RunSuite executes one suite and returns its aggregated result. Cases
// land in the result slice by declared index regardless of completion
// order.
func (e *Engine) RunSuite(ctx context.Context, suite *spec.Suite) *SuiteResult {
	start := time.Now()
	sr := &SuiteResult{
		Suite: suite.Name,
		Path:  suite.Path,
		Cases: make([]*CaseResult, len(suite.Cases)),
	}

	shared := scope.New()
	e.mu.Lock()
	shared.SetAll(scope.LayerGlobal, e.globals)
	e.mu.Unlock()
	shared.SetAll(scope.LayerSuite, suite.Variables)

	e.logger.Info("running suite",
		zap.String("suite", suite.Name),
		zap.Int("cases", len(suite.Cases)),
		zap.Bool("parallel", e.config.Parallel))

	e.hooks.Dispatch(hooks.BeforeSuite, &hooks.Context{Suite: suite.Name, Vars: shared.Flatten()})
	defer func() {
		hc := &hooks.Context{Suite: suite.Name, Result: sr, Vars: shared.Flatten()}
		e.hooks.Dispatch(hooks.AfterSuite, hc)
		e.hooks.Dispatch(hooks.Teardown, hc)
	}()

	if e.config.Parallel {
		e.runParallel(ctx, suite, shared, sr)
	} else {
		e.runSequential(ctx, suite, shared, sr)
	}

	sr.tally()
	var durations []time.Duration
	for _, c := range sr.Cases {
		if c.Response != nil {
			durations = append(durations, c.Response.Duration)
		}
	}
	sr.Latency = computeLatency(durations)
	sr.Duration = time.Since(start)
	return sr
}

// runSequential walks cases in declared order, firing module hooks on
// label transitions. An abort policy stops dispatching; the remaining
// cases report skipped.
func (e *Engine) runSequential(ctx context.Context, suite *spec.Suite, shared *scope.Scope, sr *SuiteResult) {
	module := ""
	for i, c := range suite.Cases {
		if sr.Aborted || ctx.Err() != nil {
			sr.Cases[i] = &CaseResult{
				Name:       c.Name,
				Module:     c.Module,
				Outcome:    OutcomeSkip,
				SkipReason: "suite aborted",
			}
			continue
		}

		if c.Module != module {
			if module != "" {
				e.hooks.Dispatch(hooks.AfterModule, &hooks.Context{Suite: suite.Name, Module: module})
			}
			if c.Module != "" {
				e.hooks.Dispatch(hooks.BeforeModule, &hooks.Context{Suite: suite.Name, Module: c.Module})
			}
			module = c.Module
		}

		res := e.runCase(ctx, suite, shared, c)
		sr.Cases[i] = res
		e.promote(shared, c, res.Extracted)

		if e.shouldAbort(suite, c, res) {
			sr.Aborted = true
		}
	}
	if module != "" {
		e.hooks.Dispatch(hooks.AfterModule, &hooks.Context{Suite: suite.Name, Module: module})
	}
}

// runParallel dispatches cases across a bounded worker pool. Module hooks
// fire once per distinct label around the whole batch, since interleaved
// completion has no meaningful module boundary.
func (e *Engine) runParallel(ctx context.Context, suite *spec.Suite, shared *scope.Scope, sr *SuiteResult) {
	modules := distinctModules(suite.Cases)
	for _, m := range modules {
		e.hooks.Dispatch(hooks.BeforeModule, &hooks.Context{Suite: suite.Name, Module: m})
	}

	var abort atomic.Bool
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.config.Workers)

	for i, c := range suite.Cases {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c *spec.Case) {
			defer wg.Done()
			defer func() { <-sem }()

			if abort.Load() || ctx.Err() != nil {
				sr.Cases[i] = &CaseResult{
					Name:       c.Name,
					Module:     c.Module,
					Outcome:    OutcomeSkip,
					SkipReason: "suite aborted",
				}
				return
			}

			res := e.runCase(ctx, suite, shared, c)
			sr.Cases[i] = res
			e.promote(shared, c, res.Extracted)

			if e.shouldAbort(suite, c, res) {
				abort.Store(true)
			}
		}(i, c)
	}
	wg.Wait()

	if abort.Load() {
		sr.Aborted = true
	}
	for _, m := range modules {
		e.hooks.Dispatch(hooks.AfterModule, &hooks.Context{Suite: suite.Name, Module: m})
	}
}

func (e *Engine) shouldAbort(suite *spec.Suite, c *spec.Case, res *CaseResult) bool {
	if res.Outcome != OutcomeFail && res.Outcome != OutcomeError {
		return false
	}
	return e.config.Bail || c.EffectivePolicy(suite.Defaults) == spec.FailureAbort
}

// promote publishes extracted values marked for a wider scope into the
// shared store. Scope's own lock serializes concurrent promotions; a
// value becomes visible to cases forked after this returns.
func (e *Engine) promote(shared *scope.Scope, c *spec.Case, extracted map[string]any) {
	for _, rule := range c.Extract {
		v, ok := extracted[rule.Name]
		if !ok {
			continue
		}
		switch rule.Scope {
		case spec.PromoteSuite:
			shared.Set(scope.LayerSuite, rule.Name, v)
		case spec.PromoteGlobal:
			shared.Set(scope.LayerGlobal, rule.Name, v)
			e.mu.Lock()
			e.globals[rule.Name] = v
			e.mu.Unlock()
		}
	}
}

func distinctModules(cases []*spec.Case) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cases {
		if c.Module == "" || seen[c.Module] {
			continue
		}
		seen[c.Module] = true
		out = append(out, c.Module)
	}
	return out
}
