package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/restflow/restflow/packages/extract"
	"github.com/restflow/restflow/packages/hooks"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/scope"
	"github.com/restflow/restflow/packages/spec"
	"github.com/restflow/restflow/packages/validate"
)

// runCase executes one case end to end: gate hooks, template resolution,
// request dispatch, extraction, then validation. Any problem before the
// assertion logic runs yields an error outcome, never a fail.
func (e *Engine) runCase(ctx context.Context, suite *spec.Suite, shared *scope.Scope, c *spec.Case) *CaseResult {
	result := &CaseResult{Name: c.Name, Module: c.Module}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	hc := &hooks.Context{Suite: suite.Name, Module: c.Module, Case: c.Name}

	if c.Skip != "" {
		result.Outcome = OutcomeSkip
		result.SkipReason = c.Skip
		e.hooks.Dispatch(hooks.OnSkip, hc)
		return result
	}

	errored := func(err error) *CaseResult {
		result.Outcome = OutcomeError
		result.Err = err
		hc.Err = err
		hc.Result = result
		e.logger.Debug("case errored", zap.String("case", c.Name), zap.Error(err))
		e.hooks.Dispatch(hooks.OnError, hc)
		e.hooks.Dispatch(hooks.AfterTest, hc)
		return result
	}

	if err := e.hooks.DispatchGating(hooks.BeforeTest, hc); err != nil {
		return errored(err)
	}
	if err := c.Check(); err != nil {
		return errored(&spec.DefinitionError{Suite: suite.Name, Case: c.Name, Reason: err.Error()})
	}

	fork := shared.Fork()
	resolver := scope.NewResolver(fork, e.funcs)

	req, err := e.buildRequest(resolver, suite, c)
	if err != nil {
		return errored(err)
	}
	result.Request = req
	hc.Request = req
	hc.Vars = fork.Flatten()

	if err := e.hooks.DispatchGating(hooks.BeforeRequest, hc); err != nil {
		return errored(err)
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return errored(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	resp, err := e.transport.Do(ctx, req)
	if err != nil {
		return errored(fmt.Errorf("request failed: %w", err))
	}
	result.Response = resp
	hc.Response = resp
	e.hooks.Dispatch(hooks.AfterRequest, hc)

	extracted, err := extract.Apply(resp, c.Extract, fork)
	result.Extracted = extracted
	if err != nil {
		return errored(err)
	}

	result.Rules = e.newEvaluator(resolver, suite).EvaluateAll(resp, c.Validate)
	result.Outcome = OutcomePass
	for _, r := range result.Rules {
		if !r.Passed {
			result.Outcome = OutcomeFail
			break
		}
	}

	hc.Result = result
	if result.Outcome == OutcomePass {
		e.hooks.Dispatch(hooks.OnSuccess, hc)
	} else {
		e.hooks.Dispatch(hooks.OnFailure, hc)
	}
	e.hooks.Dispatch(hooks.AfterTest, hc)
	return result
}

func (e *Engine) newEvaluator(resolver *scope.Resolver, suite *spec.Suite) *validate.Evaluator {
	opts := []validate.Option{validate.WithResolver(resolver)}
	if suite.Path != "" {
		opts = append(opts, validate.WithBaseDir(filepath.Dir(suite.Path)))
	}
	for name, fn := range e.predicates {
		opts = append(opts, validate.WithPredicate(name, fn))
	}
	return validate.NewEvaluator(opts...)
}

// buildRequest resolves every template in the request spec against the
// case scope. Suite default headers sit under case headers.
func (e *Engine) buildRequest(resolver *scope.Resolver, suite *spec.Suite, c *spec.Case) (*httpx.Request, error) {
	url, err := resolver.ResolveString(c.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("resolving url: %w", err)
	}

	headers := make(map[string]string, len(suite.Defaults.Headers)+len(c.Request.Headers))
	for k, v := range suite.Defaults.Headers {
		headers[k] = v
	}
	for k, t := range c.Request.Headers {
		v, err := resolver.ResolveString(t)
		if err != nil {
			return nil, fmt.Errorf("resolving header %s: %w", k, err)
		}
		headers[k] = v
	}

	body, isJSON, err := buildBody(resolver, c.Request.Body)
	if err != nil {
		return nil, err
	}
	if isJSON {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	req := &httpx.Request{
		Method:  c.Request.Method,
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: c.EffectiveTimeout(suite.Defaults),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// buildBody resolves and serializes the declarative body. Strings ship
// as-is; structured values encode as JSON and report isJSON so the
// caller can default the content type.
func buildBody(resolver *scope.Resolver, body any) (data []byte, isJSON bool, err error) {
	if body == nil {
		return nil, false, nil
	}
	resolved, err := resolver.ResolveValue(body)
	if err != nil {
		return nil, false, fmt.Errorf("resolving body: %w", err)
	}
	switch v := resolved.(type) {
	case string:
		return []byte(v), false, nil
	case []byte:
		return v, false, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("encoding body: %w", err)
		}
		return encoded, true, nil
	}
}
