package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/restflow/restflow/packages/builtin"
	"github.com/restflow/restflow/packages/hooks"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/spec"
	"github.com/restflow/restflow/packages/validate"
)

const (
	// DefaultWorkers is the worker-pool size in parallel mode
	DefaultWorkers = 5
)

// Transport sends one resolved request and returns a structured response
// or a transport error. Implementations must be safe for concurrent use.
type Transport interface {
	Do(ctx context.Context, req *httpx.Request) (*httpx.Response, error)
}

// Config carries run-level settings. The worker-pool size is
// configuration, never hard-coded.
type Config struct {
	Parallel       bool
	Workers        int
	RateLimit      float64 // requests per second across workers, 0 = unlimited
	DefaultTimeout time.Duration
	Bail           bool // treat every case failure as suite-aborting
}

// Engine orchestrates suite execution. The control logic itself is
// single-threaded; in parallel mode it only blocks waiting for worker
// completion.
type Engine struct {
	transport  Transport
	hooks      *hooks.Manager
	funcs      *builtin.Registry
	logger     *zap.Logger
	limiter    *rate.Limiter
	mu         sync.Mutex // guards globals across suites and promotions
	globals    map[string]any
	predicates map[string]validate.Predicate
	config     *Config
}

type Option func(*Engine)

// WithTransport replaces the HTTP client, e.g. with a fake in tests.
func WithTransport(t Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// WithHooks injects the hook manager shared with external registrations.
func WithHooks(m *hooks.Manager) Option {
	return func(e *Engine) {
		e.hooks = m
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithGlobals seeds the global variable layer for the whole run.
func WithGlobals(vars map[string]any) Option {
	return func(e *Engine) {
		for k, v := range vars {
			e.globals[k] = v
		}
	}
}

// WithFunctions replaces the template function registry.
func WithFunctions(funcs *builtin.Registry) Option {
	return func(e *Engine) {
		e.funcs = funcs
	}
}

// WithPredicate registers a custom validation predicate.
func WithPredicate(name string, fn validate.Predicate) Option {
	return func(e *Engine) {
		e.predicates[name] = fn
	}
}

func New(cfg *Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	e := &Engine{
		hooks:      hooks.NewManager(),
		funcs:      builtin.NewRegistry(),
		logger:     zap.NewNop(),
		globals:    make(map[string]any),
		predicates: make(map[string]validate.Predicate),
		config:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.transport == nil {
		clientOpts := []httpx.ClientOption{}
		if cfg.DefaultTimeout > 0 {
			clientOpts = append(clientOpts, httpx.WithTimeout(cfg.DefaultTimeout))
		}
		e.transport = httpx.NewClient(clientOpts...)
	}
	if cfg.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return e
}

// Hooks returns the hook manager, the extension surface for external
// setup/teardown code.
func (e *Engine) Hooks() *hooks.Manager {
	return e.hooks
}

// Run executes every suite in order and aggregates the results. A
// cancelled context stops dispatching new cases; in-flight requests
// finish or time out naturally.
func (e *Engine) Run(ctx context.Context, suites []*spec.Suite) *RunResult {
	start := time.Now()
	run := &RunResult{Suites: make([]*SuiteResult, 0, len(suites))}
	for _, suite := range suites {
		run.Suites = append(run.Suites, e.RunSuite(ctx, suite))
	}
	run.Duration = time.Since(start)
	return run
}
