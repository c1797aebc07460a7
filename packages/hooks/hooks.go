package hooks

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/restflow/restflow/packages/httpx"
)

// Point is one lifecycle moment callbacks can attach to.
type Point int

const (
	BeforeSuite Point = iota
	BeforeModule
	BeforeTest
	BeforeRequest
	AfterRequest
	OnSuccess
	OnFailure
	OnError
	OnSkip
	AfterTest
	AfterModule
	AfterSuite
	Teardown
)

var pointNames = map[Point]string{
	BeforeSuite:   "before-suite",
	BeforeModule:  "before-module",
	BeforeTest:    "before-test",
	BeforeRequest: "before-request",
	AfterRequest:  "after-request",
	OnSuccess:     "on-success",
	OnFailure:     "on-failure",
	OnError:       "on-error",
	OnSkip:        "on-skip",
	AfterTest:     "after-test",
	AfterModule:   "after-module",
	AfterSuite:    "after-suite",
	Teardown:      "teardown",
}

func (p Point) String() string {
	if name, ok := pointNames[p]; ok {
		return name
	}
	return fmt.Sprintf("point(%d)", int(p))
}

// Context carries per-call state into callbacks. Callbacks share nothing
// beyond what the context exposes; the manager stores no test data.
type Context struct {
	Suite    string
	Module   string
	Case     string
	Phase    Point
	Request  *httpx.Request
	Response *httpx.Response
	Err      error
	Result   any
	Vars     map[string]any
	Metadata map[string]any
}

// Callback is one lifecycle hook function.
type Callback func(hc *Context) error

// Registration binds a callback to a point. Enable/Disable may be called
// at any time, including between dispatches.
type Registration struct {
	point    Point
	priority int
	order    int
	gating   bool
	name     string
	enabled  atomic.Bool
	fn       Callback
}

func (r *Registration) Enable()       { r.enabled.Store(true) }
func (r *Registration) Disable()      { r.enabled.Store(false) }
func (r *Registration) Enabled() bool { return r.enabled.Load() }
func (r *Registration) Gating() bool  { return r.gating }
func (r *Registration) Point() Point  { return r.point }

// RegOption configures a registration.
type RegOption func(*Registration)

// WithPriority orders dispatch: higher priority runs first.
func WithPriority(p int) RegOption {
	return func(r *Registration) {
		r.priority = p
	}
}

// WithName labels the registration in logs.
func WithName(name string) RegOption {
	return func(r *Registration) {
		r.name = name
	}
}

// Disabled registers the callback switched off.
func Disabled() RegOption {
	return func(r *Registration) {
		r.enabled.Store(false)
	}
}

// AsGating marks a pre-check: its failure converts to a case-level error
// before the request is dispatched. Only meaningful on before-test and
// before-request.
func AsGating() RegOption {
	return func(r *Registration) {
		r.gating = true
	}
}

// Manager holds the hook registry. It is safe for concurrent dispatch;
// the registry itself is typically populated once at startup.
type Manager struct {
	mu     sync.RWMutex
	regs   map[Point][]*Registration
	seq    int
	logger *zap.Logger
}

type ManagerOption func(*Manager)

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		regs:   make(map[Point][]*Registration),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register attaches a callback to a lifecycle point and returns the
// registration handle.
func (m *Manager) Register(point Point, fn Callback, opts ...RegOption) *Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg := &Registration{point: point, order: m.seq, fn: fn}
	reg.enabled.Store(true)
	m.seq++
	for _, opt := range opts {
		opt(reg)
	}
	m.regs[point] = append(m.regs[point], reg)
	return reg
}

// ordered returns the enabled registrations for a point, priority
// descending then registration order ascending.
func (m *Manager) ordered(point Point) []*Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	regs := make([]*Registration, 0, len(m.regs[point]))
	for _, r := range m.regs[point] {
		if r.Enabled() {
			regs = append(regs, r)
		}
	}
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].order < regs[j].order
	})
	return regs
}

// Dispatch invokes every enabled callback at the point. Errors and
// panics are logged and isolated from sibling callbacks and from the
// case outcome.
func (m *Manager) Dispatch(point Point, hc *Context) {
	hc.Phase = point
	for _, reg := range m.ordered(point) {
		if err := m.invoke(reg, hc); err != nil {
			m.logger.Error("hook failed",
				zap.String("point", point.String()),
				zap.String("hook", reg.name),
				zap.String("case", hc.Case),
				zap.Error(err))
		}
	}
}

// DispatchGating invokes callbacks like Dispatch but returns the first
// gating failure, which the caller converts into a case-level error.
// Non-gating failures remain observational.
func (m *Manager) DispatchGating(point Point, hc *Context) error {
	hc.Phase = point
	for _, reg := range m.ordered(point) {
		err := m.invoke(reg, hc)
		if err == nil {
			continue
		}
		if reg.gating {
			return fmt.Errorf("gating hook %s failed: %w", reg.label(), err)
		}
		m.logger.Error("hook failed",
			zap.String("point", point.String()),
			zap.String("hook", reg.name),
			zap.String("case", hc.Case),
			zap.Error(err))
	}
	return nil
}

func (m *Manager) invoke(reg *Registration, hc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return reg.fn(hc)
}

func (r *Registration) label() string {
	if r.name != "" {
		return r.name
	}
	return fmt.Sprintf("%s#%d", r.point, r.order)
}

// Count reports the number of registrations at a point, enabled or not.
func (m *Manager) Count(point Point) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.regs[point])
}
