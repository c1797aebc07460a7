package scope

import (
	"sync"
)

// Layer identifies one level of the variable store.
type Layer int

const (
	LayerGlobal Layer = iota
	LayerSuite
	LayerCase
	LayerExtracted

	layerCount
)

func (l Layer) String() string {
	switch l {
	case LayerGlobal:
		return "global"
	case LayerSuite:
		return "suite"
	case LayerCase:
		return "case"
	case LayerExtracted:
		return "extracted"
	default:
		return "unknown"
	}
}

// Scope is a layered key/value store. Lookup walks extracted -> case ->
// suite -> global; the most recent write wins within a layer.
//
// A Scope is safe for concurrent use. Case isolation during parallel
// execution comes from Fork, which copies the shared global and suite
// layers into a fresh Scope whose case/extracted layers belong to exactly
// one running case.
type Scope struct {
	mu     sync.RWMutex
	layers [layerCount]map[string]any
}

func New() *Scope {
	s := &Scope{}
	for i := range s.layers {
		s.layers[i] = make(map[string]any)
	}
	return s
}

// Set writes a variable into the given layer, overwriting any same-named
// key in that layer only. Parent layers are never touched.
func (s *Scope) Set(layer Layer, name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[layer][name] = value
}

// SetAll writes every entry of vars into the given layer.
func (s *Scope) SetAll(layer Layer, vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range vars {
		s.layers[layer][k] = v
	}
}

// Lookup returns the value for name from the innermost layer that holds it.
func (s *Scope) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for l := layerCount - 1; l >= 0; l-- {
		if v, ok := s.layers[l][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether name is visible from any layer.
func (s *Scope) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Fork returns an isolated copy for one case execution: the global and
// suite layers are copied as of now, the case and extracted layers start
// empty. Writes to the fork never become visible to the parent or to
// sibling forks.
func (s *Scope) Fork() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child := New()
	for k, v := range s.layers[LayerGlobal] {
		child.layers[LayerGlobal][k] = v
	}
	for k, v := range s.layers[LayerSuite] {
		child.layers[LayerSuite][k] = v
	}
	return child
}

// Snapshot returns a copy of one layer's contents.
func (s *Scope) Snapshot(layer Layer) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.layers[layer]))
	for k, v := range s.layers[layer] {
		out[k] = v
	}
	return out
}

// Flatten returns the effective view of all layers, innermost winning.
func (s *Scope) Flatten() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any)
	for l := Layer(0); l < layerCount; l++ {
		for k, v := range s.layers[l] {
			out[k] = v
		}
	}
	return out
}
