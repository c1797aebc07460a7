package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_LayerPrecedence(t *testing.T) {
	s := New()
	s.Set(LayerGlobal, "name", "global")
	s.Set(LayerSuite, "name", "suite")

	v, ok := s.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "suite", v)

	s.Set(LayerCase, "name", "case")
	v, _ = s.Lookup("name")
	assert.Equal(t, "case", v)

	s.Set(LayerExtracted, "name", "extracted")
	v, _ = s.Lookup("name")
	assert.Equal(t, "extracted", v)
}

func TestScope_InnerWriteNeverTouchesParentLayer(t *testing.T) {
	s := New()
	s.Set(LayerSuite, "token", "original")
	s.Set(LayerExtracted, "token", "overridden")

	assert.Equal(t, "original", s.Snapshot(LayerSuite)["token"])
	assert.Equal(t, "overridden", s.Snapshot(LayerExtracted)["token"])
}

func TestScope_ForkIsolation(t *testing.T) {
	parent := New()
	parent.Set(LayerGlobal, "base_url", "https://api.example.com")
	parent.Set(LayerSuite, "token", "abc")

	a := parent.Fork()
	b := parent.Fork()

	a.Set(LayerExtracted, "uid", 42)

	_, ok := b.Lookup("uid")
	assert.False(t, ok, "sibling fork must not see extracted values")
	_, ok = parent.Lookup("uid")
	assert.False(t, ok, "parent must not see extracted values")

	v, ok := a.Lookup("base_url")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", v)
}

func TestScope_PromotionVisibleToLaterForks(t *testing.T) {
	parent := New()
	fork := parent.Fork()
	fork.Set(LayerExtracted, "session", "s-1")

	// Promotion writes back to the shared scope.
	parent.Set(LayerSuite, "session", "s-1")

	later := parent.Fork()
	v, ok := later.Lookup("session")
	require.True(t, ok)
	assert.Equal(t, "s-1", v)
}

func TestScope_Flatten(t *testing.T) {
	s := New()
	s.Set(LayerGlobal, "a", 1)
	s.Set(LayerSuite, "b", 2)
	s.Set(LayerCase, "a", 3)

	flat := s.Flatten()
	assert.Equal(t, 3, flat["a"])
	assert.Equal(t, 2, flat["b"])
}
