package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restflow/restflow/packages/engine"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(outcomes ...engine.Outcome) *engine.RunResult {
	suite := &engine.SuiteResult{Suite: "users"}
	for i, o := range outcomes {
		c := &engine.CaseResult{
			Name:     fmt.Sprintf("case %d", i+1),
			Module:   "auth",
			Outcome:  o,
			Duration: time.Duration(i+1) * 10 * time.Millisecond,
		}
		if o == engine.OutcomeError {
			c.Err = fmt.Errorf("boom")
		}
		suite.Cases = append(suite.Cases, c)
		switch o {
		case engine.OutcomePass:
			suite.Passed++
		case engine.OutcomeFail:
			suite.Failed++
		case engine.OutcomeError:
			suite.Errors++
		case engine.OutcomeSkip:
			suite.Skipped++
		}
	}
	return &engine.RunResult{
		Suites:   []*engine.SuiteResult{suite},
		Duration: 100 * time.Millisecond,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, sampleRun(engine.OutcomePass, engine.OutcomeFail, engine.OutcomeError))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Errors)
	assert.False(t, r.Ok())
	assert.Equal(t, 100*time.Millisecond, r.Duration)
}

func TestStore_Cases(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, sampleRun(engine.OutcomePass, engine.OutcomeError))
	require.NoError(t, err)

	cases, err := store.Cases(ctx, id)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "case 1", cases[0].Name)
	assert.Equal(t, "users", cases[0].Suite)
	assert.Equal(t, "auth", cases[0].Module)
	assert.Equal(t, "pass", cases[0].Outcome)
	assert.Empty(t, cases[0].Error)
	assert.Equal(t, "error", cases[1].Outcome)
	assert.Equal(t, "boom", cases[1].Error)
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.Record(ctx, sampleRun(engine.OutcomePass))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[4], runs[0].ID, "newest first")
	assert.Equal(t, ids[2], runs[2].ID)
}

func TestStore_Prune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, sampleRun(engine.OutcomePass))
		require.NoError(t, err)
	}

	require.NoError(t, store.Prune(ctx, 2))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	assert.Error(t, store.Prune(ctx, 0))
}
