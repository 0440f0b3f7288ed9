package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/pkg/types"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "working-memory.json"))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s := newTestSession(t)

	outcome := s.Load(context.Background())
	assert.Equal(t, DefaultsFileMissing, outcome)

	wm := s.Snapshot()
	assert.Empty(t, wm.ActiveEntities)
	assert.Empty(t, wm.RecentlyDiscussed)
}

func TestLoadCorruptFileUsesDefaults(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	outcome := s.Load(context.Background())
	assert.Equal(t, DefaultsCorrupt, outcome)

	// The broken file is left in place for inspection.
	_, err := os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	s.Touch(ctx, "Alice")
	s.SetCurrentProject(ctx, "infra")
	s.SetCurrentTopic(ctx, "migrations")

	reloaded := New(s.Path())
	outcome := reloaded.Load(ctx)
	require.Equal(t, LoadedFromFile, outcome)

	wm := reloaded.Snapshot()
	assert.Equal(t, []string{"Alice"}, wm.ActiveEntities)
	assert.Equal(t, "infra", wm.CurrentProject)
	assert.Equal(t, "migrations", wm.CurrentTopic)
	assert.NotEmpty(t, wm.LastUpdated)
}

func TestTouchUpsertsAndRanks(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	s.Touch(ctx, "Alice")
	s.Touch(ctx, "Bob")
	s.Touch(ctx, "Alice") // second touch: +0.1

	wm := s.Snapshot()
	require.Len(t, wm.RecentlyDiscussed, 2)
	assert.Equal(t, "Alice", wm.RecentlyDiscussed[0].Entity)
	assert.InDelta(t, 1.1, wm.RecentlyDiscussed[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 1.0, wm.RecentlyDiscussed[1].RelevanceScore, 1e-9)

	// Active set holds each name once.
	assert.Equal(t, []string{"Alice", "Bob"}, wm.ActiveEntities)
}

func TestRecentlyDiscussedCappedAtTen(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	// "keeper" is touched twice so it outranks the single-touch entries.
	s.Touch(ctx, "keeper")
	s.Touch(ctx, "keeper")
	for i := 0; i < types.MaxRecentlyDiscussed+3; i++ {
		s.Touch(ctx, fmt.Sprintf("entity-%d", i))
	}

	wm := s.Snapshot()
	assert.Len(t, wm.RecentlyDiscussed, types.MaxRecentlyDiscussed)
	assert.Equal(t, "keeper", wm.RecentlyDiscussed[0].Entity)
}

func TestForgetScrubsEntity(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	s.TouchAll(ctx, "Alice", "Bob")

	s.Forget(ctx, "Alice")

	wm := s.Snapshot()
	assert.Equal(t, []string{"Bob"}, wm.ActiveEntities)
	require.Len(t, wm.RecentlyDiscussed, 1)
	assert.Equal(t, "Bob", wm.RecentlyDiscussed[0].Entity)
}

func TestRecentProjectsMRUDedupedAndCapped(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	for _, p := range []string{"a", "b", "c", "d", "e", "f"} {
		s.SetCurrentProject(ctx, p)
	}
	s.SetCurrentProject(ctx, "c") // moves to front, no duplicate

	wm := s.Snapshot()
	assert.Equal(t, "c", wm.CurrentProject)
	assert.Len(t, wm.RecentProjects, types.MaxRecentProjects)
	assert.Equal(t, "c", wm.RecentProjects[0])

	seen := map[string]int{}
	for _, p := range wm.RecentProjects {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestPendingTriggersDrain(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	id1 := s.AddPendingTrigger(ctx, "decision", "chose jsonl format")
	id2 := s.AddPendingTrigger(ctx, "preference", "prefers dark mode")
	assert.NotEqual(t, id1, id2)

	drained := s.DrainPendingTriggers(ctx)
	require.Len(t, drained, 2)
	assert.Equal(t, id1, drained[0].ID)
	assert.NotEmpty(t, drained[0].DetectedAt)

	assert.Empty(t, s.Snapshot().PendingInformation)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	s.Touch(ctx, "Alice")

	wm := s.Snapshot()
	wm.ActiveEntities[0] = "mutated"
	wm.RecentlyDiscussed[0].Entity = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "Alice", fresh.ActiveEntities[0])
	assert.Equal(t, "Alice", fresh.RecentlyDiscussed[0].Entity)
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// Point the session file at a path whose parent is a file, so MkdirAll fails.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := New(filepath.Join(blocker, "working-memory.json"))
	s.Touch(ctx, "Alice") // save fails, swallowed

	wm := s.Snapshot()
	assert.Equal(t, []string{"Alice"}, wm.ActiveEntities)
}
