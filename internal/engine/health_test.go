package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHealth(t *testing.T, m *Manager, now time.Time) *HealthEngine {
	t.Helper()
	h := NewHealthEngine(m, DefaultHealthConfig())
	h.clock = func() time.Time { return now }
	return h
}

func TestStalenessBoundaryIsStrict(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m, sess := newTestEngine(t, WithClock(func() time.Time { return created }))
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})

	// Exactly at the threshold: lastAccessed == cutoff, not stale.
	h := newTestHealth(t, m, created.AddDate(0, 0, 60))
	stale, err := h.FindStaleEntities(ctx, 60, "")
	require.NoError(t, err)
	assert.Empty(t, stale)

	// One second past the threshold.
	h = newTestHealth(t, m, created.AddDate(0, 0, 60).Add(time.Second))
	stale, err = h.FindStaleEntities(ctx, 60, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, stale)
}

func TestStalenessResetByAccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m, sess := newTestEngine(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "b", EntityType: "Note"})

	// Accessing "a" 90 days later refreshes its lastAccessed.
	now = now.AddDate(0, 0, 90)
	_, err := m.GetEntity(ctx, sess, "a")
	require.NoError(t, err)

	h := newTestHealth(t, m, now)
	stale, err := h.FindStaleEntities(ctx, 60, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, stale)
}

func TestFindStaleEntitiesUsesConfiguredDefault(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m, sess := newTestEngine(t, WithClock(func() time.Time { return created }))
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})

	h := NewHealthEngine(m, HealthConfig{StaleDays: 30})
	h.clock = func() time.Time { return created.AddDate(0, 0, 45) }

	stale, err := h.FindStaleEntities(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, stale)
}

func TestFindPossibleDuplicates(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	h := newTestHealth(t, m, time.Now())

	mustCreate(t, m, sess, CreateEntityParams{Name: "John Smith", EntityType: "Person"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "Jon Smith", EntityType: "Person"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "Completely Different", EntityType: "Person"})
	// Same name shape but a different type bucket: never compared.
	mustCreate(t, m, sess, CreateEntityParams{Name: "John Smith Inc", EntityType: "Company"})

	pairs, err := h.FindPossibleDuplicates(ctx, "", "", 0)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Person", pairs[0].EntityType)
	assert.ElementsMatch(t, []string{"John Smith", "Jon Smith"}, []string{pairs[0].A, pairs[0].B})
	assert.GreaterOrEqual(t, pairs[0].Similarity, 0.85)

	// A lax threshold widens the findings to every pair in the bucket.
	lax, err := h.FindPossibleDuplicates(ctx, "Person", "", 0.1)
	require.NoError(t, err)
	assert.Len(t, lax, 3)
}

func TestFindPossibleDuplicatesIdenticalDifferentCase(t *testing.T) {
	m, sess := newTestEngine(t)
	h := newTestHealth(t, m, time.Now())

	mustCreate(t, m, sess, CreateEntityParams{Name: "redis", EntityType: "Tool"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "Redis", EntityType: "Tool"})

	pairs, err := h.FindPossibleDuplicates(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 1.0, pairs[0].Similarity)
}

func TestMemoryHealthReport(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	h := newTestHealth(t, m, time.Now())

	mustCreate(t, m, sess, CreateEntityParams{Name: "root", EntityType: "Area", ProjectID: "p1", Tags: []string{"hub"}})
	mustCreate(t, m, sess, CreateEntityParams{Name: "child", EntityType: "Topic", ProjectID: "p1", ParentEntity: "root"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "grandchild", EntityType: "Topic", ProjectID: "p1", ParentEntity: "child"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "loner", EntityType: "Note"})
	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "root", To: "child", RelationType: "contains"})
	require.NoError(t, err)
	_, err = m.DeprecateEntity(ctx, sess, "loner")
	require.NoError(t, err)

	report, err := h.MemoryHealth(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalEntities)
	assert.Equal(t, 1, report.TotalRelations)
	assert.Equal(t, 1, report.DeprecatedCount)
	assert.Equal(t, map[string]int{"p1": 3, "(none)": 1}, report.EntitiesByProject)
	assert.Equal(t, map[string]int{"Area": 1, "Topic": 2, "Note": 1}, report.EntitiesByType)

	// Orphans have no relations in either direction.
	assert.ElementsMatch(t, []string{"grandchild", "loner"}, report.OrphanedEntities)
	// Deprecation adds the deprecated tag, so only the untagged survivors show.
	assert.ElementsMatch(t, []string{"child", "grandchild"}, report.UntaggedEntities)
	assert.Empty(t, report.StaleEntities)

	assert.Equal(t, 2, report.Hierarchy.RootCount)
	assert.Equal(t, 3, report.Hierarchy.MaxDepth)
	assert.Equal(t, 1.0, report.Hierarchy.AvgChildren)
}

func TestMemoryHealthProjectScope(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	h := newTestHealth(t, m, time.Now())

	mustCreate(t, m, sess, CreateEntityParams{Name: "in", EntityType: "Note", ProjectID: "p1"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "out", EntityType: "Note", ProjectID: "p2"})
	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "in", To: "out", RelationType: "references"})
	require.NoError(t, err)

	report, err := h.MemoryHealth(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalEntities)
	// Cross-project relations count when either endpoint is in scope.
	assert.Equal(t, 1, report.TotalRelations)
	assert.Equal(t, map[string]int{"p1": 1}, report.EntitiesByProject)
}

func TestMemoryHealthDoesNotTouch(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	h := newTestHealth(t, m, time.Now())
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})

	_, err := h.MemoryHealth(ctx, "")
	require.NoError(t, err)

	g, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, g.FindEntity("a").AccessCount)
}
