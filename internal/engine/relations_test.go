package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

func TestCreateRelationValidatesEndpoints(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})

	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "ghost", RelationType: "references"})
	assert.ErrorIs(t, err, storage.ErrEndpointNotFound)

	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "ghost", To: "a", RelationType: "references"})
	assert.ErrorIs(t, err, storage.ErrEndpointNotFound)

	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "a"})
	assert.Error(t, err) // relationType required
}

func TestCreateRelationDefaultsMetadata(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "b", EntityType: "Note"})

	r, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	require.NoError(t, err)
	require.NotNil(t, r.Metadata)
	assert.Equal(t, 1.0, r.Metadata.Confidence)
	assert.NotEmpty(t, r.CreatedAt)
	assert.Equal(t, r.CreatedAt, r.LastAccessed)

	// Both endpoints land in working memory.
	wm := sess.Snapshot()
	assert.Contains(t, wm.ActiveEntities, "a")
	assert.Contains(t, wm.ActiveEntities, "b")
}

func TestCreateRelationRejectsExactDuplicate(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "b", EntityType: "Note"})

	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	require.NoError(t, err)

	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	assert.ErrorIs(t, err, storage.ErrDuplicateRelation)

	// A different type between the same endpoints is a different edge.
	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "depends_on"})
	assert.NoError(t, err)
	// So is the reverse direction.
	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "b", To: "a", RelationType: "references"})
	assert.NoError(t, err)
}

func TestGetRelationsDirectionFiltering(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		mustCreate(t, m, sess, CreateEntityParams{Name: name, EntityType: "Note"})
	}
	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	require.NoError(t, err)
	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "c", To: "a", RelationType: "references"})
	require.NoError(t, err)
	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "c", RelationType: "depends_on"})
	require.NoError(t, err)

	outgoing, err := m.GetRelations(ctx, sess, "a", RelationQuery{Direction: types.DirectionOutgoing})
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	incoming, err := m.GetRelations(ctx, sess, "a", RelationQuery{Direction: types.DirectionIncoming})
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "c", incoming[0].From)

	both, err := m.GetRelations(ctx, sess, "a", RelationQuery{})
	require.NoError(t, err)
	assert.Len(t, both, 3)

	typed, err := m.GetRelations(ctx, sess, "a", RelationQuery{RelationType: "depends_on"})
	require.NoError(t, err)
	assert.Len(t, typed, 1)

	_, err = m.GetRelations(ctx, sess, "a", RelationQuery{Direction: "sideways"})
	assert.Error(t, err)
}

func TestGetRelationsUnknownEntityYieldsEmpty(t *testing.T) {
	m, sess := newTestEngine(t)
	relations, err := m.GetRelations(context.Background(), sess, "ghost", RelationQuery{})
	require.NoError(t, err)
	assert.Empty(t, relations)
	// No results means no working-memory touch.
	assert.NotContains(t, sess.Snapshot().ActiveEntities, "ghost")
}

func TestUpdateRelationReplacesMetadata(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "b", EntityType: "Note"})
	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	require.NoError(t, err)

	r, err := m.UpdateRelation(ctx, sess, "a", "b", "references", UpdateRelationParams{
		Metadata: &types.RelationMetadata{Source: "manual review"},
	})
	require.NoError(t, err)
	assert.Equal(t, "manual review", r.Metadata.Source)
	// Confidence re-defaults when the replacement omits it.
	assert.Equal(t, 1.0, r.Metadata.Confidence)
}

func TestUpdateRelationAbsentIsSilentNoOp(t *testing.T) {
	m, sess := newTestEngine(t)
	r, err := m.UpdateRelation(context.Background(), sess, "x", "y", "references", UpdateRelationParams{})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestDeleteRelationExactTripleOnly(t *testing.T) {
	m, sess := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, m, sess, CreateEntityParams{Name: "a", EntityType: "Note"})
	mustCreate(t, m, sess, CreateEntityParams{Name: "b", EntityType: "Note"})
	_, err := m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "references"})
	require.NoError(t, err)
	_, err = m.CreateRelation(ctx, sess, CreateRelationParams{From: "a", To: "b", RelationType: "depends_on"})
	require.NoError(t, err)

	deleted, err := m.DeleteRelation(ctx, sess, "a", "b", "references")
	require.NoError(t, err)
	assert.True(t, deleted)

	g, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, "depends_on", g.Relations[0].RelationType)

	deleted, err = m.DeleteRelation(ctx, sess, "a", "b", "references")
	require.NoError(t, err)
	assert.False(t, deleted)
}
