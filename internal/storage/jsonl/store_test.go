package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "memory.jsonl"))
	require.NoError(t, err)
	return store
}

func TestLoadMissingFileYieldsEmptyGraph(t *testing.T) {
	store := newTestStore(t)

	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Entities)
	assert.Empty(t, g.Relations)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := storage.NewGraph()
	g.Entities = append(g.Entities, &types.Entity{
		Name:           "Alice",
		EntityType:     "Person",
		Observations:   []string{"likes graphs"},
		Tags:           []string{"team"},
		CreatedAt:      "2025-01-01T00:00:00.000Z",
		LastAccessed:   "2025-01-02T00:00:00.000Z",
		AccessCount:    3,
		RelevanceScore: 1.2,
	})
	g.Relations = append(g.Relations, &types.Relation{
		From:         "Alice",
		To:           "Bob",
		RelationType: "knows",
		Metadata:     &types.RelationMetadata{Confidence: 0.9, Source: "chat"},
		CreatedAt:    "2025-01-01T00:00:00.000Z",
		LastAccessed: "2025-01-01T00:00:00.000Z",
	})

	require.NoError(t, store.Save(ctx, g))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Entities, 1)
	require.Len(t, loaded.Relations, 1)
	assert.Equal(t, g.Entities[0], loaded.Entities[0])
	assert.Equal(t, g.Relations[0], loaded.Relations[0])
}

func TestSaveIsByteStableAcrossRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := storage.NewGraph()
	g.Entities = append(g.Entities, &types.Entity{
		Name:         "Note",
		EntityType:   "Note",
		Observations: []string{},
		CreatedAt:    "2025-01-01T00:00:00.000Z",
		LastAccessed: "2025-01-01T00:00:00.000Z",
	})
	require.NoError(t, store.Save(ctx, g))

	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, loaded))

	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestLoadSkipsBlankLines(t *testing.T) {
	store := newTestStore(t)
	content := `{"type":"entity","name":"A","entityType":"Note","observations":[],"createdAt":"2025-01-01T00:00:00.000Z","lastAccessed":"2025-01-01T00:00:00.000Z","accessCount":1,"relevanceScore":1}

{"type":"relation","from":"A","to":"A","relationType":"self","createdAt":"2025-01-01T00:00:00.000Z"}
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.Entities, 1)
	assert.Len(t, g.Relations, 1)
}

func TestLoadMalformedLineAbortsWholeLoad(t *testing.T) {
	store := newTestStore(t)
	content := `{"type":"entity","name":"A","entityType":"Note"}
{this is not json}
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadUnknownRecordTypeFails(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"type":"widget"}`+"\n"), 0o600))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown record type")
}

func TestLoadNormalizesLegacyRecords(t *testing.T) {
	store := newTestStore(t)
	// No lastAccessed, nil observations, metadata without confidence.
	content := `{"type":"entity","name":"Old","entityType":"Note","createdAt":"2024-06-01T00:00:00.000Z"}
{"type":"relation","from":"Old","to":"Old","relationType":"self","metadata":{"source":"import"},"createdAt":"2024-06-01T00:00:00.000Z"}
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

	g, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Entities, 1)
	require.Len(t, g.Relations, 1)

	assert.Equal(t, []string{}, g.Entities[0].Observations)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", g.Entities[0].LastAccessed)
	assert.Equal(t, 1.0, g.Relations[0].Metadata.Confidence)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestNewStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "memory.jsonl")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), storage.NewGraph()))
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
