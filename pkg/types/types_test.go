package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeSortsLexically(t *testing.T) {
	a := FormatTime(time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC))
	b := FormatTime(time.Date(2025, 3, 9, 8, 0, 0, 500e6, time.UTC))
	c := FormatTime(time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC))

	assert.True(t, a < b)
	assert.True(t, b < c)
	assert.Len(t, a, len(TimeLayout))
}

func TestParseTimeAcceptsRFC3339(t *testing.T) {
	canonical, err := ParseTime("2025-03-09T08:00:00.000Z")
	require.NoError(t, err)

	legacy, err := ParseTime("2025-03-09T08:00:00Z")
	require.NoError(t, err)

	assert.True(t, canonical.Equal(legacy))

	_, err = ParseTime("not a timestamp")
	assert.Error(t, err)
}

func TestIsValidDirection(t *testing.T) {
	for _, d := range []string{"", DirectionIncoming, DirectionOutgoing, DirectionBoth} {
		assert.True(t, IsValidDirection(d), d)
	}
	assert.False(t, IsValidDirection("sideways"))
}

func TestEntitySummaryDropsObservations(t *testing.T) {
	e := &Entity{
		Name:         "Alice",
		EntityType:   "Person",
		Observations: []string{"works on infra"},
		Tags:         []string{"team"},
		Children:     []string{"Alice/notes"},
	}

	s := e.Summary()
	assert.Equal(t, "Alice", s.Name)
	assert.True(t, s.HasChildren)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "observations")
	assert.NotContains(t, string(data), "works on infra")
}

func TestEntityNormalizeIdempotent(t *testing.T) {
	e := &Entity{Name: "x", CreatedAt: "2025-01-01T00:00:00.000Z"}
	e.Normalize()

	assert.NotNil(t, e.Observations)
	assert.Equal(t, e.CreatedAt, e.LastAccessed)

	before := *e
	e.Normalize()
	assert.Equal(t, before.LastAccessed, e.LastAccessed)
	assert.Len(t, e.Observations, 0)
}

func TestRelationNormalizeDefaultsConfidence(t *testing.T) {
	r := &Relation{
		From:         "a",
		To:           "b",
		RelationType: "knows",
		Metadata:     &RelationMetadata{},
		CreatedAt:    "2025-01-01T00:00:00.000Z",
	}
	r.Normalize()

	assert.Equal(t, 1.0, r.Metadata.Confidence)
	assert.Equal(t, r.CreatedAt, r.LastAccessed)

	// An explicit confidence survives.
	r2 := &Relation{Metadata: &RelationMetadata{Confidence: 0.4}}
	r2.Normalize()
	assert.Equal(t, 0.4, r2.Metadata.Confidence)
}

func TestRelationMatchesAndInvolves(t *testing.T) {
	r := &Relation{From: "a", To: "b", RelationType: "knows"}

	assert.True(t, r.Matches("a", "b", "knows"))
	assert.False(t, r.Matches("b", "a", "knows"))
	assert.True(t, r.Involves("a"))
	assert.True(t, r.Involves("b"))
	assert.False(t, r.Involves("c"))
}

func TestEntityJSONFieldNames(t *testing.T) {
	e := Entity{
		Name:           "n",
		EntityType:     "T",
		Observations:   []string{},
		CreatedAt:      "2025-01-01T00:00:00.000Z",
		LastAccessed:   "2025-01-01T00:00:00.000Z",
		AccessCount:    1,
		RelevanceScore: 1.0,
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	for _, field := range []string{`"entityType"`, `"createdAt"`, `"lastAccessed"`, `"accessCount"`, `"relevanceScore"`} {
		assert.Contains(t, string(data), field)
	}
}
