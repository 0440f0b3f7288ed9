// Package types defines the core data structures for the mnemo knowledge
// graph: entities, relations, projects, the summary projection returned by
// whole-graph reads, and the session-scoped working-memory context.
package types

import "time"

// TimeLayout is the timestamp format used everywhere in the persisted graph.
// Fixed-width millisecond precision in UTC, so timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Now returns the current time formatted with TimeLayout.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime renders t in the persisted timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a persisted timestamp. It accepts both the canonical
// fixed-width layout and plain RFC 3339, which older files may contain.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Direction constants for relation queries.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionBoth     = "both"
)

// IsValidDirection checks if the given direction is valid.
// Empty string is considered valid and means "both".
func IsValidDirection(direction string) bool {
	switch direction {
	case "", DirectionIncoming, DirectionOutgoing, DirectionBoth:
		return true
	}
	return false
}

// EntityTypeProject is the entity type used for project entities. Projects
// are ordinary entities with this type, projectId set to their own name, and
// the ProjectTag tag.
const EntityTypeProject = "Project"

// ProjectTag is the tag automatically applied to project entities.
const ProjectTag = "project"

// DeprecatedTag is the tag applied to entities when they are soft-deleted.
const DeprecatedTag = "deprecated"

// EntitySummary is the lightweight projection of an entity returned by
// whole-graph reads. It deliberately excludes observations to bound the
// response size; callers use per-entity lookups for observation text.
type EntitySummary struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	ProjectID    string   `json:"projectId,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ParentEntity string   `json:"parentEntity,omitempty"`
	HasChildren  bool     `json:"hasChildren"`
	IsDeprecated bool     `json:"isDeprecated,omitempty"`
}

// GraphSummary is the result of a whole-graph read: every entity as a
// summary plus the full relation list.
type GraphSummary struct {
	Entities  []EntitySummary `json:"entities"`
	Relations []*Relation     `json:"relations"`
}
