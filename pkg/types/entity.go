package types

// Entity represents a named node in the knowledge graph.
// The name is the primary key and is immutable once created. Free-text
// observations carry the entity's content; tags, project membership, and the
// parent/children links provide the structural axes that search filters on.
type Entity struct {
	// Core identity
	Name         string   `json:"name"`         // Unique identifier, immutable
	EntityType   string   `json:"entityType"`   // Free-text classification (e.g. "Person", "Project")
	Observations []string `json:"observations"` // Ordered free-text observations

	// Organization
	ProjectID    string   `json:"projectId,omitempty"`    // Name of the owning Project entity
	Tags         []string `json:"tags,omitempty"`         // Cross-cutting filter tags
	ParentEntity string   `json:"parentEntity,omitempty"` // Name of the parent entity, if any
	Children     []string `json:"children,omitempty"`     // Names of child entities

	// Access bookkeeping
	CreatedAt    string  `json:"createdAt"`    // Creation timestamp (TimeLayout)
	LastAccessed string  `json:"lastAccessed"` // Most recent read/write touch
	AccessCount  int     `json:"accessCount"`  // Incremented on every touch
	// RelevanceScore is the persisted, access-driven relevance. It only ever
	// increments. The transient per-query text-match score lives on
	// SearchResult.SearchScore and is never written back here.
	RelevanceScore float64 `json:"relevanceScore"`

	// IsDeprecated marks a soft delete. Deprecated entities keep all data and
	// relations; they are excluded from search unless explicitly requested.
	IsDeprecated bool `json:"isDeprecated,omitempty"`
}

// Summary returns the lightweight projection of the entity used by
// whole-graph reads. Observations are intentionally dropped.
func (e *Entity) Summary() EntitySummary {
	return EntitySummary{
		Name:         e.Name,
		EntityType:   e.EntityType,
		ProjectID:    e.ProjectID,
		Tags:         e.Tags,
		ParentEntity: e.ParentEntity,
		HasChildren:  len(e.Children) > 0,
		IsDeprecated: e.IsDeprecated,
	}
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsProject reports whether the entity is a project grouping entity.
func (e *Entity) IsProject() bool {
	return e.EntityType == EntityTypeProject
}

// Normalize applies the best-effort field-defaulting pass used when loading
// older graph files. It is idempotent so that load→save round-trips are
// byte-stable.
func (e *Entity) Normalize() {
	if e.Observations == nil {
		e.Observations = []string{}
	}
	if e.LastAccessed == "" {
		e.LastAccessed = e.CreatedAt
	}
}
