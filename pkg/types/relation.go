package types

// RelationMetadata carries optional context about a relation.
type RelationMetadata struct {
	Confidence float64 `json:"confidence"`        // 0.0–1.0, defaults to 1.0 at creation
	Source     string  `json:"source,omitempty"`  // Where the relation came from
	Notes      string  `json:"notes,omitempty"`   // Free-text notes
}

// Relation represents a directed, typed edge between two entity names.
// At most one relation exists per exact (from, to, relationType) triple.
// Endpoints are validated at creation time only; the store does not
// continuously re-check them afterward.
type Relation struct {
	From         string            `json:"from"`               // Source entity name
	To           string            `json:"to"`                 // Target entity name
	RelationType string            `json:"relationType"`       // Active-voice verb phrase by convention
	Metadata     *RelationMetadata `json:"metadata,omitempty"` // Optional confidence/source/notes
	CreatedAt    string            `json:"createdAt"`          // Creation timestamp (TimeLayout)
	LastAccessed string            `json:"lastAccessed,omitempty"` // Most recent touch
}

// Matches reports whether the relation matches the exact triple.
func (r *Relation) Matches(from, to, relationType string) bool {
	return r.From == from && r.To == to && r.RelationType == relationType
}

// Involves reports whether name appears as either endpoint.
func (r *Relation) Involves(name string) bool {
	return r.From == name || r.To == name
}

// Normalize applies the field-defaulting pass for relations loaded from
// older graph files. Idempotent.
func (r *Relation) Normalize() {
	if r.Metadata != nil && r.Metadata.Confidence == 0 {
		r.Metadata.Confidence = 1.0
	}
	if r.LastAccessed == "" {
		r.LastAccessed = r.CreatedAt
	}
}
