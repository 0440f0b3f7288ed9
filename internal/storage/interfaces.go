// Package storage defines the persistence contracts for the mnemo knowledge
// graph. The graph store deals in whole graphs: every load returns the full
// entity/relation set and every save rewrites the backing file completely.
// There is no incremental append and no partial-write protection beyond an
// atomic rename.
package storage

import (
	"context"
	"errors"

	"github.com/mnemo-ai/mnemo/pkg/types"
)

var (
	// ErrNotFound indicates that the requested entity or relation was not
	// found. Read and delete style operations report absence as a normal
	// return value instead; this sentinel is for callers that need to
	// distinguish the case explicitly.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntity indicates an attempt to create an entity whose name
	// already exists.
	ErrDuplicateEntity = errors.New("entity already exists")

	// ErrDuplicateRelation indicates an attempt to create a relation whose
	// exact (from, to, relationType) triple already exists.
	ErrDuplicateRelation = errors.New("relation already exists")

	// ErrEndpointNotFound indicates a relation endpoint that does not
	// reference an existing entity.
	ErrEndpointNotFound = errors.New("relation endpoint entity not found")

	// ErrParentNotFound indicates a parentEntity assignment naming an entity
	// that does not exist.
	ErrParentNotFound = errors.New("parent entity not found")

	// ErrHierarchyCycle indicates a parentEntity reassignment that would make
	// an entity its own ancestor.
	ErrHierarchyCycle = errors.New("parent assignment would create a cycle")
)

// Graph is the full in-memory graph: every entity and every relation.
type Graph struct {
	Entities  []*types.Entity
	Relations []*types.Relation
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Entities: []*types.Entity{}, Relations: []*types.Relation{}}
}

// FindEntity returns the entity with the given name, or nil. Linear scan;
// the store maintains no index structures.
func (g *Graph) FindEntity(name string) *types.Entity {
	for _, e := range g.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindRelation returns the relation matching the exact triple, or nil.
func (g *Graph) FindRelation(from, to, relationType string) *types.Relation {
	for _, r := range g.Relations {
		if r.Matches(from, to, relationType) {
			return r
		}
	}
	return nil
}

// GraphStore loads and saves the whole graph.
type GraphStore interface {
	// Load reads the full graph from the backing file. A missing file is not
	// an error: it yields an empty graph. A malformed line fails the whole
	// load; no partial graph is ever returned.
	Load(ctx context.Context) (*Graph, error)

	// Save serializes every entity and every relation (entities first) and
	// atomically overwrites the backing file with the full content.
	Save(ctx context.Context, g *Graph) error

	// Path returns the backing file path.
	Path() string
}
