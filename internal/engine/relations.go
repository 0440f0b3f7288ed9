package engine

import (
	"context"
	"fmt"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// CreateRelationParams are the inputs for CreateRelation.
type CreateRelationParams struct {
	From         string
	To           string
	RelationType string
	Metadata     *types.RelationMetadata
}

// CreateRelation creates a directed, typed edge between two existing
// entities. It fails with ErrEndpointNotFound when either endpoint is absent
// and ErrDuplicateRelation when the exact (from, to, relationType) triple
// already exists. Metadata confidence defaults to 1.0. Working memory is
// touched for both endpoints.
func (m *Manager) CreateRelation(ctx context.Context, sess *session.Session, p CreateRelationParams) (*types.Relation, error) {
	if p.From == "" || p.To == "" || p.RelationType == "" {
		return nil, fmt.Errorf("relation requires from, to, and relationType")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if g.FindEntity(p.From) == nil {
		return nil, fmt.Errorf("relation %s-[%s]->%s: %q: %w", p.From, p.RelationType, p.To, p.From, storage.ErrEndpointNotFound)
	}
	if g.FindEntity(p.To) == nil {
		return nil, fmt.Errorf("relation %s-[%s]->%s: %q: %w", p.From, p.RelationType, p.To, p.To, storage.ErrEndpointNotFound)
	}
	if g.FindRelation(p.From, p.To, p.RelationType) != nil {
		return nil, fmt.Errorf("relation %s-[%s]->%s: %w", p.From, p.RelationType, p.To, storage.ErrDuplicateRelation)
	}

	meta := p.Metadata
	if meta == nil {
		meta = &types.RelationMetadata{}
	}
	if meta.Confidence == 0 {
		meta.Confidence = 1.0
	}

	now := m.now()
	r := &types.Relation{
		From:         p.From,
		To:           p.To,
		RelationType: p.RelationType,
		Metadata:     meta,
		CreatedAt:    now,
		LastAccessed: now,
	}
	g.Relations = append(g.Relations, r)

	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.TouchAll(ctx, p.From, p.To)
	return r, nil
}

// RelationQuery filters GetRelations results.
type RelationQuery struct {
	// Direction is one of incoming, outgoing, or both. Empty means both.
	Direction string

	// RelationType restricts results to one relation type when non-empty.
	RelationType string
}

// GetRelations returns the relations involving the named entity, filtered by
// direction and optional type. Working memory is touched only when results
// were found. An unknown entity simply yields no results.
func (m *Manager) GetRelations(ctx context.Context, sess *session.Session, name string, q RelationQuery) ([]*types.Relation, error) {
	if !types.IsValidDirection(q.Direction) {
		return nil, fmt.Errorf("invalid direction %q", q.Direction)
	}

	g, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := []*types.Relation{}
	for _, r := range g.Relations {
		if q.RelationType != "" && r.RelationType != q.RelationType {
			continue
		}
		switch q.Direction {
		case types.DirectionIncoming:
			if r.To != name {
				continue
			}
		case types.DirectionOutgoing:
			if r.From != name {
				continue
			}
		default: // both
			if !r.Involves(name) {
				continue
			}
		}
		results = append(results, r)
	}

	if len(results) > 0 {
		sess.Touch(ctx, name)
	}
	return results, nil
}

// UpdateRelationParams carries the partial update for UpdateRelation.
type UpdateRelationParams struct {
	Metadata *types.RelationMetadata
}

// UpdateRelation updates the relation matching the exact triple. Absence is
// a reported no-op: (nil, nil). The relation's lastAccessed is bumped.
func (m *Manager) UpdateRelation(ctx context.Context, sess *session.Session, from, to, relationType string, p UpdateRelationParams) (*types.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	r := g.FindRelation(from, to, relationType)
	if r == nil {
		return nil, nil
	}

	if p.Metadata != nil {
		meta := *p.Metadata
		if meta.Confidence == 0 {
			meta.Confidence = 1.0
		}
		r.Metadata = &meta
	}
	r.LastAccessed = m.now()

	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.TouchAll(ctx, from, to)
	return r, nil
}

// DeleteRelation removes the relation matching the exact triple. Returns
// false when no such relation exists.
func (m *Manager) DeleteRelation(ctx context.Context, sess *session.Session, from, to, relationType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}

	found := false
	relations := g.Relations[:0]
	for _, r := range g.Relations {
		if !found && r.Matches(from, to, relationType) {
			found = true
			continue
		}
		relations = append(relations, r)
	}
	if !found {
		return false, nil
	}
	g.Relations = relations

	if err := m.store.Save(ctx, g); err != nil {
		return false, err
	}
	return true, nil
}
