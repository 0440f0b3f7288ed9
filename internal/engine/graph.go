// Package engine implements the knowledge-graph engine: entity and relation
// lifecycle, parent/child bookkeeping, access tracking, text search, and
// health diagnostics.
//
// Every operation that touches storage performs a full load, an in-memory
// mutation, and a full save. The Manager serializes that sequence behind a
// mutex; the file format itself offers no interleaving protection, and the
// intended deployment is one assistant session driving one server instance.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// accessRelevanceIncrement is added to an entity's persisted relevanceScore
// on every read or write touch. The persisted score only ever increments.
const accessRelevanceIncrement = 0.1

// initialAccessRelevance is the relevanceScore stamped on newly created
// entities.
const initialAccessRelevance = 1.0

// Manager owns entity/relation CRUD against the graph store. The session
// handle is passed into every call rather than held as hidden state, so the
// working-memory side effect is visible at call sites and testable.
type Manager struct {
	store storage.GraphStore
	mu    sync.Mutex
	clock func() time.Time
}

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source. Used by tests that need to pin
// timestamps.
func WithClock(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.clock = fn
	}
}

// NewManager creates a graph engine over the given store.
func NewManager(store storage.GraphStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) now() string {
	return types.FormatTime(m.clock())
}

// touchEntity bumps the access bookkeeping on an entity.
func (m *Manager) touchEntity(e *types.Entity) {
	e.LastAccessed = m.now()
	e.AccessCount++
	e.RelevanceScore += accessRelevanceIncrement
}

// Snapshot loads the full graph without recording any access. Read-mostly
// consumers (health metrics, the structural search pass, the HTTP read
// surface) use this so that diagnostics do not perturb lastAccessed.
func (m *Manager) Snapshot(ctx context.Context) (*storage.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(ctx)
}

// ReadGraph returns every entity's summary view plus the full relation list.
// Observations are never included in the summary; callers use GetEntity for
// observation text.
func (m *Manager) ReadGraph(ctx context.Context) (*types.GraphSummary, error) {
	g, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	summary := &types.GraphSummary{
		Entities:  make([]types.EntitySummary, 0, len(g.Entities)),
		Relations: g.Relations,
	}
	for _, e := range g.Entities {
		summary.Entities = append(summary.Entities, e.Summary())
	}
	return summary, nil
}

// GetEntity returns the entity with the given name, or nil when absent
// (absence is a normal return, not an error). A hit counts as an access: the
// entity's bookkeeping is bumped, the graph is persisted, and working memory
// is touched.
func (m *Manager) GetEntity(ctx context.Context, sess *session.Session, name string) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return nil, nil
	}
	m.touchEntity(e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, name)
	return e, nil
}

// CreateEntityParams are the inputs for CreateEntity.
type CreateEntityParams struct {
	Name         string
	EntityType   string
	Observations []string
	ProjectID    string
	ParentEntity string
	Tags         []string
}

// CreateEntity creates a new entity. It fails with ErrDuplicateEntity when
// the name is taken and ErrParentNotFound when a parent is named but absent.
// Duplicate observations within the batch are suppressed.
func (m *Manager) CreateEntity(ctx context.Context, sess *session.Session, p CreateEntityParams) (*types.Entity, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if g.FindEntity(p.Name) != nil {
		return nil, fmt.Errorf("create %q: %w", p.Name, storage.ErrDuplicateEntity)
	}

	now := m.now()
	e := &types.Entity{
		Name:           p.Name,
		EntityType:     p.EntityType,
		Observations:   dedupeBatch(p.Observations),
		ProjectID:      p.ProjectID,
		Tags:           append([]string(nil), p.Tags...),
		CreatedAt:      now,
		LastAccessed:   now,
		AccessCount:    1,
		RelevanceScore: initialAccessRelevance,
	}

	if p.ParentEntity != "" {
		parent := g.FindEntity(p.ParentEntity)
		if parent == nil {
			return nil, fmt.Errorf("create %q: parent %q: %w", p.Name, p.ParentEntity, storage.ErrParentNotFound)
		}
		e.ParentEntity = parent.Name
		parent.Children = append(parent.Children, e.Name)
	}

	g.Entities = append(g.Entities, e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, e.Name)
	return e, nil
}

// UpdateEntityParams carries the partial update for UpdateEntity. Nil fields
// are left unchanged. Observations are replaced wholesale; the caller owns
// merge semantics.
type UpdateEntityParams struct {
	EntityType   *string
	Observations *[]string
	ProjectID    *string
	Tags         *[]string
	ParentEntity *string
	IsDeprecated *bool
}

// UpdateEntity applies a partial update. An absent name is a silent no-op
// returning (nil, nil). A parent change triggers tree repair: detach from the
// old parent's children, verify the new parent exists, reject reassignments
// that would create a cycle, attach to the new parent. The entity's access
// bookkeeping is always bumped.
func (m *Manager) UpdateEntity(ctx context.Context, sess *session.Session, name string, p UpdateEntityParams) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return nil, nil
	}

	if p.EntityType != nil {
		e.EntityType = *p.EntityType
	}
	if p.Observations != nil {
		e.Observations = append([]string{}, (*p.Observations)...)
	}
	if p.ProjectID != nil {
		e.ProjectID = *p.ProjectID
	}
	if p.Tags != nil {
		e.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ParentEntity != nil && *p.ParentEntity != e.ParentEntity {
		if err := m.reparent(g, e, *p.ParentEntity); err != nil {
			return nil, err
		}
	}
	if p.IsDeprecated != nil {
		e.IsDeprecated = *p.IsDeprecated
		if *p.IsDeprecated && !e.HasTag(types.DeprecatedTag) {
			e.Tags = append(e.Tags, types.DeprecatedTag)
		}
	}

	m.touchEntity(e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, name)
	return e, nil
}

// reparent moves e under newParent (empty string makes it a root). The
// acyclicity check walks from the new parent to the root and rejects the
// assignment if e is encountered; the walk is bounded by the total entity
// count so a corrupted file cannot loop forever.
func (m *Manager) reparent(g *storage.Graph, e *types.Entity, newParent string) error {
	if e.ParentEntity != "" {
		if old := g.FindEntity(e.ParentEntity); old != nil {
			old.Children = removeString(old.Children, e.Name)
		}
	}
	if newParent == "" {
		e.ParentEntity = ""
		return nil
	}

	parent := g.FindEntity(newParent)
	if parent == nil {
		return fmt.Errorf("update %q: parent %q: %w", e.Name, newParent, storage.ErrParentNotFound)
	}

	for cur, steps := parent, 0; cur != nil && steps <= len(g.Entities); steps++ {
		if cur.Name == e.Name {
			return fmt.Errorf("update %q: parent %q: %w", e.Name, newParent, storage.ErrHierarchyCycle)
		}
		if cur.ParentEntity == "" {
			break
		}
		cur = g.FindEntity(cur.ParentEntity)
	}

	e.ParentEntity = parent.Name
	parent.Children = append(parent.Children, e.Name)
	return nil
}

// DeleteEntity hard-deletes an entity: it is detached from its parent, its
// children are orphaned (parentEntity cleared, not deleted), every relation
// referencing it is removed, and it is scrubbed from working memory.
// Returns false when the entity does not exist.
func (m *Manager) DeleteEntity(ctx context.Context, sess *session.Session, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return false, nil
	}

	if e.ParentEntity != "" {
		if parent := g.FindEntity(e.ParentEntity); parent != nil {
			parent.Children = removeString(parent.Children, name)
		}
	}
	for _, childName := range e.Children {
		if child := g.FindEntity(childName); child != nil {
			child.ParentEntity = ""
		}
	}

	entities := g.Entities[:0]
	for _, other := range g.Entities {
		if other.Name != name {
			entities = append(entities, other)
		}
	}
	g.Entities = entities

	relations := g.Relations[:0]
	for _, r := range g.Relations {
		if !r.Involves(name) {
			relations = append(relations, r)
		}
	}
	g.Relations = relations

	if err := m.store.Save(ctx, g); err != nil {
		return false, err
	}
	sess.Forget(ctx, name)
	return true, nil
}

// DeprecateEntity soft-deletes an entity: it sets the deprecation flag and
// tag while preserving all data and relations. This is the sanctioned
// removal path for cleanup workflows.
func (m *Manager) DeprecateEntity(ctx context.Context, sess *session.Session, name string) (*types.Entity, error) {
	deprecated := true
	return m.UpdateEntity(ctx, sess, name, UpdateEntityParams{IsDeprecated: &deprecated})
}

// AddObservations appends observations to an entity. Duplicates within the
// batch are suppressed; there is no cross-batch dedup. Absent entity is a
// silent no-op returning (nil, nil).
func (m *Manager) AddObservations(ctx context.Context, sess *session.Session, name string, observations []string) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return nil, nil
	}

	e.Observations = append(e.Observations, dedupeBatch(observations)...)
	m.touchEntity(e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, name)
	return e, nil
}

// AddTags adds tags to an entity, skipping ones already present.
// Absent entity is a silent no-op returning (nil, nil).
func (m *Manager) AddTags(ctx context.Context, sess *session.Session, name string, tags []string) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return nil, nil
	}
	for _, tag := range tags {
		if !e.HasTag(tag) {
			e.Tags = append(e.Tags, tag)
		}
	}
	m.touchEntity(e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, name)
	return e, nil
}

// RemoveTags removes tags from an entity. Absent entity is a silent no-op.
func (m *Manager) RemoveTags(ctx context.Context, sess *session.Session, name string, tags []string) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e := g.FindEntity(name)
	if e == nil {
		return nil, nil
	}
	for _, tag := range tags {
		e.Tags = removeString(e.Tags, tag)
	}
	m.touchEntity(e)
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	sess.Touch(ctx, name)
	return e, nil
}

// dedupeBatch suppresses duplicate strings within a single batch while
// preserving order.
func dedupeBatch(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// removeString returns s with every occurrence of v removed.
func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
