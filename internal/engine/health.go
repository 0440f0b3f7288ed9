package engine

import (
	"context"
	"time"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// Health defaults.
const (
	// DefaultStaleDays is the default staleness threshold in days.
	DefaultStaleDays = 60

	// DefaultDuplicateThreshold is the default name-similarity threshold for
	// flagging possible duplicates.
	DefaultDuplicateThreshold = 0.85
)

// HealthConfig carries the tunable thresholds for the health engine.
type HealthConfig struct {
	StaleDays          int
	DuplicateThreshold float64
}

// DefaultHealthConfig returns the compiled-in thresholds.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		StaleDays:          DefaultStaleDays,
		DuplicateThreshold: DefaultDuplicateThreshold,
	}
}

// DuplicatePair is a possible-duplicate finding: two same-typed entities
// whose names are suspiciously similar.
type DuplicatePair struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	EntityType string  `json:"entityType"`
	Similarity float64 `json:"similarity"`
}

// HierarchyStats summarizes the parent/child tree shape.
type HierarchyStats struct {
	RootCount   int     `json:"rootCount"`   // Entities with no parent
	MaxDepth    int     `json:"maxDepth"`    // Deepest chain, roots counted as depth 1
	AvgChildren float64 `json:"avgChildren"` // Mean children among entities that have any
}

// MemoryHealth is the aggregate diagnostics report.
type MemoryHealth struct {
	TotalEntities      int             `json:"totalEntities"`
	TotalRelations     int             `json:"totalRelations"`
	EntitiesByProject  map[string]int  `json:"entitiesByProject"`
	EntitiesByType     map[string]int  `json:"entitiesByType"`
	DeprecatedCount    int             `json:"deprecatedCount"`
	StaleEntities      []string        `json:"staleEntities"`      // Not accessed within the threshold
	UntaggedEntities   []string        `json:"untaggedEntities"`   // No tags at all
	OrphanedEntities   []string        `json:"orphanedEntities"`   // Zero relations in either direction
	PossibleDuplicates []DuplicatePair `json:"possibleDuplicates"`
	Hierarchy          HierarchyStats  `json:"hierarchy"`
}

// HealthEngine computes aggregate graph diagnostics. It is a read-mostly
// consumer: it uses the Manager's non-touching snapshot accessor so that
// running diagnostics never perturbs lastAccessed or working memory.
type HealthEngine struct {
	graphs *Manager
	cfg    HealthConfig
	clock  func() time.Time
}

// NewHealthEngine creates a health engine with the given thresholds.
func NewHealthEngine(m *Manager, cfg HealthConfig) *HealthEngine {
	if cfg.StaleDays <= 0 {
		cfg.StaleDays = DefaultStaleDays
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = DefaultDuplicateThreshold
	}
	return &HealthEngine{graphs: m, cfg: cfg, clock: time.Now}
}

// MemoryHealth computes the full diagnostics report, optionally restricted
// to one project.
func (h *HealthEngine) MemoryHealth(ctx context.Context, projectID string) (*MemoryHealth, error) {
	g, err := h.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entities, relations := filterByProject(g, projectID)

	report := &MemoryHealth{
		TotalEntities:      len(entities),
		TotalRelations:     len(relations),
		EntitiesByProject:  map[string]int{},
		EntitiesByType:     map[string]int{},
		StaleEntities:      []string{},
		UntaggedEntities:   []string{},
		OrphanedEntities:   []string{},
		PossibleDuplicates: []DuplicatePair{},
	}

	cutoff := staleCutoff(h.clock(), h.cfg.StaleDays)
	referenced := map[string]bool{}
	for _, r := range relations {
		referenced[r.From] = true
		referenced[r.To] = true
	}

	for _, e := range entities {
		project := e.ProjectID
		if project == "" {
			project = "(none)"
		}
		report.EntitiesByProject[project]++
		report.EntitiesByType[e.EntityType]++
		if e.IsDeprecated {
			report.DeprecatedCount++
		}
		if isStale(e, cutoff) {
			report.StaleEntities = append(report.StaleEntities, e.Name)
		}
		if len(e.Tags) == 0 {
			report.UntaggedEntities = append(report.UntaggedEntities, e.Name)
		}
		if !referenced[e.Name] {
			report.OrphanedEntities = append(report.OrphanedEntities, e.Name)
		}
	}

	report.PossibleDuplicates = findDuplicates(entities, "", h.cfg.DuplicateThreshold)
	report.Hierarchy = hierarchyStats(entities)
	return report, nil
}

// FindPossibleDuplicates returns same-typed entity pairs whose name
// similarity is at or above the threshold. Pass threshold <= 0 to use the
// configured default. A pair of identical names always scores 1.0 and is
// flagged for any threshold <= 1.0.
//
// The comparison is deliberately O(n²) within each type bucket: the store is
// scoped to personal-knowledge scale and a pairwise pass is the point.
func (h *HealthEngine) FindPossibleDuplicates(ctx context.Context, entityType, projectID string, threshold float64) ([]DuplicatePair, error) {
	if threshold <= 0 {
		threshold = h.cfg.DuplicateThreshold
	}
	g, err := h.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entities, _ := filterByProject(g, projectID)
	return findDuplicates(entities, entityType, threshold), nil
}

// FindStaleEntities returns the names of entities whose lastAccessed is
// strictly older than now − thresholdDays. An entity accessed exactly at the
// boundary is not stale. Pass thresholdDays <= 0 to use the configured
// default.
func (h *HealthEngine) FindStaleEntities(ctx context.Context, thresholdDays int, projectID string) ([]string, error) {
	if thresholdDays <= 0 {
		thresholdDays = h.cfg.StaleDays
	}
	g, err := h.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entities, _ := filterByProject(g, projectID)

	cutoff := staleCutoff(h.clock(), thresholdDays)
	stale := []string{}
	for _, e := range entities {
		if isStale(e, cutoff) {
			stale = append(stale, e.Name)
		}
	}
	return stale, nil
}

// DeprecateEntity forwards to the graph engine's soft delete. This is the
// only removal path exposed through the health surface, to discourage
// destructive cleanup.
func (h *HealthEngine) DeprecateEntity(ctx context.Context, sess *session.Session, name string) (*types.Entity, error) {
	return h.graphs.DeprecateEntity(ctx, sess, name)
}

// staleCutoff returns the persisted-format timestamp below which an entity
// counts as stale.
func staleCutoff(now time.Time, thresholdDays int) string {
	return types.FormatTime(now.AddDate(0, 0, -thresholdDays))
}

// isStale compares lexically; valid because the persisted format sorts.
func isStale(e *types.Entity, cutoff string) bool {
	return e.LastAccessed < cutoff
}

// findDuplicates runs the pairwise similarity pass within each type bucket.
func findDuplicates(entities []*types.Entity, entityType string, threshold float64) []DuplicatePair {
	buckets := map[string][]*types.Entity{}
	for _, e := range entities {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		buckets[e.EntityType] = append(buckets[e.EntityType], e)
	}

	pairs := []DuplicatePair{}
	for typ, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				sim := nameSimilarity(bucket[i].Name, bucket[j].Name)
				if sim >= threshold {
					pairs = append(pairs, DuplicatePair{
						A:          bucket[i].Name,
						B:          bucket[j].Name,
						EntityType: typ,
						Similarity: sim,
					})
				}
			}
		}
	}
	return pairs
}

// hierarchyStats walks the tree from each root to compute depth and fan-out.
func hierarchyStats(entities []*types.Entity) HierarchyStats {
	byName := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}

	stats := HierarchyStats{}
	totalChildren := 0
	parents := 0
	for _, e := range entities {
		if len(e.Children) > 0 {
			parents++
			totalChildren += len(e.Children)
		}
	}
	if parents > 0 {
		stats.AvgChildren = float64(totalChildren) / float64(parents)
	}

	var depthFrom func(e *types.Entity, visited map[string]bool) int
	depthFrom = func(e *types.Entity, visited map[string]bool) int {
		visited[e.Name] = true
		deepest := 0
		for _, childName := range e.Children {
			child := byName[childName]
			if child == nil || visited[childName] {
				continue
			}
			if d := depthFrom(child, visited); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}

	for _, e := range entities {
		if e.ParentEntity != "" {
			continue
		}
		stats.RootCount++
		if d := depthFrom(e, map[string]bool{}); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}
	return stats
}

// filterByProject restricts the graph to one project when projectID is
// non-empty. Relations are kept when either endpoint survives the filter.
func filterByProject(g *storage.Graph, projectID string) ([]*types.Entity, []*types.Relation) {
	if projectID == "" {
		return g.Entities, g.Relations
	}
	kept := map[string]bool{}
	entities := []*types.Entity{}
	for _, e := range g.Entities {
		if e.ProjectID == projectID {
			entities = append(entities, e)
			kept[e.Name] = true
		}
	}
	relations := []*types.Relation{}
	for _, r := range g.Relations {
		if kept[r.From] || kept[r.To] {
			relations = append(relations, r)
		}
	}
	return entities, relations
}
