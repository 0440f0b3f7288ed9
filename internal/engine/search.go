package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// Text-match score weights. The maximum attainable combined score is used to
// normalize the transient searchScore into 0..1.
const (
	scoreNameMatch        = 10.0
	scoreTypeMatch        = 5.0
	scoreTagMatch         = 5.0
	scoreObservationMatch = 3.0
	scoreFuzzyWeight      = 7.0
	fuzzyThreshold        = 0.6
	scoreNormalizer       = 20.0
)

// SearchFilter carries the structural predicates and free-text query for
// Search. Zero values mean "no filter".
type SearchFilter struct {
	Query             string
	EntityTypes       []string
	ProjectID         string
	Tags              []string
	ParentEntity      string
	OnlyRootEntities  bool
	CreatedAfter      string // TimeLayout timestamp; lexical compare is valid
	MinRelevance      float64
	Limit             int
	IncludeDeprecated bool
}

// SearchResult pairs an entity with its transient, query-scoped search
// score. The score is normalized to 0..1 for the response payload and is
// never written back to the entity record; the persisted relevanceScore is a
// separate, access-driven notion.
type SearchResult struct {
	Entity      *types.Entity `json:"entity"`
	SearchScore float64       `json:"searchScore"`
}

// Searcher answers free-text and structural queries against the graph. It
// consumes the Manager's accessors rather than touching files directly.
type Searcher struct {
	graphs *Manager
}

// NewSearcher creates a search engine over the given graph manager.
func NewSearcher(m *Manager) *Searcher {
	return &Searcher{graphs: m}
}

// Search runs the fixed-order search pipeline: structural filtering over the
// summary list, resolution of survivors to full entities (each resolution is
// an access and touches working memory), the createdAfter bound, then either
// the weighted text-scoring pass or accessCount ranking, minRelevance, and
// the limit. An empty result set is a normal answer, never an error.
func (s *Searcher) Search(ctx context.Context, sess *session.Session, f SearchFilter) ([]SearchResult, error) {
	summary, err := s.graphs.ReadGraph(ctx)
	if err != nil {
		return nil, err
	}

	// Structural pass over the lightweight summaries.
	var survivors []string
	for _, es := range summary.Entities {
		if !f.IncludeDeprecated && es.IsDeprecated {
			continue
		}
		if f.ProjectID != "" && es.ProjectID != f.ProjectID {
			continue
		}
		if len(f.EntityTypes) > 0 && !containsString(f.EntityTypes, es.EntityType) {
			continue
		}
		if len(f.Tags) > 0 && !tagsIntersect(es.Tags, f.Tags) {
			continue
		}
		if f.ParentEntity != "" && es.ParentEntity != f.ParentEntity {
			continue
		}
		if f.OnlyRootEntities && es.ParentEntity != "" {
			continue
		}
		survivors = append(survivors, es.Name)
	}

	// Resolve survivors to full entities.
	var entities []*types.Entity
	for _, name := range survivors {
		e, err := s.graphs.GetEntity(ctx, sess, name)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if f.CreatedAfter != "" && !(e.CreatedAt > f.CreatedAfter) {
			continue
		}
		entities = append(entities, e)
	}

	// Scoring pass.
	results := []SearchResult{}
	if f.Query != "" {
		for _, e := range entities {
			score := textScore(e, f.Query)
			if score <= 0 {
				continue
			}
			normalized := score / scoreNormalizer
			if normalized > 1.0 {
				normalized = 1.0
			}
			results = append(results, SearchResult{Entity: e, SearchScore: normalized})
		}
	} else {
		for _, e := range entities {
			results = append(results, SearchResult{Entity: e, SearchScore: accessScore(e)})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SearchScore > results[j].SearchScore
	})

	if f.MinRelevance > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.SearchScore >= f.MinRelevance {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results, nil
}

// SearchSnapshot runs the same filter and scoring pipeline over a
// non-touching snapshot. The HTTP read surface uses this: browsing the graph
// over HTTP must not count as access or perturb working memory.
func (s *Searcher) SearchSnapshot(ctx context.Context, f SearchFilter) ([]SearchResult, error) {
	g, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := []SearchResult{}
	for _, e := range g.Entities {
		if !f.IncludeDeprecated && e.IsDeprecated {
			continue
		}
		if f.ProjectID != "" && e.ProjectID != f.ProjectID {
			continue
		}
		if len(f.EntityTypes) > 0 && !containsString(f.EntityTypes, e.EntityType) {
			continue
		}
		if len(f.Tags) > 0 && !tagsIntersect(e.Tags, f.Tags) {
			continue
		}
		if f.ParentEntity != "" && e.ParentEntity != f.ParentEntity {
			continue
		}
		if f.OnlyRootEntities && e.ParentEntity != "" {
			continue
		}
		if f.CreatedAfter != "" && !(e.CreatedAt > f.CreatedAfter) {
			continue
		}

		if f.Query != "" {
			score := textScore(e, f.Query)
			if score <= 0 {
				continue
			}
			normalized := score / scoreNormalizer
			if normalized > 1.0 {
				normalized = 1.0
			}
			results = append(results, SearchResult{Entity: e, SearchScore: normalized})
		} else {
			results = append(results, SearchResult{Entity: e, SearchScore: accessScore(e)})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SearchScore > results[j].SearchScore
	})

	if f.MinRelevance > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.SearchScore >= f.MinRelevance {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results, nil
}

// textScore computes the weighted substring score for one entity, case
// insensitive. Entities scoring zero carry no trace of the query and are
// excluded by the caller.
func textScore(e *types.Entity, query string) float64 {
	q := strings.ToLower(query)
	score := 0.0

	if strings.Contains(strings.ToLower(e.Name), q) {
		score += scoreNameMatch
	}
	if strings.Contains(strings.ToLower(e.EntityType), q) {
		score += scoreTypeMatch
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += scoreTagMatch
			break
		}
	}
	// Counted once even when multiple observations match.
	for _, obs := range e.Observations {
		if strings.Contains(strings.ToLower(obs), q) {
			score += scoreObservationMatch
			break
		}
	}
	if sim := nameSimilarity(e.Name, query); sim > fuzzyThreshold {
		score += sim * scoreFuzzyWeight
	}
	return score
}

// accessScore ranks entities when no query is present: a normalized
// accessCount with a capped contribution and a low default for entities that
// were never accessed.
func accessScore(e *types.Entity) float64 {
	if e.AccessCount <= 0 {
		return 0.1
	}
	score := float64(e.AccessCount) / 10.0
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// HierarchicalSearch walks the children links depth-first from the named
// root, depth-limited, collecting entities as visited. A visited set guards
// against a hand-edited file that contains a cycle. An absent root yields an
// empty result.
func (s *Searcher) HierarchicalSearch(ctx context.Context, sess *session.Session, root string, maxDepth int, includeRoot bool) ([]*types.Entity, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	rootEntity, err := s.graphs.GetEntity(ctx, sess, root)
	if err != nil {
		return nil, err
	}
	if rootEntity == nil {
		return []*types.Entity{}, nil
	}

	results := []*types.Entity{}
	if includeRoot {
		results = append(results, rootEntity)
	}

	visited := map[string]bool{root: true}
	var walk func(e *types.Entity, depth int) error
	walk = func(e *types.Entity, depth int) error {
		if depth > maxDepth {
			return nil
		}
		for _, childName := range e.Children {
			if visited[childName] {
				continue
			}
			visited[childName] = true
			child, err := s.graphs.GetEntity(ctx, sess, childName)
			if err != nil {
				return err
			}
			if child == nil {
				continue
			}
			results = append(results, child)
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rootEntity, 1); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchByRelation filters relations by type and optional endpoint, then
// resolves the union of referenced entity names to full entities.
func (s *Searcher) SearchByRelation(ctx context.Context, sess *session.Session, relationType, entity, direction string) ([]*types.Entity, error) {
	if !types.IsValidDirection(direction) {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	g, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	collect := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, r := range g.Relations {
		if relationType != "" && r.RelationType != relationType {
			continue
		}
		if entity != "" {
			switch direction {
			case types.DirectionIncoming:
				if r.To != entity {
					continue
				}
			case types.DirectionOutgoing:
				if r.From != entity {
					continue
				}
			default:
				if !r.Involves(entity) {
					continue
				}
			}
		}
		collect(r.From)
		collect(r.To)
	}

	results := []*types.Entity{}
	for _, name := range names {
		e, err := s.graphs.GetEntity(ctx, sess, name)
		if err != nil {
			return nil, err
		}
		if e != nil {
			results = append(results, e)
		}
	}
	return results, nil
}

// containsString reports membership of v in s.
func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// tagsIntersect reports whether the two tag sets share any tag.
func tagsIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
