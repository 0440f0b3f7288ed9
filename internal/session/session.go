// Package session implements the working-memory cache: the small side file
// tracking which entities the current assistant session has touched, the
// current project and topic, and queued trigger events.
//
// Working memory is disposable session state, not source of truth. Read and
// parse failures fall back to compiled-in defaults, and write failures are
// logged and swallowed; the in-memory state stays authoritative for the
// rest of the process lifetime. This is the one deliberate divergence from
// the graph store's fail-hard load policy.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/pkg/types"
)

// Relevance constants for the recently-discussed list.
const (
	// initialRelevance is the score assigned to a newly discussed entity.
	initialRelevance = 1.0

	// relevanceIncrement is added each time an already-listed entity is
	// touched again.
	relevanceIncrement = 0.1
)

// LoadOutcome reports how Load arrived at the session state, so callers and
// tests can distinguish the tolerated failure modes.
type LoadOutcome int

const (
	// LoadedFromFile means the session file existed and parsed cleanly.
	LoadedFromFile LoadOutcome = iota

	// DefaultsFileMissing means the file did not exist; defaults were used.
	// Normal on first run.
	DefaultsFileMissing

	// DefaultsCorrupt means the file existed but could not be read or
	// parsed; defaults were used and the broken file is left in place.
	DefaultsCorrupt
)

// String returns a human-readable outcome name for log lines.
func (o LoadOutcome) String() string {
	switch o {
	case LoadedFromFile:
		return "loaded"
	case DefaultsFileMissing:
		return "defaults (no file)"
	case DefaultsCorrupt:
		return "defaults (corrupt file)"
	default:
		return "unknown"
	}
}

// Session owns the working-memory context and its backing file. All methods
// are safe for concurrent use. Mutating methods save after every change;
// save failures are logged and swallowed.
type Session struct {
	path    string
	breaker *writeBreaker

	mu  sync.Mutex
	ctx *types.WorkingMemoryContext
}

// New creates a Session backed by the given file path with default state.
// Call Load to populate it from disk.
func New(path string) *Session {
	return &Session{
		path:    path,
		breaker: newWriteBreaker(),
		ctx:     types.NewWorkingMemoryContext(),
	}
}

// Load populates the session from its file. Any read or parse failure leaves
// the compiled-in default in place; the returned outcome says which case
// occurred. Load never returns an error; tolerated failures are the point.
func (s *Session) Load(ctx context.Context) LoadOutcome {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("session: read %s failed, using defaults: %v", s.path, err)
			return DefaultsCorrupt
		}
		return DefaultsFileMissing
	}

	var wm types.WorkingMemoryContext
	if err := json.Unmarshal(data, &wm); err != nil {
		log.Printf("session: parse %s failed, using defaults: %v", s.path, err)
		return DefaultsCorrupt
	}

	if wm.ActiveEntities == nil {
		wm.ActiveEntities = []string{}
	}
	if wm.RecentlyDiscussed == nil {
		wm.RecentlyDiscussed = []types.DiscussedEntity{}
	}
	if wm.PendingInformation == nil {
		wm.PendingInformation = []types.PendingTrigger{}
	}

	s.mu.Lock()
	s.ctx = &wm
	s.mu.Unlock()
	return LoadedFromFile
}

// Save stamps lastUpdated and overwrites the session file with the
// pretty-printed context. Write failures are logged and swallowed; after
// repeated failures the circuit breaker opens and writes are skipped for a
// cooldown instead of hammering a failing disk.
func (s *Session) Save(ctx context.Context) {
	s.mu.Lock()
	s.ctx.LastUpdated = types.Now()
	data, err := json.MarshalIndent(s.ctx, "", "  ")
	s.mu.Unlock()
	if err != nil {
		log.Printf("session: marshal failed: %v", err)
		return
	}

	writeErr := s.breaker.execute(ctx, func() error {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return err
			}
		}
		return os.WriteFile(s.path, data, 0o600)
	})
	if writeErr != nil {
		log.Printf("session: save %s failed (in-memory state remains authoritative): %v", s.path, writeErr)
	}
}

// Snapshot returns a deep copy of the current working-memory context.
func (s *Session) Snapshot() *types.WorkingMemoryContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *s.ctx
	cp.ActiveEntities = append([]string{}, s.ctx.ActiveEntities...)
	cp.RecentlyDiscussed = append([]types.DiscussedEntity{}, s.ctx.RecentlyDiscussed...)
	cp.RecentProjects = append([]string(nil), s.ctx.RecentProjects...)
	cp.PendingInformation = append([]types.PendingTrigger{}, s.ctx.PendingInformation...)
	return &cp
}

// Touch records an entity access. It adds the name to the active set if
// absent and upserts the recently-discussed entry: new entries start at
// relevance 1.0, existing entries get a refreshed timestamp and +0.1
// relevance. The list is re-sorted by relevance descending and truncated to
// the ten highest. Every reading or mutating operation in the system calls
// this.
func (s *Session) Touch(ctx context.Context, entityName string) {
	s.mu.Lock()
	s.touchLocked(entityName)
	s.mu.Unlock()
	s.Save(ctx)
}

// TouchAll records several accesses with a single save.
func (s *Session) TouchAll(ctx context.Context, entityNames ...string) {
	s.mu.Lock()
	for _, name := range entityNames {
		s.touchLocked(name)
	}
	s.mu.Unlock()
	s.Save(ctx)
}

func (s *Session) touchLocked(entityName string) {
	active := false
	for _, n := range s.ctx.ActiveEntities {
		if n == entityName {
			active = true
			break
		}
	}
	if !active {
		s.ctx.ActiveEntities = append(s.ctx.ActiveEntities, entityName)
	}

	found := false
	for i := range s.ctx.RecentlyDiscussed {
		if s.ctx.RecentlyDiscussed[i].Entity == entityName {
			s.ctx.RecentlyDiscussed[i].Timestamp = types.Now()
			s.ctx.RecentlyDiscussed[i].RelevanceScore += relevanceIncrement
			found = true
			break
		}
	}
	if !found {
		s.ctx.RecentlyDiscussed = append(s.ctx.RecentlyDiscussed, types.DiscussedEntity{
			Entity:         entityName,
			Timestamp:      types.Now(),
			RelevanceScore: initialRelevance,
		})
	}

	sort.SliceStable(s.ctx.RecentlyDiscussed, func(i, j int) bool {
		return s.ctx.RecentlyDiscussed[i].RelevanceScore > s.ctx.RecentlyDiscussed[j].RelevanceScore
	})
	if len(s.ctx.RecentlyDiscussed) > types.MaxRecentlyDiscussed {
		s.ctx.RecentlyDiscussed = s.ctx.RecentlyDiscussed[:types.MaxRecentlyDiscussed]
	}
}

// Forget scrubs an entity from the active and recently-discussed lists.
// Called when an entity is hard-deleted from the graph.
func (s *Session) Forget(ctx context.Context, entityName string) {
	s.mu.Lock()
	active := s.ctx.ActiveEntities[:0]
	for _, n := range s.ctx.ActiveEntities {
		if n != entityName {
			active = append(active, n)
		}
	}
	s.ctx.ActiveEntities = active

	discussed := s.ctx.RecentlyDiscussed[:0]
	for _, d := range s.ctx.RecentlyDiscussed {
		if d.Entity != entityName {
			discussed = append(discussed, d)
		}
	}
	s.ctx.RecentlyDiscussed = discussed
	s.mu.Unlock()
	s.Save(ctx)
}

// SetCurrentProject sets the current project and pushes it onto the
// most-recent-first project list, deduplicated and capped.
func (s *Session) SetCurrentProject(ctx context.Context, projectID string) {
	s.mu.Lock()
	s.ctx.CurrentProject = projectID

	recent := []string{projectID}
	for _, p := range s.ctx.RecentProjects {
		if p != projectID {
			recent = append(recent, p)
		}
	}
	if len(recent) > types.MaxRecentProjects {
		recent = recent[:types.MaxRecentProjects]
	}
	s.ctx.RecentProjects = recent
	s.mu.Unlock()
	s.Save(ctx)
}

// SetCurrentTopic records the current conversation topic.
func (s *Session) SetCurrentTopic(ctx context.Context, topic string) {
	s.mu.Lock()
	s.ctx.CurrentTopic = topic
	s.mu.Unlock()
	s.Save(ctx)
}

// AddPendingTrigger queues a detected trigger event and returns its ID.
func (s *Session) AddPendingTrigger(ctx context.Context, triggerType, content string) string {
	trigger := types.PendingTrigger{
		ID:         uuid.New().String(),
		Type:       triggerType,
		Content:    content,
		DetectedAt: types.Now(),
	}
	s.mu.Lock()
	s.ctx.PendingInformation = append(s.ctx.PendingInformation, trigger)
	s.mu.Unlock()
	s.Save(ctx)
	return trigger.ID
}

// DrainPendingTriggers returns all queued trigger events and clears the queue.
func (s *Session) DrainPendingTriggers(ctx context.Context) []types.PendingTrigger {
	s.mu.Lock()
	drained := s.ctx.PendingInformation
	s.ctx.PendingInformation = []types.PendingTrigger{}
	s.mu.Unlock()
	s.Save(ctx)
	return drained
}

// Path returns the backing file path.
func (s *Session) Path() string {
	return s.path
}

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("session(active=%d discussed=%d project=%q)",
		len(s.ctx.ActiveEntities), len(s.ctx.RecentlyDiscussed), s.ctx.CurrentProject)
}
