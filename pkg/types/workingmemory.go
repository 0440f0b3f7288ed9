package types

// Working-memory capacity limits.
const (
	// MaxRecentlyDiscussed caps the relevance-ranked recently-discussed list.
	MaxRecentlyDiscussed = 10

	// MaxRecentProjects caps the most-recent-first project list.
	MaxRecentProjects = 5
)

// DiscussedEntity is one entry in the working memory's relevance-ranked
// recently-discussed list.
type DiscussedEntity struct {
	Entity         string  `json:"entity"`         // Entity name
	Timestamp      string  `json:"timestamp"`      // Last time it was touched
	RelevanceScore float64 `json:"relevanceScore"` // Session relevance; new entries start at 1.0
}

// PendingTrigger is a detected trigger event queued in working memory for the
// assistant to act on later.
type PendingTrigger struct {
	ID         string `json:"id"`         // Stable identifier (UUID)
	Type       string `json:"type"`       // Trigger classification
	Content    string `json:"content"`    // What was detected
	DetectedAt string `json:"detectedAt"` // When it was detected
}

// WorkingMemoryContext is the session-scoped cache tracked alongside the
// persistent graph. It is disposable: losing it never loses graph data.
type WorkingMemoryContext struct {
	ActiveEntities     []string          `json:"activeEntities"`     // Names touched this session
	RecentlyDiscussed  []DiscussedEntity `json:"recentlyDiscussed"`  // Ranked by relevance, capped
	CurrentProject     string            `json:"currentProject,omitempty"`
	RecentProjects     []string          `json:"recentProjects,omitempty"` // Most recent first, capped
	CurrentTopic       string            `json:"currentTopic,omitempty"`
	PendingInformation []PendingTrigger  `json:"pendingInformation"` // Queued trigger events
	LastUpdated        string            `json:"lastUpdated"`
}

// NewWorkingMemoryContext returns the compiled-in default session state.
func NewWorkingMemoryContext() *WorkingMemoryContext {
	return &WorkingMemoryContext{
		ActiveEntities:     []string{},
		RecentlyDiscussed:  []DiscussedEntity{},
		PendingInformation: []PendingTrigger{},
		LastUpdated:        Now(),
	}
}
