package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/session"
)

// APIHandlers serves the read-only JSON endpoints. Every handler goes
// through non-touching snapshot accessors; browsing the graph over HTTP
// never counts as access.
type APIHandlers struct {
	graphs *engine.Manager
	search *engine.Searcher
	health *engine.HealthEngine
	sess   *session.Session
}

// NewAPIHandlers creates the handler set over the given engines.
func NewAPIHandlers(graphs *engine.Manager, search *engine.Searcher, health *engine.HealthEngine, sess *session.Session) *APIHandlers {
	return &APIHandlers{graphs: graphs, search: search, health: health, sess: sess}
}

// GetGraph handles GET /api/graph: the summary view of every entity plus all
// relations.
func (h *APIHandlers) GetGraph(w http.ResponseWriter, r *http.Request) {
	summary, err := h.graphs.ReadGraph(r.Context())
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, summary)
}

// Search handles GET /api/search. Query parameters: q, type (repeatable),
// project, tag (repeatable), parent, roots, createdAfter, minRelevance,
// limit, deprecated.
func (h *APIHandlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := engine.SearchFilter{
		Query:             q.Get("q"),
		EntityTypes:       q["type"],
		ProjectID:         q.Get("project"),
		Tags:              q["tag"],
		ParentEntity:      q.Get("parent"),
		OnlyRootEntities:  q.Get("roots") == "true",
		CreatedAfter:      q.Get("createdAfter"),
		IncludeDeprecated: q.Get("deprecated") == "true",
		Limit:             10,
	}
	if v := q.Get("minRelevance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(w, "minRelevance must be a number")
			return
		}
		filter.MinRelevance = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	results, err := h.search.SearchSnapshot(r.Context(), filter)
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

// GetHealth handles GET /api/health: the aggregate diagnostics report,
// optionally restricted with ?project=.
func (h *APIHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.health.MemoryHealth(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, report)
}

// GetWorkingMemory handles GET /api/working-memory: the current session
// context snapshot.
func (h *APIHandlers) GetWorkingMemory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sess.Snapshot())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":`+strconv.Quote(msg)+`,"code":"BAD_REQUEST"}`, http.StatusBadRequest)
}

func serverError(w http.ResponseWriter, err error) {
	log.Printf("http: %v", err)
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":`+strconv.Quote(err.Error())+`,"code":"INTERNAL"}`, http.StatusInternalServerError)
}
