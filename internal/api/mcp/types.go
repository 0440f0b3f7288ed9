// Package mcp implements the Model Context Protocol (MCP) server for mnemo.
// It provides JSON-RPC 2.0 based tools for creating, linking, searching, and
// diagnosing knowledge-graph entities.
package mcp

import (
	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// EntityInput describes one entity in a create_entities batch.
type EntityInput struct {
	Name         string   `json:"name"`                   // Entity name (required, unique)
	EntityType   string   `json:"entityType"`             // Classification (required)
	Observations []string `json:"observations,omitempty"` // Initial observations
	ProjectID    string   `json:"projectId,omitempty"`    // Owning project name
	ParentEntity string   `json:"parentEntity,omitempty"` // Parent entity name (must exist)
	Tags         []string `json:"tags,omitempty"`         // Filter tags
}

// CreateEntitiesArgs contains arguments for the create_entities tool.
type CreateEntitiesArgs struct {
	Entities []EntityInput `json:"entities"` // Batch of entities to create
}

// EntityOutcome reports the result of one item in a batch. A failed item
// never aborts its siblings.
type EntityOutcome struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// CreateEntitiesResult contains per-item outcomes for create_entities.
type CreateEntitiesResult struct {
	Results []EntityOutcome `json:"results"`
	Created int             `json:"created"`
	Failed  int             `json:"failed"`
}

// RelationInput describes one relation in a create_relations batch.
type RelationInput struct {
	From         string                  `json:"from"`               // Source entity name
	To           string                  `json:"to"`                 // Target entity name
	RelationType string                  `json:"relationType"`       // Active-voice verb phrase
	Metadata     *types.RelationMetadata `json:"metadata,omitempty"` // Optional confidence/source/notes
}

// CreateRelationsArgs contains arguments for the create_relations tool.
type CreateRelationsArgs struct {
	Relations []RelationInput `json:"relations"`
}

// RelationOutcome reports the result of one relation in a batch.
type RelationOutcome struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
	Created      bool   `json:"created"`
	Error        string `json:"error,omitempty"`
}

// CreateRelationsResult contains per-item outcomes for create_relations.
type CreateRelationsResult struct {
	Results []RelationOutcome `json:"results"`
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
}

// GetEntityArgs contains arguments for the get_entity tool.
type GetEntityArgs struct {
	Name string `json:"name"` // Entity name (required)
}

// GetEntityResult contains the result of get_entity. Found is false and
// Entity nil when the entity does not exist ; absence is not an error.
type GetEntityResult struct {
	Entity *types.Entity `json:"entity,omitempty"`
	Found  bool          `json:"found"`
}

// AddObservationsArgs contains arguments for the add_observations tool.
type AddObservationsArgs struct {
	Name         string   `json:"name"`         // Entity name (required)
	Observations []string `json:"observations"` // Observations to append
}

// UpdateEntityArgs contains arguments for the update_entity tool. Only the
// fields present in the request are applied; observations are replaced
// wholesale.
type UpdateEntityArgs struct {
	Name         string    `json:"name"` // Entity name (required)
	EntityType   *string   `json:"entityType,omitempty"`
	Observations *[]string `json:"observations,omitempty"`
	ProjectID    *string   `json:"projectId,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	ParentEntity *string   `json:"parentEntity,omitempty"`
	IsDeprecated *bool     `json:"isDeprecated,omitempty"`
}

// UpdateEntityResult reports whether the update was applied. Updated is
// false when the entity does not exist (a silent no-op).
type UpdateEntityResult struct {
	Entity  *types.Entity `json:"entity,omitempty"`
	Updated bool          `json:"updated"`
}

// DeleteEntityArgs contains arguments for the delete_entity tool.
type DeleteEntityArgs struct {
	Name string `json:"name"` // Entity name (required)
}

// DeleteEntityResult reports whether the entity existed and was removed.
type DeleteEntityResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// DeprecateEntityArgs contains arguments for the deprecate_entity tool.
type DeprecateEntityArgs struct {
	Name string `json:"name"` // Entity name (required)
}

// GetRelationsArgs contains arguments for the get_relations tool.
type GetRelationsArgs struct {
	Name         string `json:"name"`                   // Entity name (required)
	Direction    string `json:"direction,omitempty"`    // incoming, outgoing, or both (default both)
	RelationType string `json:"relationType,omitempty"` // Optional type filter
}

// GetRelationsResult contains the matched relations.
type GetRelationsResult struct {
	Relations []*types.Relation `json:"relations"`
	Total     int               `json:"total"`
}

// UpdateRelationArgs contains arguments for the update_relation tool.
// The triple identifies the relation exactly.
type UpdateRelationArgs struct {
	From         string                  `json:"from"`
	To           string                  `json:"to"`
	RelationType string                  `json:"relationType"`
	Metadata     *types.RelationMetadata `json:"metadata,omitempty"`
}

// UpdateRelationResult reports whether the relation was found and updated.
type UpdateRelationResult struct {
	Relation *types.Relation `json:"relation,omitempty"`
	Updated  bool            `json:"updated"`
}

// DeleteRelationArgs contains arguments for the delete_relation tool.
type DeleteRelationArgs struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// DeleteRelationResult reports whether the relation existed and was removed.
type DeleteRelationResult struct {
	Deleted bool `json:"deleted"`
}

// ReadGraphResult is the whole-graph summary: every entity's summary view
// (never including observations) plus the full relation list.
type ReadGraphResult struct {
	Entities  []types.EntitySummary `json:"entities"`
	Relations []*types.Relation     `json:"relations"`
}

// SearchNodesArgs contains arguments for the search_nodes tool.
type SearchNodesArgs struct {
	Query             string   `json:"query,omitempty"`             // Free-text query
	EntityTypes       []string `json:"entityTypes,omitempty"`       // Type membership filter
	ProjectID         string   `json:"projectId,omitempty"`         // Project filter
	Tags              []string `json:"tags,omitempty"`              // Tag intersection filter
	ParentEntity      string   `json:"parentEntity,omitempty"`      // Parent filter
	OnlyRootEntities  bool     `json:"onlyRootEntities,omitempty"`  // Restrict to entities without a parent
	CreatedAfter      string   `json:"createdAfter,omitempty"`      // ISO-8601 lower bound (exclusive)
	MinRelevance      float64  `json:"minRelevance,omitempty"`      // Minimum search score
	Limit             int      `json:"limit,omitempty"`             // Max results (default 10)
	IncludeDeprecated bool     `json:"includeDeprecated,omitempty"` // Include soft-deleted entities
}

// SearchNodesResult contains scored search results. SearchScore is the
// transient per-query score, distinct from the persisted relevanceScore.
type SearchNodesResult struct {
	Results []engine.SearchResult `json:"results"`
	Total   int                   `json:"total"`
}

// HierarchicalSearchArgs contains arguments for the hierarchical_search tool.
type HierarchicalSearchArgs struct {
	Root        string `json:"root"`                  // Root entity name (required)
	MaxDepth    int    `json:"maxDepth,omitempty"`    // Traversal depth limit (default 3)
	IncludeRoot bool   `json:"includeRoot,omitempty"` // Include the root itself
}

// HierarchicalSearchResult contains the collected subtree entities.
type HierarchicalSearchResult struct {
	Entities []*types.Entity `json:"entities"`
	Total    int             `json:"total"`
}

// SearchByRelationArgs contains arguments for the search_by_relation tool.
type SearchByRelationArgs struct {
	RelationType string `json:"relationType"`        // Relation type filter (required)
	Entity       string `json:"entity,omitempty"`    // Optional endpoint filter
	Direction    string `json:"direction,omitempty"` // incoming, outgoing, or both
}

// SearchByRelationResult contains the resolved endpoint entities.
type SearchByRelationResult struct {
	Entities []*types.Entity `json:"entities"`
	Total    int             `json:"total"`
}

// CreateProjectArgs contains arguments for the create_project tool.
type CreateProjectArgs struct {
	Name        string `json:"name"`                  // Project name (required)
	Description string `json:"description,omitempty"` // Stored as the first observation
}

// CreateProjectResult contains the created project entity.
type CreateProjectResult struct {
	Project *types.Entity `json:"project"`
}

// ListProjectsResult contains the summary of every project entity.
type ListProjectsResult struct {
	Projects []types.EntitySummary `json:"projects"`
	Total    int                   `json:"total"`
}

// SetCurrentProjectArgs contains arguments for the set_current_project tool.
type SetCurrentProjectArgs struct {
	Name string `json:"name"` // Project name (required; must exist)
}

// SetCurrentProjectResult echoes the working-memory project state.
type SetCurrentProjectResult struct {
	CurrentProject string   `json:"currentProject"`
	RecentProjects []string `json:"recentProjects"`
}

// TagsArgs contains arguments for the add_tags and remove_tags tools.
type TagsArgs struct {
	Name string   `json:"name"` // Entity name (required)
	Tags []string `json:"tags"` // Tags to add or remove
}

// SetCurrentTopicArgs contains arguments for the set_current_topic tool.
type SetCurrentTopicArgs struct {
	Topic string `json:"topic"` // Current conversation topic
}

// GetWorkingMemoryResult contains the session's working-memory context.
type GetWorkingMemoryResult struct {
	WorkingMemory *types.WorkingMemoryContext `json:"workingMemory"`
}

// GetMemoryHealthArgs contains arguments for the get_memory_health tool.
type GetMemoryHealthArgs struct {
	ProjectID string `json:"projectId,omitempty"` // Restrict the report to one project
}

// FindDuplicatesArgs contains arguments for the find_duplicates tool.
type FindDuplicatesArgs struct {
	EntityType string  `json:"entityType,omitempty"` // Restrict to one type bucket
	ProjectID  string  `json:"projectId,omitempty"`  // Restrict to one project
	Threshold  float64 `json:"threshold,omitempty"`  // Similarity threshold (default 0.85)
}

// FindDuplicatesResult contains the flagged pairs.
type FindDuplicatesResult struct {
	Duplicates []engine.DuplicatePair `json:"duplicates"`
	Total      int                    `json:"total"`
}

// FindStaleEntitiesArgs contains arguments for the find_stale_entities tool.
type FindStaleEntitiesArgs struct {
	ThresholdDays int    `json:"thresholdDays,omitempty"` // Staleness threshold (default 60)
	ProjectID     string `json:"projectId,omitempty"`     // Restrict to one project
}

// FindStaleEntitiesResult contains the stale entity names.
type FindStaleEntitiesResult struct {
	Entities []string `json:"entities"`
	Total    int      `json:"total"`
}

// ImportMarkdownArgs contains arguments for the import_markdown tool.
type ImportMarkdownArgs struct {
	Directory string `json:"directory"`           // Directory of .md files (required)
	ProjectID string `json:"projectId,omitempty"` // Project assigned to imported entities
}

// ImportMarkdownResult summarizes an import run.
type ImportMarkdownResult struct {
	EntitiesCreated  int      `json:"entitiesCreated"`
	RelationsCreated int      `json:"relationsCreated"`
	Skipped          []string `json:"skipped,omitempty"` // Files that failed to parse or collided
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
