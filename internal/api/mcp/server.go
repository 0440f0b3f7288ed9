package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/importer"
	"github.com/mnemo-ai/mnemo/internal/session"
)

// Protocol metadata returned from initialize.
const (
	ServerName      = "mnemo"
	ServerVersion   = "1.0.0"
	ProtocolVersion = "2024-11-05"
)

// Server dispatches JSON-RPC requests to the graph, search, and health
// engines. The session handle is owned here and passed explicitly into every
// engine call.
type Server struct {
	graphs    *engine.Manager
	search    *engine.Searcher
	health    *engine.HealthEngine
	importer  *importer.Importer
	sess      *session.Session
	config    *config.Config
	sessionID string
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithConfig overrides the server configuration.
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// NewServer creates an MCP server over the given engines and session.
func NewServer(graphs *engine.Manager, search *engine.Searcher, health *engine.HealthEngine, sess *session.Session, opts ...ServerOption) *Server {
	s := &Server{
		graphs:    graphs,
		search:    search,
		health:    health,
		importer:  importer.New(graphs),
		sess:      sess,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID returns the unique ID assigned to this server instance.
func (s *Server) SessionID() string {
	return s.sessionID
}

// HandleRequest processes a single JSON-RPC request and returns the response,
// or nil for notifications that expect no reply.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, ErrCodeInvalidRequest, "jsonrpc must be \"2.0\"", nil)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "initialized":
		// Notification; no response.
		return nil
	case "ping":
		return successResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		return successResponse(req.ID, MCPToolsListResult{Tools: toolList()})
	case "tools/call":
		return s.handleToolCall(ctx, req)
	}

	// Native aliases: each tool is also callable as a bare JSON-RPC method
	// with the tool arguments as params.
	if isToolName(req.Method) {
		result, err := s.callTool(ctx, req.Method, req.Params)
		if err != nil {
			return errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
		}
		return successResponse(req.ID, result)
	}

	return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
}

func (s *Server) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	var params MCPInitializeParams
	if req.Params != nil {
		if err := decodeArgs(req.Params, &params); err != nil {
			return errorResponse(req.ID, ErrCodeInvalidParams, "invalid initialize params", err.Error())
		}
	}
	if params.ClientInfo.Name != "" {
		log.Printf("initialize from %s %s (session %s)", params.ClientInfo.Name, params.ClientInfo.Version, s.sessionID)
	}
	return successResponse(req.ID, MCPInitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	})
}

// handleToolCall unwraps the standard MCP tools/call envelope. Tool failures
// are reported in-band as isError content rather than as JSON-RPC errors, per
// the protocol.
func (s *Server) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params MCPToolCallParams
	if err := decodeArgs(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams, "invalid tools/call params", err.Error())
	}
	if !isToolName(params.Name) {
		return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name), nil)
	}

	result, err := s.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return successResponse(req.ID, MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResponse(req.ID, ErrCodeInternalError, "failed to encode tool result", err.Error())
	}
	return successResponse(req.ID, MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	})
}

// callTool dispatches one tool invocation.
func (s *Server) callTool(ctx context.Context, name string, args interface{}) (interface{}, error) {
	switch name {
	case "create_entities":
		return s.createEntities(ctx, args)
	case "create_relations":
		return s.createRelations(ctx, args)
	case "add_observations":
		return s.addObservations(ctx, args)
	case "get_entity":
		return s.getEntity(ctx, args)
	case "read_graph":
		return s.readGraph(ctx)
	case "search_nodes":
		return s.searchNodes(ctx, args)
	case "hierarchical_search":
		return s.hierarchicalSearch(ctx, args)
	case "search_by_relation":
		return s.searchByRelation(ctx, args)
	case "update_entity":
		return s.updateEntity(ctx, args)
	case "delete_entity":
		return s.deleteEntity(ctx, args)
	case "deprecate_entity":
		return s.deprecateEntity(ctx, args)
	case "get_relations":
		return s.getRelations(ctx, args)
	case "update_relation":
		return s.updateRelation(ctx, args)
	case "delete_relation":
		return s.deleteRelation(ctx, args)
	case "create_project":
		return s.createProject(ctx, args)
	case "list_projects":
		return s.listProjects(ctx)
	case "set_current_project":
		return s.setCurrentProject(ctx, args)
	case "add_tags":
		return s.addTags(ctx, args)
	case "remove_tags":
		return s.removeTags(ctx, args)
	case "get_working_memory":
		return s.getWorkingMemory()
	case "set_current_topic":
		return s.setCurrentTopic(ctx, args)
	case "get_memory_health":
		return s.getMemoryHealth(ctx, args)
	case "find_duplicates":
		return s.findDuplicates(ctx, args)
	case "find_stale_entities":
		return s.findStaleEntities(ctx, args)
	case "import_markdown":
		return s.importMarkdown(ctx, args)
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// ---------------------------------------------------------------------------
// Entity tools
// ---------------------------------------------------------------------------

// createEntities processes the batch item by item. A failed item records its
// error and never aborts its siblings.
func (s *Server) createEntities(ctx context.Context, raw interface{}) (interface{}, error) {
	var args CreateEntitiesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Entities) == 0 {
		return nil, fmt.Errorf("entities is required and must not be empty")
	}

	result := CreateEntitiesResult{Results: make([]EntityOutcome, 0, len(args.Entities))}
	for _, in := range args.Entities {
		outcome := EntityOutcome{Name: in.Name}
		_, err := s.graphs.CreateEntity(ctx, s.sess, engine.CreateEntityParams{
			Name:         in.Name,
			EntityType:   in.EntityType,
			Observations: in.Observations,
			ProjectID:    in.ProjectID,
			ParentEntity: in.ParentEntity,
			Tags:         in.Tags,
		})
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			outcome.Created = true
			result.Created++
		}
		result.Results = append(result.Results, outcome)
	}
	return result, nil
}

func (s *Server) getEntity(ctx context.Context, raw interface{}) (interface{}, error) {
	var args GetEntityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.GetEntity(ctx, s.sess, args.Name)
	if err != nil {
		return nil, err
	}
	return GetEntityResult{Entity: e, Found: e != nil}, nil
}

func (s *Server) addObservations(ctx context.Context, raw interface{}) (interface{}, error) {
	var args AddObservationsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len(args.Observations) == 0 {
		return nil, fmt.Errorf("observations is required and must not be empty")
	}
	e, err := s.graphs.AddObservations(ctx, s.sess, args.Name, args.Observations)
	if err != nil {
		return nil, err
	}
	return UpdateEntityResult{Entity: e, Updated: e != nil}, nil
}

func (s *Server) updateEntity(ctx context.Context, raw interface{}) (interface{}, error) {
	var args UpdateEntityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.UpdateEntity(ctx, s.sess, args.Name, engine.UpdateEntityParams{
		EntityType:   args.EntityType,
		Observations: args.Observations,
		ProjectID:    args.ProjectID,
		Tags:         args.Tags,
		ParentEntity: args.ParentEntity,
		IsDeprecated: args.IsDeprecated,
	})
	if err != nil {
		return nil, err
	}
	return UpdateEntityResult{Entity: e, Updated: e != nil}, nil
}

func (s *Server) deleteEntity(ctx context.Context, raw interface{}) (interface{}, error) {
	var args DeleteEntityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	deleted, err := s.graphs.DeleteEntity(ctx, s.sess, args.Name)
	if err != nil {
		return nil, err
	}
	return DeleteEntityResult{Name: args.Name, Deleted: deleted}, nil
}

func (s *Server) deprecateEntity(ctx context.Context, raw interface{}) (interface{}, error) {
	var args DeprecateEntityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.DeprecateEntity(ctx, s.sess, args.Name)
	if err != nil {
		return nil, err
	}
	return UpdateEntityResult{Entity: e, Updated: e != nil}, nil
}

func (s *Server) addTags(ctx context.Context, raw interface{}) (interface{}, error) {
	var args TagsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.AddTags(ctx, s.sess, args.Name, args.Tags)
	if err != nil {
		return nil, err
	}
	return UpdateEntityResult{Entity: e, Updated: e != nil}, nil
}

func (s *Server) removeTags(ctx context.Context, raw interface{}) (interface{}, error) {
	var args TagsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.RemoveTags(ctx, s.sess, args.Name, args.Tags)
	if err != nil {
		return nil, err
	}
	return UpdateEntityResult{Entity: e, Updated: e != nil}, nil
}

// ---------------------------------------------------------------------------
// Relation tools
// ---------------------------------------------------------------------------

func (s *Server) createRelations(ctx context.Context, raw interface{}) (interface{}, error) {
	var args CreateRelationsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Relations) == 0 {
		return nil, fmt.Errorf("relations is required and must not be empty")
	}

	result := CreateRelationsResult{Results: make([]RelationOutcome, 0, len(args.Relations))}
	for _, in := range args.Relations {
		outcome := RelationOutcome{From: in.From, To: in.To, RelationType: in.RelationType}
		_, err := s.graphs.CreateRelation(ctx, s.sess, engine.CreateRelationParams{
			From:         in.From,
			To:           in.To,
			RelationType: in.RelationType,
			Metadata:     in.Metadata,
		})
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			outcome.Created = true
			result.Created++
		}
		result.Results = append(result.Results, outcome)
	}
	return result, nil
}

func (s *Server) getRelations(ctx context.Context, raw interface{}) (interface{}, error) {
	var args GetRelationsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	relations, err := s.graphs.GetRelations(ctx, s.sess, args.Name, engine.RelationQuery{
		Direction:    args.Direction,
		RelationType: args.RelationType,
	})
	if err != nil {
		return nil, err
	}
	return GetRelationsResult{Relations: relations, Total: len(relations)}, nil
}

func (s *Server) updateRelation(ctx context.Context, raw interface{}) (interface{}, error) {
	var args UpdateRelationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.From == "" || args.To == "" || args.RelationType == "" {
		return nil, fmt.Errorf("from, to, and relationType are required")
	}
	r, err := s.graphs.UpdateRelation(ctx, s.sess, args.From, args.To, args.RelationType, engine.UpdateRelationParams{
		Metadata: args.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return UpdateRelationResult{Relation: r, Updated: r != nil}, nil
}

func (s *Server) deleteRelation(ctx context.Context, raw interface{}) (interface{}, error) {
	var args DeleteRelationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.From == "" || args.To == "" || args.RelationType == "" {
		return nil, fmt.Errorf("from, to, and relationType are required")
	}
	deleted, err := s.graphs.DeleteRelation(ctx, s.sess, args.From, args.To, args.RelationType)
	if err != nil {
		return nil, err
	}
	return DeleteRelationResult{Deleted: deleted}, nil
}

// ---------------------------------------------------------------------------
// Read and search tools
// ---------------------------------------------------------------------------

func (s *Server) readGraph(ctx context.Context) (interface{}, error) {
	summary, err := s.graphs.ReadGraph(ctx)
	if err != nil {
		return nil, err
	}
	return ReadGraphResult{Entities: summary.Entities, Relations: summary.Relations}, nil
}

func (s *Server) searchNodes(ctx context.Context, raw interface{}) (interface{}, error) {
	var args SearchNodesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.search.Search(ctx, s.sess, engine.SearchFilter{
		Query:             args.Query,
		EntityTypes:       args.EntityTypes,
		ProjectID:         args.ProjectID,
		Tags:              args.Tags,
		ParentEntity:      args.ParentEntity,
		OnlyRootEntities:  args.OnlyRootEntities,
		CreatedAfter:      args.CreatedAfter,
		MinRelevance:      args.MinRelevance,
		Limit:             limit,
		IncludeDeprecated: args.IncludeDeprecated,
	})
	if err != nil {
		return nil, err
	}
	return SearchNodesResult{Results: results, Total: len(results)}, nil
}

func (s *Server) hierarchicalSearch(ctx context.Context, raw interface{}) (interface{}, error) {
	var args HierarchicalSearchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Root == "" {
		return nil, fmt.Errorf("root is required")
	}
	entities, err := s.search.HierarchicalSearch(ctx, s.sess, args.Root, args.MaxDepth, args.IncludeRoot)
	if err != nil {
		return nil, err
	}
	return HierarchicalSearchResult{Entities: entities, Total: len(entities)}, nil
}

func (s *Server) searchByRelation(ctx context.Context, raw interface{}) (interface{}, error) {
	var args SearchByRelationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.RelationType == "" {
		return nil, fmt.Errorf("relationType is required")
	}
	entities, err := s.search.SearchByRelation(ctx, s.sess, args.RelationType, args.Entity, args.Direction)
	if err != nil {
		return nil, err
	}
	return SearchByRelationResult{Entities: entities, Total: len(entities)}, nil
}

// ---------------------------------------------------------------------------
// Project and working-memory tools
// ---------------------------------------------------------------------------

func (s *Server) createProject(ctx context.Context, raw interface{}) (interface{}, error) {
	var args CreateProjectArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	project, err := s.graphs.CreateProject(ctx, s.sess, args.Name, args.Description)
	if err != nil {
		return nil, err
	}
	return CreateProjectResult{Project: project}, nil
}

func (s *Server) listProjects(ctx context.Context) (interface{}, error) {
	projects, err := s.graphs.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return ListProjectsResult{Projects: projects, Total: len(projects)}, nil
}

// setCurrentProject requires the project entity to exist; looking it up is an
// access like any other.
func (s *Server) setCurrentProject(ctx context.Context, raw interface{}) (interface{}, error) {
	var args SetCurrentProjectArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	e, err := s.graphs.GetEntity(ctx, s.sess, args.Name)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.IsProject() {
		return nil, fmt.Errorf("project %q not found", args.Name)
	}
	s.sess.SetCurrentProject(ctx, args.Name)

	wm := s.sess.Snapshot()
	return SetCurrentProjectResult{
		CurrentProject: wm.CurrentProject,
		RecentProjects: wm.RecentProjects,
	}, nil
}

func (s *Server) getWorkingMemory() (interface{}, error) {
	return GetWorkingMemoryResult{WorkingMemory: s.sess.Snapshot()}, nil
}

func (s *Server) setCurrentTopic(ctx context.Context, raw interface{}) (interface{}, error) {
	var args SetCurrentTopicArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	s.sess.SetCurrentTopic(ctx, args.Topic)
	return GetWorkingMemoryResult{WorkingMemory: s.sess.Snapshot()}, nil
}

// ---------------------------------------------------------------------------
// Health tools
// ---------------------------------------------------------------------------

func (s *Server) getMemoryHealth(ctx context.Context, raw interface{}) (interface{}, error) {
	var args GetMemoryHealthArgs
	if raw != nil {
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
	}
	return s.health.MemoryHealth(ctx, args.ProjectID)
}

func (s *Server) findDuplicates(ctx context.Context, raw interface{}) (interface{}, error) {
	var args FindDuplicatesArgs
	if raw != nil {
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
	}
	pairs, err := s.health.FindPossibleDuplicates(ctx, args.EntityType, args.ProjectID, args.Threshold)
	if err != nil {
		return nil, err
	}
	return FindDuplicatesResult{Duplicates: pairs, Total: len(pairs)}, nil
}

func (s *Server) findStaleEntities(ctx context.Context, raw interface{}) (interface{}, error) {
	var args FindStaleEntitiesArgs
	if raw != nil {
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
	}
	stale, err := s.health.FindStaleEntities(ctx, args.ThresholdDays, args.ProjectID)
	if err != nil {
		return nil, err
	}
	return FindStaleEntitiesResult{Entities: stale, Total: len(stale)}, nil
}

// ---------------------------------------------------------------------------
// Import tools
// ---------------------------------------------------------------------------

func (s *Server) importMarkdown(ctx context.Context, raw interface{}) (interface{}, error) {
	var args ImportMarkdownArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Directory == "" {
		return nil, fmt.Errorf("directory is required")
	}
	res, err := s.importer.ImportDirectory(ctx, s.sess, args.Directory, args.ProjectID)
	if err != nil {
		return nil, err
	}
	return ImportMarkdownResult{
		EntitiesCreated:  res.EntitiesCreated,
		RelationsCreated: res.RelationsCreated,
		Skipped:          res.Skipped,
	}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// decodeArgs round-trips loosely typed params through JSON into the typed
// argument struct.
func decodeArgs(raw interface{}, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func successResponse(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}
