package mcp

// toolNames is the authoritative set of exposed tools. Native JSON-RPC
// aliases are derived from the same set.
var toolNames = map[string]bool{
	"create_entities":     true,
	"create_relations":    true,
	"add_observations":    true,
	"get_entity":          true,
	"read_graph":          true,
	"search_nodes":        true,
	"hierarchical_search": true,
	"search_by_relation":  true,
	"update_entity":       true,
	"delete_entity":       true,
	"deprecate_entity":    true,
	"get_relations":       true,
	"update_relation":     true,
	"delete_relation":     true,
	"create_project":      true,
	"list_projects":       true,
	"set_current_project": true,
	"add_tags":            true,
	"remove_tags":         true,
	"get_working_memory":  true,
	"set_current_topic":   true,
	"get_memory_health":   true,
	"find_duplicates":     true,
	"find_stale_entities": true,
	"import_markdown":     true,
}

func isToolName(name string) bool {
	return toolNames[name]
}

// Schema fragment helpers. The schemas are plain JSON Schema objects; helpers
// keep the catalog below readable.

func obj(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func num(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func integer(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func strArray(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": desc,
	}
}

func objArray(desc string, items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       items,
		"description": desc,
	}
}

var relationMetadataSchema = obj(map[string]interface{}{
	"confidence": num("Confidence in the relation, 0..1 (default 1.0)"),
	"source":     str("Where this relation was learned"),
	"notes":      str("Free-form notes"),
})

// toolList returns the full tool catalog for tools/list.
func toolList() []MCPTool {
	return []MCPTool{
		{
			Name:        "create_entities",
			Description: "Create one or more entities in the knowledge graph. Each item succeeds or fails independently.",
			InputSchema: obj(map[string]interface{}{
				"entities": objArray("Entities to create", obj(map[string]interface{}{
					"name":         str("Unique entity name"),
					"entityType":   str("Classification, e.g. Person, Project, Concept"),
					"observations": strArray("Initial factual observations"),
					"projectId":    str("Owning project name"),
					"parentEntity": str("Parent entity name; must already exist"),
					"tags":         strArray("Filter tags"),
				}, "name", "entityType")),
			}, "entities"),
		},
		{
			Name:        "create_relations",
			Description: "Create directed, typed relations between existing entities. Each item succeeds or fails independently.",
			InputSchema: obj(map[string]interface{}{
				"relations": objArray("Relations to create", obj(map[string]interface{}{
					"from":         str("Source entity name"),
					"to":           str("Target entity name"),
					"relationType": str("Active-voice verb phrase, e.g. works_at"),
					"metadata":     relationMetadataSchema,
				}, "from", "to", "relationType")),
			}, "relations"),
		},
		{
			Name:        "add_observations",
			Description: "Append observations to an existing entity.",
			InputSchema: obj(map[string]interface{}{
				"name":         str("Entity name"),
				"observations": strArray("Observations to append"),
			}, "name", "observations"),
		},
		{
			Name:        "get_entity",
			Description: "Fetch a single entity by name, including its observations. Counts as an access.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Entity name"),
			}, "name"),
		},
		{
			Name:        "read_graph",
			Description: "Return a summary of the whole graph: every entity without its observations, plus all relations.",
			InputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        "search_nodes",
			Description: "Search entities by free text and structural filters, ranked by match score.",
			InputSchema: obj(map[string]interface{}{
				"query":             str("Free-text query matched against names, types, tags, and observations"),
				"entityTypes":       strArray("Restrict to these entity types"),
				"projectId":         str("Restrict to one project"),
				"tags":              strArray("Require at least one of these tags"),
				"parentEntity":      str("Restrict to children of this entity"),
				"onlyRootEntities":  boolean("Restrict to entities without a parent"),
				"createdAfter":      str("ISO-8601 timestamp; only entities created strictly after"),
				"minRelevance":      num("Minimum search score, 0..1"),
				"limit":             integer("Maximum results (default 10)"),
				"includeDeprecated": boolean("Include deprecated entities (default false)"),
			}),
		},
		{
			Name:        "hierarchical_search",
			Description: "Collect the descendants of an entity by walking its children links, depth-limited.",
			InputSchema: obj(map[string]interface{}{
				"root":        str("Root entity name"),
				"maxDepth":    integer("Traversal depth limit (default 3)"),
				"includeRoot": boolean("Include the root entity itself"),
			}, "root"),
		},
		{
			Name:        "search_by_relation",
			Description: "Find entities participating in relations of a given type, optionally anchored to one entity and direction.",
			InputSchema: obj(map[string]interface{}{
				"relationType": str("Relation type to match"),
				"entity":       str("Optional endpoint entity name"),
				"direction":    str("incoming, outgoing, or both (default both)"),
			}, "relationType"),
		},
		{
			Name:        "update_entity",
			Description: "Apply a partial update to an entity. Omitted fields are unchanged; observations are replaced wholesale.",
			InputSchema: obj(map[string]interface{}{
				"name":         str("Entity name"),
				"entityType":   str("New classification"),
				"observations": strArray("Replacement observation list"),
				"projectId":    str("New owning project"),
				"tags":         strArray("Replacement tag list"),
				"parentEntity": str("New parent entity name; empty string detaches"),
				"isDeprecated": boolean("Set or clear the deprecation flag"),
			}, "name"),
		},
		{
			Name:        "delete_entity",
			Description: "Hard-delete an entity, its relations, and its parent/child links. Children are orphaned, not deleted. Prefer deprecate_entity.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Entity name"),
			}, "name"),
		},
		{
			Name:        "deprecate_entity",
			Description: "Soft-delete an entity: mark it deprecated while preserving all data and relations.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Entity name"),
			}, "name"),
		},
		{
			Name:        "get_relations",
			Description: "List the relations involving an entity, filtered by direction and optional type.",
			InputSchema: obj(map[string]interface{}{
				"name":         str("Entity name"),
				"direction":    str("incoming, outgoing, or both (default both)"),
				"relationType": str("Restrict to one relation type"),
			}, "name"),
		},
		{
			Name:        "update_relation",
			Description: "Replace the metadata of the relation identified by its exact (from, to, relationType) triple.",
			InputSchema: obj(map[string]interface{}{
				"from":         str("Source entity name"),
				"to":           str("Target entity name"),
				"relationType": str("Relation type"),
				"metadata":     relationMetadataSchema,
			}, "from", "to", "relationType"),
		},
		{
			Name:        "delete_relation",
			Description: "Delete the relation identified by its exact (from, to, relationType) triple.",
			InputSchema: obj(map[string]interface{}{
				"from":         str("Source entity name"),
				"to":           str("Target entity name"),
				"relationType": str("Relation type"),
			}, "from", "to", "relationType"),
		},
		{
			Name:        "create_project",
			Description: "Create a project grouping entity. Other entities join it via their projectId.",
			InputSchema: obj(map[string]interface{}{
				"name":        str("Project name"),
				"description": str("Short description, stored as the first observation"),
			}, "name"),
		},
		{
			Name:        "list_projects",
			Description: "List every project entity.",
			InputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        "set_current_project",
			Description: "Set the working-memory current project. The project entity must exist.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Project name"),
			}, "name"),
		},
		{
			Name:        "add_tags",
			Description: "Add tags to an entity. Tags already present are skipped.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Entity name"),
				"tags": strArray("Tags to add"),
			}, "name", "tags"),
		},
		{
			Name:        "remove_tags",
			Description: "Remove tags from an entity.",
			InputSchema: obj(map[string]interface{}{
				"name": str("Entity name"),
				"tags": strArray("Tags to remove"),
			}, "name", "tags"),
		},
		{
			Name:        "get_working_memory",
			Description: "Return the session's working-memory context: active entities, recently discussed, current project and topic.",
			InputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        "set_current_topic",
			Description: "Record the current conversation topic in working memory.",
			InputSchema: obj(map[string]interface{}{
				"topic": str("Current topic"),
			}, "topic"),
		},
		{
			Name:        "get_memory_health",
			Description: "Compute aggregate graph diagnostics: totals, stale, untagged, orphaned, duplicates, hierarchy shape.",
			InputSchema: obj(map[string]interface{}{
				"projectId": str("Restrict the report to one project"),
			}),
		},
		{
			Name:        "find_duplicates",
			Description: "Find same-typed entity pairs with suspiciously similar names.",
			InputSchema: obj(map[string]interface{}{
				"entityType": str("Restrict to one entity type"),
				"projectId":  str("Restrict to one project"),
				"threshold":  num("Name-similarity threshold, 0..1 (default 0.85)"),
			}),
		},
		{
			Name:        "find_stale_entities",
			Description: "Find entities not accessed within the threshold window.",
			InputSchema: obj(map[string]interface{}{
				"thresholdDays": integer("Staleness threshold in days (default 60)"),
				"projectId":     str("Restrict to one project"),
			}),
		},
		{
			Name:        "import_markdown",
			Description: "Import a directory of markdown notes as entities. Front matter supplies metadata; wiki-links become relations.",
			InputSchema: obj(map[string]interface{}{
				"directory": str("Directory containing .md files"),
				"projectId": str("Project assigned to imported entities"),
			}, "directory"),
		},
	}
}
