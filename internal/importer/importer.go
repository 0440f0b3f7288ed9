package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/session"
)

// referencesRelation is the relation type created for wiki-links between
// imported notes.
const referencesRelation = "references"

// Result summarizes one import run.
type Result struct {
	EntitiesCreated  int
	RelationsCreated int
	Skipped          []string // Files that failed to parse or collided with existing entities
}

// Importer drives the graph engine from parsed markdown notes.
type Importer struct {
	graphs *engine.Manager
}

// New creates an importer over the given graph engine.
func New(graphs *engine.Manager) *Importer {
	return &Importer{graphs: graphs}
}

// ImportDirectory walks dir recursively, parses every .md file, creates an
// entity per note, then creates a references relation per wiki-link whose
// target resolved to an imported or existing entity. A file that fails to
// parse or collides with an existing entity is recorded in Skipped and does
// not abort the run; relations are created in a second pass so link order
// between files does not matter.
func (im *Importer) ImportDirectory(ctx context.Context, sess *session.Session, dir, projectID string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("import %s: not a directory", dir)
	}

	var notes []*Note
	result := &Result{Skipped: []string{}}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Printf("import: read %s failed, skipping: %v", rel, readErr)
			result.Skipped = append(result.Skipped, rel)
			return nil
		}

		note, parseErr := ParseNote(content, rel)
		if parseErr != nil {
			log.Printf("import: %v, skipping", parseErr)
			result.Skipped = append(result.Skipped, rel)
			return nil
		}
		notes = append(notes, note)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("import %s: %w", dir, walkErr)
	}

	// First pass: entities.
	imported := make(map[string]bool, len(notes))
	for _, note := range notes {
		_, createErr := im.graphs.CreateEntity(ctx, sess, engine.CreateEntityParams{
			Name:         note.Name,
			EntityType:   note.EntityType,
			Observations: note.Observations,
			ProjectID:    projectID,
			Tags:         note.Tags,
		})
		if createErr != nil {
			log.Printf("import: create %q failed, skipping: %v", note.Name, createErr)
			result.Skipped = append(result.Skipped, note.Name)
			continue
		}
		imported[strings.ToLower(note.Name)] = true
		result.EntitiesCreated++
	}

	// Second pass: wiki-link relations. Duplicate links and dangling targets
	// are quietly dropped.
	for _, note := range notes {
		if !imported[strings.ToLower(note.Name)] {
			continue
		}
		for _, link := range note.Links {
			target, resolveErr := im.resolveTarget(ctx, sess, link.Target)
			if resolveErr != nil {
				return nil, resolveErr
			}
			if target == "" {
				continue
			}
			_, relErr := im.graphs.CreateRelation(ctx, sess, engine.CreateRelationParams{
				From:         note.Name,
				To:           target,
				RelationType: referencesRelation,
			})
			if relErr != nil {
				continue
			}
			result.RelationsCreated++
		}
	}
	return result, nil
}

// resolveTarget maps a wiki-link target to an existing entity name,
// case-insensitively. Returns "" when no entity matches.
func (im *Importer) resolveTarget(ctx context.Context, sess *session.Session, target string) (string, error) {
	summary, err := im.graphs.ReadGraph(ctx)
	if err != nil {
		return "", err
	}
	for _, e := range summary.Entities {
		if strings.EqualFold(e.Name, target) {
			return e.Name, nil
		}
	}
	return "", nil
}
