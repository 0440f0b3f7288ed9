// Package jsonl implements the file-backed graph store.
//
// The backing file is newline-delimited JSON. Each line is a self-describing
// record: a "type" discriminator ("entity" or "relation") with the record's
// own fields flattened alongside it. Entities are written first, then
// relations. Blank lines are skipped on load. This format is shared with
// pre-existing data files and must stay byte-compatible.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnemo-ai/mnemo/internal/storage"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// Record type discriminators.
const (
	recordEntity   = "entity"
	recordRelation = "relation"
)

// entityRecord is an entity line: the discriminator plus the entity fields
// promoted to the top level via embedding.
type entityRecord struct {
	Type string `json:"type"`
	types.Entity
}

// relationRecord is a relation line.
type relationRecord struct {
	Type string `json:"type"`
	types.Relation
}

// Store is a GraphStore backed by a single newline-delimited JSON file.
// Every Save rewrites the whole file; the only durability guarantee is the
// atomic rename of a fully written temp file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path. The parent
// directory is created if missing; the file itself is created lazily on the
// first Save.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl: graph file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("jsonl: create data directory %q: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full graph. A missing file yields an empty graph. Any line
// that fails to parse aborts the entire load: callers must treat a failed
// load as total data unavailability, never partial availability.
func (s *Store) Load(ctx context.Context) (*storage.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.NewGraph(), nil
		}
		return nil, fmt.Errorf("jsonl: open %s: %w", s.path, err)
	}
	defer f.Close()

	g := storage.NewGraph()

	scanner := bufio.NewScanner(f)
	// Observation-heavy entities can produce long lines.
	const maxLine = 4 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var disc struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &disc); err != nil {
			return nil, fmt.Errorf("jsonl: %s line %d: %w", s.path, lineNo, err)
		}

		switch disc.Type {
		case recordEntity:
			var rec entityRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("jsonl: %s line %d: %w", s.path, lineNo, err)
			}
			e := rec.Entity
			e.Normalize()
			g.Entities = append(g.Entities, &e)
		case recordRelation:
			var rec relationRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("jsonl: %s line %d: %w", s.path, lineNo, err)
			}
			r := rec.Relation
			r.Normalize()
			g.Relations = append(g.Relations, &r)
		default:
			return nil, fmt.Errorf("jsonl: %s line %d: unknown record type %q", s.path, lineNo, disc.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: read %s: %w", s.path, err)
	}

	return g, nil
}

// Save serializes the whole graph, entities first and then relations, one
// record per line, and atomically replaces the backing file.
func (s *Store) Save(ctx context.Context, g *storage.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, e := range g.Entities {
		data, err := json.Marshal(entityRecord{Type: recordEntity, Entity: *e})
		if err != nil {
			return fmt.Errorf("jsonl: marshal entity %q: %w", e.Name, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	for _, r := range g.Relations {
		data, err := json.Marshal(relationRecord{Type: recordRelation, Relation: *r})
		if err != nil {
			return fmt.Errorf("jsonl: marshal relation %s->%s: %w", r.From, r.To, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("jsonl: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("jsonl: rename %s: %w", tmp, err)
	}
	return nil
}
