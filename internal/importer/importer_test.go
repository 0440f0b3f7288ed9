package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/storage/jsonl"
)

func TestExtractWikiLinks(t *testing.T) {
	content := "See [[Alpha]] and [[Beta|the second one]], then [[alpha]] again."

	links := ExtractWikiLinks(content)
	require.Len(t, links, 2)
	assert.Equal(t, WikiLink{Target: "Alpha"}, links[0])
	assert.Equal(t, WikiLink{Target: "Beta", Alias: "the second one"}, links[1])

	assert.Empty(t, ExtractWikiLinks("no links here"))
	assert.Empty(t, ExtractWikiLinks("[[]] empty target"))
}

func TestStripWikiLinks(t *testing.T) {
	assert.Equal(t, "See Alpha and the second one.",
		StripWikiLinks("See [[Alpha]] and [[Beta|the second one]]."))
	assert.Equal(t, "plain text", StripWikiLinks("plain text"))
}

func TestParseNoteFrontMatter(t *testing.T) {
	content := []byte(`---
title: Graph Databases
type: Concept
tags:
  - storage
  - graphs
---

# Graph Databases

An overview of [[Neo4j]] and friends.

Second paragraph.`)

	note, err := ParseNote(content, "notes/graph-databases.md")
	require.NoError(t, err)

	assert.Equal(t, "Graph Databases", note.Name)
	assert.Equal(t, "Concept", note.EntityType)
	assert.Equal(t, []string{"storage", "graphs"}, note.Tags)
	require.Len(t, note.Links, 1)
	assert.Equal(t, "Neo4j", note.Links[0].Target)
	// Headings are dropped; wiki-links are flattened to text.
	assert.Equal(t, []string{"An overview of Neo4j and friends.", "Second paragraph."}, note.Observations)
}

func TestParseNoteTagsCommaString(t *testing.T) {
	content := []byte("---\ntags: storage, graphs , \n---\nbody")
	note, err := ParseNote(content, "x.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"storage", "graphs"}, note.Tags)
}

func TestParseNoteNameFallbacks(t *testing.T) {
	// No front matter title: first H1 wins.
	note, err := ParseNote([]byte("# Heading Name\n\nbody"), "some-file.md")
	require.NoError(t, err)
	assert.Equal(t, "Heading Name", note.Name)
	assert.Equal(t, "Note", note.EntityType)

	// No H1 either: the file name, de-slugged.
	note, err = ParseNote([]byte("just a paragraph"), "notes/my_cool-note.md")
	require.NoError(t, err)
	assert.Equal(t, "my cool note", note.Name)
}

func TestParseNoteInvalidFrontMatter(t *testing.T) {
	content := []byte("---\ntitle: [unclosed\n---\nbody")
	_, err := ParseNote(content, "broken.md")
	assert.Error(t, err)
}

func TestParseNoteUnclosedFrontMatterTreatedAsBody(t *testing.T) {
	content := []byte("---\ntitle: never closed\n\n# Actual Heading\n\nbody")
	note, err := ParseNote(content, "x.md")
	require.NoError(t, err)
	assert.Equal(t, "Actual Heading", note.Name)
}

func newTestImporter(t *testing.T) (*Importer, *engine.Manager, *session.Session) {
	t.Helper()
	dir := t.TempDir()
	store, err := jsonl.NewStore(filepath.Join(dir, "memory.jsonl"))
	require.NoError(t, err)
	graphs := engine.NewManager(store)
	sess := session.New(filepath.Join(dir, "working-memory.json"))
	return New(graphs), graphs, sess
}

func writeNote(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestImportDirectory(t *testing.T) {
	im, graphs, sess := newTestImporter(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeNote(t, dir, "alpha.md", "---\ntitle: Alpha\ntype: Concept\n---\n\nLinks to [[Beta]] and [[Nowhere]].")
	writeNote(t, dir, "beta.md", "# Beta\n\nLinks back to [[alpha]].")
	writeNote(t, dir, "notes.txt", "not markdown, ignored")

	result, err := im.ImportDirectory(ctx, sess, dir, "kb")
	require.NoError(t, err)

	assert.Equal(t, 2, result.EntitiesCreated)
	// [[Nowhere]] is dangling and dropped; the two cross-links survive.
	assert.Equal(t, 2, result.RelationsCreated)
	assert.Empty(t, result.Skipped)

	alpha, err := graphs.GetEntity(ctx, sess, "Alpha")
	require.NoError(t, err)
	require.NotNil(t, alpha)
	assert.Equal(t, "Concept", alpha.EntityType)
	assert.Equal(t, "kb", alpha.ProjectID)

	relations, err := graphs.GetRelations(ctx, sess, "Alpha", engine.RelationQuery{})
	require.NoError(t, err)
	assert.Len(t, relations, 2)
}

func TestImportDirectorySkipsBadFiles(t *testing.T) {
	im, _, sess := newTestImporter(t)
	dir := t.TempDir()

	writeNote(t, dir, "good.md", "# Good\n\ncontent")
	writeNote(t, dir, "bad.md", "---\ntitle: [broken\n---\nbody")

	result, err := im.ImportDirectory(context.Background(), sess, dir, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.EntitiesCreated)
	assert.Equal(t, []string{"bad.md"}, result.Skipped)
}

func TestImportDirectorySkipsCollisions(t *testing.T) {
	im, graphs, sess := newTestImporter(t)
	ctx := context.Background()
	_, err := graphs.CreateEntity(ctx, sess, engine.CreateEntityParams{Name: "Existing", EntityType: "Note"})
	require.NoError(t, err)

	dir := t.TempDir()
	writeNote(t, dir, "existing.md", "# Existing\n\nduplicate of a live entity")

	result, err := im.ImportDirectory(ctx, sess, dir, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.EntitiesCreated)
	assert.Equal(t, []string{"Existing"}, result.Skipped)
}

func TestImportDirectoryRejectsNonDirectory(t *testing.T) {
	im, _, sess := newTestImporter(t)
	ctx := context.Background()

	_, err := im.ImportDirectory(ctx, sess, filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, []byte("# X"), 0o600))
	_, err = im.ImportDirectory(ctx, sess, file, "")
	assert.Error(t, err)
}
