package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultEntityType is used when a note's front matter does not name a type.
const defaultEntityType = "Note"

// Note is a parsed markdown file ready to become an entity.
type Note struct {
	Name         string     // Entity name: front matter title, first H1, or the file name
	EntityType   string     // Front matter "type", defaulting to Note
	Tags         []string   // Front matter tags
	Observations []string   // Body paragraphs with wiki-links flattened to text
	Links        []WikiLink // Outgoing wiki-links
}

// ParseNote parses one markdown file. relativePath names the file in error
// messages and supplies the fallback title.
func ParseNote(content []byte, relativePath string) (*Note, error) {
	fm, body, err := splitFrontMatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relativePath, err)
	}

	name := frontMatterString(fm, "title")
	if name == "" {
		name = firstHeading(body)
	}
	if name == "" {
		name = titleFromPath(relativePath)
	}

	entityType := frontMatterString(fm, "type")
	if entityType == "" {
		entityType = defaultEntityType
	}

	return &Note{
		Name:         name,
		EntityType:   entityType,
		Tags:         frontMatterTags(fm),
		Observations: paragraphs(StripWikiLinks(body)),
		Links:        ExtractWikiLinks(body),
	}, nil
}

// splitFrontMatter separates YAML front matter (between --- delimiters on
// their own lines) from the body. A file without front matter yields an empty
// map and the full text. Invalid YAML between valid delimiters is an error;
// the note's metadata cannot be trusted half-parsed.
func splitFrontMatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		return map[string]interface{}{}, text, nil
	}

	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:closeIdx], "\n")), &fm); err != nil {
		return nil, "", fmt.Errorf("front matter: %w", err)
	}
	return fm, strings.Join(lines[closeIdx+1:], "\n"), nil
}

// frontMatterString reads a string field, tolerating absence.
func frontMatterString(fm map[string]interface{}, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// frontMatterTags reads the tags field in either list or comma-separated
// string form.
func frontMatterTags(fm map[string]interface{}) []string {
	switch v := fm["tags"].(type) {
	case []interface{}:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tags = append(tags, strings.TrimSpace(s))
			}
		}
		return tags
	case string:
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	return nil
}

// firstHeading returns the text of the first ATX H1 in the body.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// titleFromPath derives a readable name from the file name.
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// paragraphs splits the body on blank lines into trimmed paragraphs, dropping
// heading-only paragraphs (the title already carries that text).
func paragraphs(body string) []string {
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") {
			continue
		}
		out = append(out, block)
	}
	return out
}
