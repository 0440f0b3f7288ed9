// Package importer turns a directory of markdown notes into graph entities
// and relations. YAML front matter supplies entity metadata; [[wiki-links]]
// between notes become "references" relations.
package importer

import (
	"regexp"
	"strings"
)

// wikiLinkRe matches [[target]] and [[target|alias]].
var wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// WikiLink is one parsed [[wiki-link]] occurrence.
type WikiLink struct {
	Target string // Linked note name
	Alias  string // Display text when the [[target|alias]] form is used
}

// ExtractWikiLinks returns the wiki-links in content, deduplicated by target
// (case-insensitive) in order of first appearance.
func ExtractWikiLinks(content string) []WikiLink {
	matches := wikiLinkRe.FindAllStringSubmatch(content, -1)

	seen := make(map[string]bool)
	var links []WikiLink
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		key := strings.ToLower(target)
		if target == "" || seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, WikiLink{
			Target: target,
			Alias:  strings.TrimSpace(m[2]),
		})
	}
	return links
}

// StripWikiLinks replaces every wiki-link with its display text: the alias
// when present, the target name otherwise.
func StripWikiLinks(content string) string {
	return wikiLinkRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := wikiLinkRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if alias := strings.TrimSpace(parts[2]); alias != "" {
			return alias
		}
		return strings.TrimSpace(parts[1])
	})
}
