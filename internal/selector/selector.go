// Package selector turns loosely written element targets into CSS selectors.
package selector

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bareIdent = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	tagName   = regexp.MustCompile(`(?i)^<([a-z0-9-]+)`)
	innerText = regexp.MustCompile(`>([^<]+)<`)
)

type attrRule struct {
	pattern *regexp.Regexp
	build   func(v string) string
}

// Order matters: the first attribute present wins.
var attrRules = []attrRule{
	{regexp.MustCompile(`\bid="([^"]+)"`), func(v string) string { return "#" + v }},
	{regexp.MustCompile(`\bname="([^"]+)"`), attrSelector("name")},
	{regexp.MustCompile(`\baria-label="([^"]+)"`), attrSelector("aria-label")},
	{regexp.MustCompile(`\btitle="([^"]+)"`), attrSelector("title")},
	{regexp.MustCompile(`\bdata-testid="([^"]+)"`), attrSelector("data-testid")},
	{regexp.MustCompile(`\bclass="([^"]+)"`), classSelector},
}

func attrSelector(attr string) func(string) string {
	return func(v string) string {
		return fmt.Sprintf(`[%s="%s"]`, attr, v)
	}
}

func classSelector(v string) string {
	return "." + strings.Join(strings.Fields(v), ".")
}

// Resolve converts raw into a selector usable by the page. Bare identifiers
// become id selectors, HTML snippets are reduced to their most specific
// attribute, and anything else is assumed to already be a selector.
func Resolve(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "<") {
		if bareIdent.MatchString(trimmed) {
			return "#" + trimmed
		}
		return raw
	}

	for _, rule := range attrRules {
		if m := rule.pattern.FindStringSubmatch(trimmed); m != nil {
			return rule.build(m[1])
		}
	}
	if m := tagName.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return raw
}

// InlineText returns the first text node fragment of an HTML snippet, e.g.
// "Save" for `<button class="x">Save</button>`.
func InlineText(raw string) (string, bool) {
	m := innerText.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	text := strings.TrimSpace(m[1])
	return text, text != ""
}
