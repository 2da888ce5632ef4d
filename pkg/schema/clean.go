// Package schema implements response cleaning, strict-mode JSON-Schema
// validation, and the bounded self-repair loop for attempt_completion
// payloads.
package schema

import (
	"regexp"
	"strings"
)

var (
	resultWrapperPattern = regexp.MustCompile(`(?is)^\s*<result>(.*)</result>\s*$`)
	fencedJSONPattern    = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*\\n(.*?)\\n?```\\s*$")
	singleQuotedPattern  = regexp.MustCompile(`'([^'\\]*(?:\\.[^'\\]*)*)'`)
)

// Clean implements response cleaning: strip an outer <result> wrapper if
// the entire payload is one, then extract the first fenced json block if
// and only if it spans essentially the whole response, then normalize
// JavaScript-style single-quoted literals inside it to double-quoted JSON.
func Clean(raw string) string {
	text := raw

	if m := resultWrapperPattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		text = normalizeSingleQuotes(m[1])
	}

	return strings.TrimSpace(text)
}

// normalizeSingleQuotes rewrites 'single quoted' strings to "double quoted"
// ones, a tolerance for models that emit JavaScript object literals instead
// of JSON. It only touches text that does not already look like valid JSON
// string quoting, to avoid corrupting apostrophes inside already-correct
// double-quoted strings.
func normalizeSingleQuotes(text string) string {
	if !looksLikeSingleQuotedJS(text) {
		return text
	}
	return singleQuotedPattern.ReplaceAllStringFunc(text, func(m string) string {
		inner := m[1 : len(m)-1]
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
}

// looksLikeSingleQuotedJS is a cheap heuristic: more single quotes than
// double quotes suggests JS-style literals rather than JSON with
// apostrophes inside ordinary double-quoted strings.
func looksLikeSingleQuotedJS(text string) bool {
	singles := strings.Count(text, "'")
	doubles := strings.Count(text, `"`)
	return singles > 0 && singles >= doubles
}
