// Package parser extracts at most one ToolCall from assistant text that may
// also contain prose and <thinking> blocks.
//
// The load-bearing trick is the closing-tag search direction: the matching
// </toolName> for the outer tool tag is found via the LAST occurrence in
// the remainder, not the first. A naive first-occurrence search truncates
// any attempt_completion payload whose JSON value happens to contain the
// literal substring "</attempt_completion>".
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

var thinkingBlockRe = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// toolNameRe matches a bare identifier usable as an XML tag name: the tool
// names the registry produces (snake/lower-case, optionally
// mcp__server__tool qualified).
var toolNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Parser implements core.Parser.
type Parser struct {
	// LastThinking exposes the most recently stripped <thinking> content
	// for a debug channel; not used for control flow.
	LastThinking string
}

// New builds a Parser.
func New() *Parser { return &Parser{} }

// Parse implements core.Parser.
func (p *Parser) Parse(assistantText string, known core.ToolNameSource) (*core.ToolCall, bool, error) {
	stripped, thinking := stripThinking(assistantText)
	p.LastThinking = thinking

	name, inner, found := findFirstToolBlock(stripped, known)
	if !found {
		return nil, false, nil
	}

	call := &core.ToolCall{Name: name, RawThinking: thinking}

	if known.IsMCPTool(name) {
		params, err := parseMCPParams(inner)
		if err != nil {
			return nil, false, fmt.Errorf("parser: mcp tool %q: %w", name, err)
		}
		call.Parameters = params
		call.Origin = core.OriginMCPJSON
		return call, true, nil
	}

	call.Parameters = parseNativeParams(inner)
	call.Origin = core.OriginNativeXML
	return call, true, nil
}

// stripThinking removes every <thinking>...</thinking> block and returns
// the stripped text plus the concatenated stripped content for debugging.
func stripThinking(text string) (string, string) {
	var thinking strings.Builder
	stripped := thinkingBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(match, "<thinking>"), "</thinking>")
		thinking.WriteString(inner)
		return ""
	})
	return stripped, thinking.String()
}

// findFirstToolBlock locates the first opening tag for a known tool name,
// then the matching closing tag via a last-occurrence search within the
// remainder of the text.
func findFirstToolBlock(text string, known core.ToolNameSource) (name, inner string, found bool) {
	bestOpenIdx := -1
	var bestName string
	var bestOpenEnd int

	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			continue
		}
		candName, end, ok := readTagName(text, i)
		if !ok {
			continue
		}
		if !toolNameRe.MatchString(candName) {
			continue
		}
		if !known.HasTool(candName) {
			continue
		}
		if bestOpenIdx == -1 || i < bestOpenIdx {
			bestOpenIdx = i
			bestName = candName
			bestOpenEnd = end
		}
	}

	if bestOpenIdx == -1 {
		return "", "", false
	}

	closeTag := "</" + bestName + ">"
	remainder := text[bestOpenEnd:]
	closeIdx := strings.LastIndex(remainder, closeTag)
	if closeIdx == -1 {
		return "", "", false
	}

	return bestName, remainder[:closeIdx], true
}

// readTagName reads an opening tag "<name ...>" or "<name>" starting at
// position i (text[i] == '<'). It returns the tag name and the index just
// after the closing '>' of the opening tag.
func readTagName(text string, i int) (name string, end int, ok bool) {
	if i+1 >= len(text) || text[i+1] == '/' {
		return "", 0, false
	}
	j := i + 1
	start := j
	for j < len(text) && (isNameChar(text[j])) {
		j++
	}
	if j == start {
		return "", 0, false
	}
	name = text[start:j]
	// Skip to the closing '>' of this opening tag, tolerating attributes.
	for j < len(text) && text[j] != '>' {
		j++
	}
	if j >= len(text) {
		return "", 0, false
	}
	return name, j + 1, true
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseNativeParams parses direct <param>value</param> children of the
// outer tool tag. Values are trimmed; nested XML inside a value is
// preserved verbatim.
func parseNativeParams(inner string) map[string]any {
	params := map[string]any{}
	pos := 0
	for pos < len(inner) {
		openStart := strings.IndexByte(inner[pos:], '<')
		if openStart == -1 {
			break
		}
		openStart += pos
		name, afterOpen, ok := readTagName(inner, openStart)
		if !ok {
			pos = openStart + 1
			continue
		}
		closeTag := "</" + name + ">"
		closeIdx := strings.LastIndex(inner[afterOpen:], closeTag)
		if closeIdx == -1 {
			pos = afterOpen
			continue
		}
		value := inner[afterOpen : afterOpen+closeIdx]
		params[name] = strings.TrimSpace(value)
		pos = afterOpen + closeIdx + len(closeTag)
	}
	return params
}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// parseMCPParams finds the single <params>{...}</params> child and parses
// its content as JSON, after quote-normalising any fenced json block.
func parseMCPParams(inner string) (map[string]any, error) {
	const open, close = "<params>", "</params>"
	start := strings.Index(inner, open)
	if start == -1 {
		return nil, fmt.Errorf("no <params> element found")
	}
	start += len(open)
	end := strings.LastIndex(inner[start:], close)
	if end == -1 {
		return nil, fmt.Errorf("no matching </params> element found")
	}
	raw := strings.TrimSpace(inner[start : start+end])

	raw = normalizeFencedJSON(raw)

	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("invalid JSON in <params>: %w", err)
	}
	return params, nil
}

// normalizeFencedJSON rewrites single-quoted JS-style arrays/objects found
// inside ```json fences to double-quoted JSON. Normalisation is scoped to
// the fenced-block extraction step only; raw JSON outside fences is left
// untouched so strings containing single quotes are not corrupted.
func normalizeFencedJSON(raw string) string {
	return fencedJSONRe.ReplaceAllStringFunc(raw, func(block string) string {
		m := fencedJSONRe.FindStringSubmatch(block)
		if len(m) != 2 {
			return block
		}
		return jsQuotesToDouble(m[1])
	})
}

// jsQuotesToDouble converts a conservative subset of JS-style single quotes
// to double quotes: it only rewrites quotes that are not already inside a
// double-quoted string.
func jsQuotesToDouble(s string) string {
	var b strings.Builder
	inDouble := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			inDouble = !inDouble
			b.WriteByte(c)
		case '\'':
			if inDouble {
				b.WriteByte(c)
			} else {
				b.WriteByte('"')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
