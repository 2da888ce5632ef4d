package permission

import (
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

const splitOperators = "|&;"

// Parse tokenizes raw into a core.BashCommand: head, unquoted args, and (for
// pipelines/conjunctions) its simple components.
func Parse(raw string) core.BashCommand {
	trimmed := strings.TrimSpace(raw)
	isComplex := containsUnquoted(trimmed, splitOperators) || hasUnsafeConstructs(trimmed)

	cmd := core.BashCommand{Raw: raw, IsComplex: isComplex}

	if !isComplex {
		tokens := tokenize(trimmed)
		if len(tokens) > 0 {
			cmd.Head = tokens[0]
			cmd.Args = tokens[1:]
		}
		return cmd
	}

	if hasUnsafeConstructs(trimmed) {
		cmd.SplitFailed = true
		return cmd
	}

	parts := splitPipeline(trimmed)
	cmd.Components = make([]core.BashCommand, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := tokenize(part)
		sub := core.BashCommand{Raw: part}
		if len(tokens) > 0 {
			sub.Head = tokens[0]
			sub.Args = tokens[1:]
		}
		cmd.Components = append(cmd.Components, sub)
	}
	if len(cmd.Components) > 0 {
		cmd.Head = cmd.Components[0].Head
		cmd.Args = cmd.Components[0].Args
	}
	return cmd
}

// hasUnsafeConstructs reports whether raw contains command substitution,
// backticks, or redirection — none of which this checker can safely reason
// about component-wise, so the whole command is denied.
func hasUnsafeConstructs(raw string) bool {
	if strings.Contains(raw, "$(") || strings.Contains(raw, "`") {
		return true
	}
	inSingle, inDouble := false, false
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '>', '<':
			if !inSingle && !inDouble {
				return true
			}
		}
	}
	return false
}

// containsUnquoted reports whether raw contains any byte of chars outside
// of single or double quotes.
func containsUnquoted(raw, chars string) bool {
	inSingle, inDouble := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		default:
			if !inSingle && !inDouble && strings.IndexByte(chars, c) >= 0 {
				return true
			}
		}
	}
	return false
}

// splitPipeline splits raw across |, &&, ||, ; at the top level (outside
// quotes), treating each separator, however many operator characters wide,
// as a single boundary.
func splitPipeline(raw string) []string {
	var parts []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
			cur.WriteByte(c)
			i++
			continue
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
			cur.WriteByte(c)
			i++
			continue
		}
		if !inSingle && !inDouble && strings.IndexByte(splitOperators, c) >= 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			for i < len(raw) && strings.IndexByte(splitOperators, raw[i]) >= 0 {
				i++
			}
			continue
		}
		cur.WriteByte(c)
		i++
	}
	parts = append(parts, cur.String())
	return parts
}

// tokenize splits s on whitespace, honoring single and double quotes, and
// strips the quote characters themselves (the historical implementation
// preserved them; this one strips, per the mandated fix).
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	hasToken := false

	flush := func() {
		if hasToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			hasToken = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			hasToken = true
		case c == '"' && !inSingle:
			inDouble = !inDouble
			hasToken = true
		case (c == ' ' || c == '\t') && !inSingle && !inDouble:
			flush()
		default:
			cur.WriteByte(c)
			hasToken = true
		}
	}
	flush()
	return tokens
}
