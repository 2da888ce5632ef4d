package schema

import (
	"encoding/json"
	"regexp"
)

var mermaidBlockPattern = regexp.MustCompile("(?s)```mermaid\\s*\\n(.*?)\\n?```")

var bracketPairs = map[rune]rune{')': '(', ']': '[', '}': '{'}

// isBalanced is the basic Mermaid syntax check: every bracket closes in the
// right order. It does not parse Mermaid grammar, only rejects the most
// common malformed-diagram failure mode models produce.
func isBalanced(body string) bool {
	var stack []rune
	for _, r := range body {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != bracketPairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

func renderSchemaForPrompt(schemaMap map[string]any) string {
	raw, err := json.MarshalIndent(schemaMap, "", "  ")
	if err != nil {
		return "(schema unavailable)"
	}
	return string(raw)
}
