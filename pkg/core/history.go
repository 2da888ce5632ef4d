package core

import "fmt"

// History is an ordered sequence of Messages. Invariant: index 0 is a
// system message; the remainder alternates user/assistant with the
// exception that a synthetic tool-result user turn may immediately follow
// another assistant turn.
type History []Message

// Append returns a new History with msg appended.
func (h History) Append(msg Message) History {
	return append(append(History(nil), h...), msg)
}

// Validate checks History's structural invariants.
// The Agent Loop does not call it, to avoid O(n) work per turn.
func (h History) Validate() error {
	if len(h) == 0 {
		return nil
	}
	if h[0].Role != RoleSystem {
		return fmt.Errorf("history: index 0 must be system, got %s", h[0].Role)
	}
	for i := 1; i < len(h); i++ {
		prev, cur := h[i-1], h[i]
		if prev.Role == cur.Role && !(cur.Role == RoleUser && cur.Synthetic) {
			return fmt.Errorf("history: turn %d (%s) repeats the role of turn %d without being a synthetic tool result", i, cur.Role, i-1)
		}
	}
	return nil
}

// LastAssistantTexts returns up to n of the most recent assistant message
// texts, most recent last.
func (h History) LastAssistantTexts(n int) []string {
	var out []string
	for i := len(h) - 1; i >= 0 && len(out) < n; i-- {
		if h[i].Role == RoleAssistant {
			out = append([]string{h[i].Text()}, out...)
		}
	}
	return out
}

// HumanTurnCount returns the number of non-synthetic user turns, i.e. the
// number of segments.
func (h History) HumanTurnCount() int {
	n := 0
	for _, m := range h {
		if m.Role == RoleUser && !m.Synthetic {
			n++
		}
	}
	return n
}

// EstimatedTokens sums a rough per-message token estimate using the given
// counter over every text part (role overhead ignored; the loop only needs
// this to detect context pressure, not for exact billing).
func (h History) EstimatedTokens(count func(string) int) int {
	total := 0
	for _, m := range h {
		total += count(m.Text())
	}
	return total
}
