// Package permission implements the shell command allow/deny checker: the
// pattern grammar, the effective-policy algorithm, and component-wise
// evaluation of pipelines.
package permission

import (
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

// Decision is the outcome of evaluating one command.
type Decision struct {
	Command       string
	ParsedHead    string
	IsComplex     bool
	Allowed       bool
	Reason        string
	MatchedPattern string
	// OverriddenDeny is true when a custom allow pattern shadowed a default
	// deny pattern for this exact command.
	OverriddenDeny     bool
	AllowedByComponents bool
}

// Recorder receives one Decision per evaluated command, for audit.
type Recorder interface {
	Record(Decision)
}

// NoopRecorder discards every decision.
type NoopRecorder struct{}

func (NoopRecorder) Record(Decision) {}

// Checker evaluates shell commands against the default policy plus any
// project-supplied customAllow/customDeny overrides.
type Checker struct {
	customAllow []pattern
	customDeny  []pattern
	recorder    Recorder
}

// Option configures a Checker.
type Option func(*Checker)

// WithCustomAllow adds patterns that override a matching default deny.
func WithCustomAllow(patterns ...string) Option {
	return func(c *Checker) { c.customAllow = append(c.customAllow, parsePatterns(patterns)...) }
}

// WithCustomDeny adds patterns that always win over everything else.
func WithCustomDeny(patterns ...string) Option {
	return func(c *Checker) { c.customDeny = append(c.customDeny, parsePatterns(patterns)...) }
}

// WithRecorder installs an audit sink; defaults to NoopRecorder.
func WithRecorder(r Recorder) Option {
	return func(c *Checker) { c.recorder = r }
}

// New builds a Checker with the built-in default allow/deny lists plus any
// supplied options.
func New(opts ...Option) *Checker {
	c := &Checker{recorder: NoopRecorder{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check parses raw and decides whether it may execute.
func (c *Checker) Check(raw string) Decision {
	cmd := Parse(raw)
	var d Decision
	if cmd.IsComplex {
		d = c.checkComplex(cmd)
	} else {
		d = c.checkSimple(cmd)
	}
	c.recorder.Record(d)
	return d
}

func (c *Checker) checkComplex(cmd core.BashCommand) Decision {
	d := Decision{Command: cmd.Raw, ParsedHead: cmd.Head, IsComplex: true}
	if cmd.SplitFailed {
		d.Reason = "complex command could not be safely split (substitution, redirection, or backticks present)"
		return d
	}
	allAllowed := len(cmd.Components) > 0
	for _, comp := range cmd.Components {
		sub := c.checkSimple(comp)
		if !sub.Allowed {
			allAllowed = false
			d.Reason = "component " + sub.ParsedHead + " denied: " + sub.Reason
			break
		}
	}
	d.Allowed = allAllowed
	d.AllowedByComponents = allAllowed
	if allAllowed {
		d.Reason = "every pipeline component allowed"
	}
	return d
}

func (c *Checker) checkSimple(cmd core.BashCommand) Decision {
	d := Decision{Command: cmd.Raw, ParsedHead: cmd.Head, IsComplex: cmd.IsComplex}
	key := structuralKey(cmd)

	// find is allow-listed only "without -exec"; -exec can appear anywhere
	// in its argument list, not just at args[0], so the positional pattern
	// grammar cannot express this exception and it is special-cased here.
	if cmd.Head == "find" && containsArg(cmd.Args, "-exec") {
		if _, ok := matchAny(c.customAllow, key); !ok {
			d.Reason = "matches default deny pattern"
			d.MatchedPattern = "find:-exec"
			return d
		}
	}

	if m, ok := matchAny(c.customDeny, key); ok {
		d.Reason = "matches custom deny pattern"
		d.MatchedPattern = m
		return d
	}

	defM, defDenied := matchAny(defaultDeny, key)
	customM, customAllowed := matchAny(c.customAllow, key)

	if defDenied && !customAllowed {
		d.Reason = "matches default deny pattern"
		d.MatchedPattern = defM
		return d
	}

	if customAllowed {
		d.Allowed = true
		d.MatchedPattern = customM
		d.OverriddenDeny = defDenied
		d.Reason = "matches custom allow pattern"
		return d
	}

	if m, ok := matchAny(defaultAllow, key); ok {
		d.Allowed = true
		d.MatchedPattern = m
		d.Reason = "matches default allow pattern"
		return d
	}

	d.Reason = "not in allow list"
	return d
}

// structuralKey builds the {head, args[0], args[1], ...} key a pattern
// matches against, never against the raw command string.
func structuralKey(cmd core.BashCommand) []string {
	key := []string{cmd.Head}
	key = append(key, cmd.Args...)
	return key
}

// pattern is a parsed `command`, `command:subcommand`, or `command:*`
// grammar entry. Only a segment that is exactly "*" is a wildcard; a
// segment such as `mcp__server__*` is compared literally.
type pattern struct {
	segments []string // e.g. ["git", "stash", "list"], "*" is a wildcard segment
	raw      string
}

func parsePattern(s string) pattern {
	return pattern{segments: strings.Split(s, ":"), raw: s}
}

func parsePatterns(ss []string) []pattern {
	out := make([]pattern, 0, len(ss))
	for _, s := range ss {
		out = append(out, parsePattern(s))
	}
	return out
}

// matches reports whether key (head, args...) satisfies p. Each pattern
// segment is compared positionally against the corresponding key element;
// "*" matches any single element at that position. Extra key elements
// beyond the pattern's length (additional flags/args) do not break a
// match, so a bare "command" pattern matches that command regardless of
// its arguments.
func (p pattern) matches(key []string) bool {
	if len(key) < len(p.segments) {
		return false
	}
	for i, seg := range p.segments {
		if seg != "*" && seg != key[i] {
			return false
		}
	}
	return true
}

func matchAny(patterns []pattern, key []string) (matched string, ok bool) {
	for _, p := range patterns {
		if p.matches(key) {
			return p.raw, true
		}
	}
	return "", false
}

func containsArg(args []string, target string) bool {
	for _, a := range args {
		if a == target {
			return true
		}
	}
	return false
}
