package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationFailure is a dot-notation-addressed validation problem, with
// enough context to paste into a correction prompt.
type ValidationFailure struct {
	Path        string
	Message     string
	ActualValue string
	Suggestion  string
}

func (f ValidationFailure) String() string {
	s := fmt.Sprintf("%s: %s", f.Path, f.Message)
	if f.ActualValue != "" {
		s += fmt.Sprintf(" (got: %s)", f.ActualValue)
	}
	if f.Suggestion != "" {
		s += fmt.Sprintf(" — %s", f.Suggestion)
	}
	return s
}

// ParseError describes a JSON syntax error, with the byte offset and a
// caret marker into the offending text.
type ParseError struct {
	Message string
	Offset  int
	Snippet string
}

func (e *ParseError) Error() string { return e.Message }

// Validate parses raw as JSON and validates it against schemaMap. When
// strict is true, additionalProperties: false is implicitly injected into
// every object schema that does not specify it (see applyStrict).
//
// On a JSON syntax error, the returned error is a *ParseError. On a schema
// violation, it is a *ValidationError wrapping one ValidationFailure per
// violated constraint.
func Validate(raw string, schemaMap map[string]any, strict bool) error {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return parseErrorFrom(raw, err)
	}

	effective := schemaMap
	if strict {
		effective = applyStrict(schemaMap)
	}

	compiled, err := compile(effective)
	if err != nil {
		return fmt.Errorf("schema: invalid schema: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return newValidationError(err, decoded)
	}
	return nil
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource("attempt_completion.schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return c.Compile("attempt_completion.schema.json")
}

// ValidationError wraps every ValidationFailure produced by one Validate
// call.
type ValidationError struct {
	Failures []ValidationFailure
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

func newValidationError(err error, decoded any) *ValidationError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Failures: []ValidationFailure{{Path: "$", Message: err.Error()}}}
	}
	var failures []ValidationFailure
	collectFailures(ve, decoded, &failures)
	if len(failures) == 0 {
		failures = append(failures, ValidationFailure{
			Path:        dotPath(ve.InstanceLocation),
			Message:     ve.Message,
			ActualValue: actualValueSnippet(decoded, ve.InstanceLocation),
		})
	}
	return &ValidationError{Failures: failures}
}

func collectFailures(ve *jsonschema.ValidationError, decoded any, out *[]ValidationFailure) {
	if len(ve.Causes) == 0 {
		*out = append(*out, ValidationFailure{
			Path:        dotPath(ve.InstanceLocation),
			Message:     ve.Message,
			ActualValue: actualValueSnippet(decoded, ve.InstanceLocation),
			Suggestion:  suggestionFor(ve.Message),
		})
		return
	}
	for _, cause := range ve.Causes {
		collectFailures(cause, decoded, out)
	}
}

const maxActualValueSnippet = 120

// actualValueSnippet resolves the JSON-pointer-ish instance location (as
// produced by the jsonschema library, e.g. "/foo/0/bar") against the
// already-decoded document and renders it compactly, so a correction
// prompt can quote exactly what the model sent rather than just where.
func actualValueSnippet(decoded any, loc string) string {
	value, ok := resolvePointer(decoded, loc)
	if !ok {
		return ""
	}
	b, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	snippet := string(b)
	if len(snippet) > maxActualValueSnippet {
		snippet = snippet[:maxActualValueSnippet] + "…"
	}
	return snippet
}

func resolvePointer(doc any, loc string) (any, bool) {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return doc, true
	}
	cur := doc
	for _, segment := range strings.Split(loc, "/") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// dotPath turns the library's JSON-pointer-ish instance location
// ("/foo/0/bar") into dot notation ("foo.0.bar"), defaulting to "$" for the
// document root.
func dotPath(loc string) string {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return "$"
	}
	return strings.ReplaceAll(loc, "/", ".")
}

func suggestionFor(message string) string {
	switch {
	case strings.Contains(message, "additionalProperties"):
		return "remove the extra field, or add it to the schema if it is expected"
	case strings.Contains(message, "required"):
		return "add the missing required field"
	case strings.Contains(message, "type"):
		return "coerce the value to the expected type"
	default:
		return ""
	}
}

func parseErrorFrom(raw string, err error) *ParseError {
	se, ok := err.(*json.SyntaxError)
	if !ok {
		return &ParseError{Message: err.Error()}
	}
	offset := int(se.Offset)
	start := offset - 20
	if start < 0 {
		start = 0
	}
	end := offset
	if end > len(raw) {
		end = len(raw)
	}
	snippet := raw[start:end] + "^"
	return &ParseError{Message: err.Error(), Offset: offset, Snippet: snippet}
}
