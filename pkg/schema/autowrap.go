package schema

import "encoding/json"

// simpleWrapperField returns the sole string-typed property name if
// schemaMap is structurally { <field>: string } — i.e. exactly one
// required (or only) property, typed "string", with no nested structure —
// and "" otherwise.
func simpleWrapperField(schemaMap map[string]any) string {
	props, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(props) != 1 {
		return ""
	}
	var name string
	var propSchema map[string]any
	for k, v := range props {
		name = k
		propSchema, ok = v.(map[string]any)
		if !ok {
			return ""
		}
	}
	if propSchema["type"] != "string" {
		return ""
	}
	return name
}

// autoWrap applies the simple-wrapper rule: if raw is not valid JSON and
// schemaMap is a single-string-field wrapper schema, wrap raw as
// {"<field>": raw} and return the re-encoded JSON text. ok is false when
// the rule does not apply, in which case raw is returned unchanged.
func autoWrap(raw string, schemaMap map[string]any) (wrapped string, ok bool) {
	var probe any
	if json.Unmarshal([]byte(raw), &probe) == nil {
		return raw, false // already valid JSON, no need to wrap
	}

	field := simpleWrapperField(schemaMap)
	if field == "" {
		return raw, false
	}

	out, err := json.Marshal(map[string]string{field: raw})
	if err != nil {
		return raw, false
	}
	return string(out), true
}
