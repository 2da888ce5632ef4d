package schema

// applyStrict returns a deep copy of sch with additionalProperties: false
// injected into every object schema that does not already specify it,
// recursing through properties, items (including tuple-form arrays),
// allOf/anyOf/oneOf, and $defs/definitions. $ref targets are left to be
// tightened wherever they are themselves defined (in $defs/definitions),
// since rewriting a $ref's target in place would affect every other
// schema that references it.
func applyStrict(sch map[string]any) map[string]any {
	return strictWalk(sch).(map[string]any)
}

func strictWalk(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = strictWalk(val)
		}
		isObjectSchema := false
		if t, ok := out["type"]; ok {
			if t == "object" {
				isObjectSchema = true
			}
		}
		if _, hasProps := out["properties"]; hasProps {
			isObjectSchema = true
		}
		if isObjectSchema {
			if _, has := out["additionalProperties"]; !has {
				out["additionalProperties"] = false
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = strictWalk(item)
		}
		return out
	default:
		return node
	}
}
