package getsafe

import "maps"

// Lookup walks nested objects along path.
func Lookup(payload map[string]any, path ...string) (any, bool) {
	var cur any = payload
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func String(payload map[string]any, path ...string) string {
	if v, ok := Lookup(payload, path...); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Map returns a copy of the object at path, or an empty map.
func Map(payload map[string]any, path ...string) map[string]any {
	out := map[string]any{}
	if v, ok := Lookup(payload, path...); ok {
		if m, ok := v.(map[string]any); ok {
			maps.Copy(out, m)
		}
	}
	return out
}
