package parse

import "encoding/json"

// JSONDocument decodes a JSON object payload into a generic map. Returns
// ok=false instead of an error so adapters can log-and-skip malformed
// payloads without plumbing decode errors around.
func JSONDocument(b []byte) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// JSONArray decodes a top-level JSON array payload.
func JSONArray(b []byte) ([]any, bool) {
	var arr []any
	if err := json.Unmarshal(b, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// String digs a string value out of a generic JSON map; missing or
// non-string values come back empty.
func String(doc map[string]any, keys ...string) string {
	cur := any(doc)
	for i, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[k]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			if s, ok := cur.(string); ok {
				return s
			}
			return ""
		}
	}
	return ""
}

// Array digs a []any out of a generic JSON map.
func Array(doc map[string]any, keys ...string) []any {
	cur := any(doc)
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[k]
		if !ok {
			return nil
		}
	}
	arr, _ := cur.([]any)
	return arr
}
