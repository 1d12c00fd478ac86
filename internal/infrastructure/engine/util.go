package engine

import "encoding/json"

// jsonStringify renders an arbitrary native value as JSON text, used by
// formatOutput when coercing a non-string output to its "string" format.
func jsonStringify(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
