package domain

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"
)

// matchPayloadPath evaluates a cheap gjson path against the raw
// payload bytes. It never errors — an unparsable payload or a path
// with no match simply fails to match, the same way a Go predicate
// closure that panics would be a bug rather than a routing outcome.
func matchPayloadPath(payload []byte, path, equals string) bool {
	if len(payload) == 0 {
		return false
	}
	result := gjson.GetBytes(payload, path)
	if !result.Exists() {
		return false
	}
	return result.String() == equals
}

// matchJSONPath evaluates a full JSONPath query (for predicates gjson
// can't express — filters, wildcards, recursive descent) against the
// decoded payload. Any decode or query failure fails the match rather
// than erroring the router.
func matchJSONPath(payload []byte, query, equals string) bool {
	if len(payload) == 0 || query == "" {
		return false
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return false
	}
	result, err := jsonpath.Get(query, decoded)
	if err != nil {
		return false
	}
	switch v := result.(type) {
	case string:
		return v == equals
	case []any:
		for _, item := range v {
			if toComparable(item) == equals {
				return true
			}
		}
		return false
	default:
		return toComparable(result) == equals
	}
}

func toComparable(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
