package models

import (
	"encoding/json"
	"strings"
)

// ExtractJSONDocument pulls the first JSON object out of agent output.
// Backends sometimes wrap the document in prose or code fences; malformed
// output returns ok=false and the caller degrades to raw text.
func ExtractJSONDocument(content string) (json.RawMessage, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start < 0 || end <= start {
		return nil, false
	}

	candidate := content[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}

	return json.RawMessage(candidate), true
}
