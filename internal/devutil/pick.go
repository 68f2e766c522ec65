// Package devutil renders records for console previews.
package devutil

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pick round-trips v through JSON and keeps only the requested keys.
func Pick(v any, keys ...string) map[string]any {
	m := asMap(v)
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if val, ok := m[k]; ok {
			out[k] = val
		}
	}
	return out
}

// Preview renders the requested keys of v as YAML, in the order given.
// Strings longer than maxLen are cut; maxLen <= 0 disables cutting.
func Preview(v any, maxLen int, keys ...string) string {
	m := Pick(v, keys...)
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		val, ok := m[k]
		if !ok {
			continue
		}
		if s, isStr := val.(string); isStr {
			val = clip(s, maxLen)
		}
		var vn yaml.Node
		if err := vn.Encode(val); err != nil {
			continue
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &vn)
	}
	if len(doc.Content) == 0 {
		return ""
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(b), "\n")
}

func asMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func clip(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
