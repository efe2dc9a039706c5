package schema

import "strings"

// HoverInfo is the bag of optional display fields extracted from a schema
// node, ready to be rendered as markdown for an LSP hover response.
type HoverInfo struct {
	Description string
	TypeInfo    string
	Default     string
	Examples    []string
	EnumValues  []string
}

// IsEmpty reports whether every field is absent, meaning the hover
// response should be null.
func (h HoverInfo) IsEmpty() bool {
	return h.Description == "" && h.TypeInfo == "" && h.Default == "" &&
		len(h.Examples) == 0 && len(h.EnumValues) == 0
}

// ToMarkdown renders h as markdown paragraphs, in order: description,
// type, default, allowed values, examples.
func (h HoverInfo) ToMarkdown() string {
	var parts []string

	if h.Description != "" {
		parts = append(parts, h.Description)
	}

	if h.TypeInfo != "" {
		parts = append(parts, "**Type:** `"+h.TypeInfo+"`")
	}

	if h.Default != "" {
		parts = append(parts, "**Default:** `"+h.Default+"`")
	}

	if len(h.EnumValues) > 0 {
		parts = append(parts, "**Allowed values:** "+backtickJoin(h.EnumValues))
	}

	if len(h.Examples) > 0 {
		parts = append(parts, "**Examples:** "+backtickJoin(h.Examples))
	}

	return strings.Join(parts, "\n\n")
}

func backtickJoin(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "`" + v + "`"
	}

	return strings.Join(quoted, ", ")
}

func extractHoverInfo(obj map[string]any) HoverInfo {
	description, _ := obj["description"].(string)
	if description == "" {
		description, _ = obj["title"].(string)
	}

	var typeInfo string

	switch t := obj["type"].(type) {
	case string:
		typeInfo = t
	case []any:
		var types []string

		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}

		typeInfo = strings.Join(types, " | ")
	}

	var defaultText string

	if def, ok := obj["default"]; ok {
		defaultText = renderJSONValue(def)
	}

	var examples []string

	if arr, ok := obj["examples"].([]any); ok {
		for _, v := range arr {
			examples = append(examples, renderJSONValue(v))
		}
	}

	var enumValues []string

	if arr, ok := obj["enum"].([]any); ok {
		for _, v := range arr {
			enumValues = append(enumValues, renderJSONValue(v))
		}
	}

	return HoverInfo{
		Description: description,
		TypeInfo:    typeInfo,
		Default:     defaultText,
		Examples:    examples,
		EnumValues:  enumValues,
	}
}
