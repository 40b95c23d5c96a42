// Package toolschema generates JSON-Schema input descriptors for the
// Go-native tools the Registry Service exposes (query-tools, list-tools,
// add-tool, add-server, delete-tool). Upstream MCP tools carry their own
// schema and never pass through this package.
package toolschema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Generate produces a JSON-Schema object (as map[string]any, ready to embed
// in a ToolDescriptor) from a Go struct type T using its json/jsonschema
// struct tags.
func Generate[T any]() map[string]any {
	var zero T
	s := jsonschema.Reflect(&zero)
	root := extractRoot(s)
	return map[string]any{
		"type":       "object",
		"properties": schemaProperties(root),
		"required":   requiredOrNil(root),
	}
}

// extractRoot resolves the root schema, following $ref to $defs if needed —
// invopop/jsonschema wraps the reflected type under $defs for named types.
func extractRoot(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref != "" && s.Definitions != nil {
		for _, def := range s.Definitions {
			if def.Type == "object" {
				return def
			}
		}
	}
	return s
}

func requiredOrNil(s *jsonschema.Schema) []string {
	if len(s.Required) == 0 {
		return nil
	}
	return s.Required
}

func schemaProperties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return map[string]any{}
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = propertySchema(pair.Value)
	}
	return props
}

func propertySchema(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// Pointer/optional types surface as anyOf [T, null] under invopop/jsonschema.
	if len(s.AnyOf) > 0 {
		for _, sub := range s.AnyOf {
			if sub.Type != "null" && sub.Type != "" {
				m["type"] = sub.Type
				break
			}
		}
	}

	if s.Properties != nil {
		m["type"] = "object"
		m["properties"] = schemaProperties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}

	if s.Items != nil {
		m["type"] = "array"
		m["items"] = propertySchema(s.Items)
	}

	return m
}

// GenerateJSON returns the schema as raw JSON bytes, for embedding directly
// in an mcp.ToolInfo.InputSchema that callers expect to marshal verbatim.
func GenerateJSON[T any]() (json.RawMessage, error) {
	return json.Marshal(Generate[T]())
}
