package models

// ToolDescriptor describes one callable tool as advertised by the tool registry.
type ToolDescriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// HasSchema reports whether the descriptor carries a usable parameter schema.
func (p Parameters) HasSchema() bool {
	return p.Type != "" || len(p.Properties) > 0
}

// AsMap renders the parameters as a generic JSON Schema document.
func (p Parameters) AsMap() map[string]interface{} {
	schema := map[string]interface{}{}
	if p.Type != "" {
		schema["type"] = p.Type
	}
	if p.Properties != nil {
		schema["properties"] = p.Properties
	}
	if len(p.Required) > 0 {
		required := make([]interface{}, len(p.Required))
		for i, name := range p.Required {
			required[i] = name
		}
		schema["required"] = required
	}
	return schema
}

// ToolList is the registry response envelope: {"tools": [...]}.
type ToolList struct {
	Tools []ToolDescriptor `json:"tools"`
}
