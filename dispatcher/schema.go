package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/toolcall"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaSet holds the compiled parameter schemas of one registry snapshot.
type schemaSet map[string]*jsonschema.Schema

func compileSchemas(tools []models.ToolDescriptor, logger *log.Logger) schemaSet {
	set := schemaSet{}
	for _, tool := range tools {
		if !tool.Parameters.HasSchema() {
			continue
		}
		sch, err := compileSchema(tool.Name, tool.Parameters)
		if err != nil {
			// A broken schema from the registry disables validation for that tool only.
			logger.Printf("[DISPATCHER] Ignoring unusable schema for %s: %v", tool.Name, err)
			continue
		}
		set[tool.Name] = sch
	}
	return set
}

func compileSchema(name string, params models.Parameters) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	location := "https://jarvis.local/tools/" + url.PathEscape(name) + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(location, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return c.Compile(location)
}

func (s schemaSet) validate(call toolcall.Call) error {
	if call == nil {
		return nil
	}
	req := call.Request()
	sch, ok := s[req.Function]
	if !ok {
		return nil
	}
	instance := make(map[string]any, len(req.Arguments))
	for k, v := range req.Arguments {
		instance[k] = v
	}
	return sch.Validate(instance)
}
