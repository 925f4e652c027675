// Package toolserver is the REST tool provider: it advertises the callable
// tools and serves the fact store and document search behind them. Client is
// the orchestrator's side of the same API.
package toolserver

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/toolcall"
	"github.com/invopop/jsonschema"
)

// GetFactArgs are the arguments of get_fact.
type GetFactArgs struct {
	Key string `json:"key" jsonschema:"minLength=1" jsonschema_description:"Der Schlüssel des Fakts (z.B. 'versicherung.gebaeude.summe')"`
}

// SetFactArgs are the arguments of set_fact.
type SetFactArgs struct {
	Key   string `json:"key" jsonschema:"minLength=1" jsonschema_description:"Der Schlüssel des Fakts"`
	Value string `json:"value" jsonschema_description:"Der Wert des Fakts"`
}

// SearchDocsArgs are the arguments of search_docs.
type SearchDocsArgs struct {
	Query    string `json:"query" jsonschema:"minLength=1" jsonschema_description:"Die Suchanfrage"`
	NResults int    `json:"n_results,omitempty" jsonschema:"default=5,minimum=1" jsonschema_description:"Anzahl der Ergebnisse (Standard: 5)"`
}

type definition struct {
	name        toolcall.Function
	description string
	args        interface{}
}

var catalog = []definition{
	{toolcall.FuncGetFact, "Ruft einen gespeicherten Fakt aus der Datenbank ab", &GetFactArgs{}},
	{toolcall.FuncSetFact, "Speichert einen neuen Fakt in der Datenbank", &SetFactArgs{}},
	{toolcall.FuncSearchDocs, "Durchsucht die Dokumentensammlung semantisch nach relevanten Informationen", &SearchDocsArgs{}},
}

var (
	definitionsOnce sync.Once
	definitions     []models.ToolDescriptor
	definitionsErr  error
)

// Definitions returns the descriptors served by GET /v1/tools. Parameter
// schemas are reflected from the argument structs once.
func Definitions() ([]models.ToolDescriptor, error) {
	definitionsOnce.Do(func() {
		out := make([]models.ToolDescriptor, 0, len(catalog))
		for _, def := range catalog {
			params, err := reflectParameters(def.args)
			if err != nil {
				definitionsErr = fmt.Errorf("failed to build schema for %s: %w", def.name, err)
				return
			}
			out = append(out, models.ToolDescriptor{
				Name:        string(def.name),
				Description: def.description,
				Parameters:  params,
			})
		}
		definitions = out
	})
	if definitionsErr != nil {
		return nil, definitionsErr
	}
	result := make([]models.ToolDescriptor, len(definitions))
	copy(result, definitions)
	return result, nil
}

func reflectParameters(args interface{}) (models.Parameters, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(args)

	raw, err := json.Marshal(schema)
	if err != nil {
		return models.Parameters{}, err
	}
	var params models.Parameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return models.Parameters{}, err
	}
	if params.Required == nil {
		params.Required = []string{}
	}
	return params, nil
}
