package toolserver

import (
	"testing"

	"github.com/b4llu97/jarvis/toolcall"
)

func TestDefinitions_AllFunctionsPresent(t *testing.T) {
	defs, err := Definitions()
	if err != nil {
		t.Fatalf("Definitions() error = %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("Expected 3 definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if !toolcall.Known(def.Name) {
			t.Errorf("Definition %q has no parser signature", def.Name)
		}
		if def.Description == "" {
			t.Errorf("Definition %q has no description", def.Name)
		}
		if def.Parameters.Type != "object" {
			t.Errorf("Definition %q: expected object schema, got %q", def.Name, def.Parameters.Type)
		}
	}
}

func TestDefinitions_RequiredFields(t *testing.T) {
	defs, err := Definitions()
	if err != nil {
		t.Fatalf("Definitions() error = %v", err)
	}
	want := map[string][]string{
		"get_fact":    {"key"},
		"set_fact":    {"key", "value"},
		"search_docs": {"query"},
	}
	for _, def := range defs {
		got := def.Parameters.Required
		if len(got) != len(want[def.Name]) {
			t.Errorf("%s: required = %v, want %v", def.Name, got, want[def.Name])
			continue
		}
		for i := range got {
			if got[i] != want[def.Name][i] {
				t.Errorf("%s: required = %v, want %v", def.Name, got, want[def.Name])
			}
		}
	}
}

func TestDefinitions_PropertyDescriptions(t *testing.T) {
	defs, err := Definitions()
	if err != nil {
		t.Fatalf("Definitions() error = %v", err)
	}
	for _, def := range defs {
		if def.Name != "get_fact" {
			continue
		}
		key, ok := def.Parameters.Properties["key"].(map[string]interface{})
		if !ok {
			t.Fatalf("get_fact: missing key property")
		}
		if key["type"] != "string" {
			t.Errorf("get_fact.key type = %v", key["type"])
		}
		if key["description"] != "Der Schlüssel des Fakts (z.B. 'versicherung.gebaeude.summe')" {
			t.Errorf("get_fact.key description = %v", key["description"])
		}
	}
}

func TestDefinitions_ReturnsCopy(t *testing.T) {
	a, _ := Definitions()
	a[0].Name = "mutated"
	b, _ := Definitions()
	if b[0].Name == "mutated" {
		t.Error("Definitions() exposes shared state")
	}
}
