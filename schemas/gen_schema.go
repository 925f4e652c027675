package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/b4llu97/jarvis/toolserver"
)

// Writes one <name>.json per tool definition, the same descriptors
// GET /v1/tools serves, so prompt authors can inspect them offline.
func main() {
	toolName := flag.String("tool", "", "Only write the schema of this tool")
	outDir := flag.String("out", "cached_schemas", "Output directory for the generated schemas")
	flag.Parse()

	tools, err := toolserver.Definitions()
	if err != nil {
		log.Fatalf("Failed to build tool definitions: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory '%s': %v", *outDir, err)
	}

	written := 0
	for _, tool := range tools {
		if *toolName != "" && tool.Name != *toolName {
			continue
		}
		schemaJSON, err := json.MarshalIndent(tool, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal schema for '%s': %v", tool.Name, err)
		}
		outputFile := filepath.Join(*outDir, tool.Name+".json")
		if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
			log.Fatalf("Failed to write schema file '%s': %v", outputFile, err)
		}
		log.Printf("Wrote %s", outputFile)
		written++
	}

	if written == 0 {
		log.Fatalf("No tool named '%s'", *toolName)
	}
	fmt.Printf("Generated %d schema(s) in %s\n", written, *outDir)
}
