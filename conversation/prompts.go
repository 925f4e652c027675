package conversation

import (
	"context"
	"fmt"
	"os"
)

// Prompts supplies the static system instructions and the persona text.
type Prompts interface {
	Load(ctx context.Context) (system, persona string, err error)
}

// FilePrompts reads both prompts from disk on every call so edits apply
// without a restart.
type FilePrompts struct {
	SystemPath  string
	PersonaPath string
}

func (p FilePrompts) Load(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	system, err := os.ReadFile(p.SystemPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	persona, err := os.ReadFile(p.PersonaPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read persona prompt: %w", err)
	}
	return string(system), string(persona), nil
}

// StaticPrompts returns fixed strings.
type StaticPrompts struct {
	System  string
	Persona string
}

func (p StaticPrompts) Load(context.Context) (string, string, error) {
	return p.System, p.Persona, nil
}
