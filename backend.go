package jarvis

import (
	"context"
	"fmt"
	"log"

	"github.com/b4llu97/jarvis/conversation"
	"github.com/b4llu97/jarvis/dispatcher"
	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/models/gemini"
	"github.com/b4llu97/jarvis/models/groq"
	"github.com/b4llu97/jarvis/models/ollama"
	"github.com/b4llu97/jarvis/registry"
)

// ToolBackend is everything the pipeline needs from a tool provider.
// toolserver.Client and toolserver.Local implement it.
type ToolBackend interface {
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)
	dispatcher.FactStore
	dispatcher.Searcher
}

// NewModel creates the model backend selected by cfg.LLMProvider.
func NewModel(cfg *Config) (Model, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		m := ollama.New(cfg.OllamaURL, cfg.OllamaModel)
		m.Timeout = cfg.LLMTimeout
		m.Retry = cfg.Retry
		return m, nil
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("LLM_PROVIDER=groq requires GROQ_API_KEY")
		}
		m := groq.New(cfg.GroqAPIKey, cfg.GroqModel)
		m.BaseURL = cfg.GroqBaseURL
		m.Timeout = cfg.LLMTimeout
		m.Retry = cfg.Retry
		return m, nil
	case "gemini":
		m := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		m.Timeout = cfg.LLMTimeout
		m.Retry = cfg.Retry
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

// Build wires an orchestrator from cfg. audit may be nil.
func Build(cfg *Config, tools ToolBackend, model Model, audit AuditRecorder, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}

	reg := registry.NewClient(tools)
	reg.Timeout = cfg.RegistryTimeout
	reg.Logger = logger

	disp := dispatcher.New(tools, tools)
	disp.MaxResults = cfg.SearchMaxResults
	disp.FactTimeout = cfg.FactTimeout
	disp.SearchTimeout = cfg.SearchTimeout
	disp.Concurrency = cfg.DispatchConcurrency
	disp.Logger = logger

	o := NewOrchestrator(reg, disp, model, conversation.FilePrompts{
		SystemPath:  cfg.SystemPromptPath,
		PersonaPath: cfg.PersonaPromptPath,
	})
	if audit != nil && cfg.AuditEnabled {
		o.Audit = audit
	}
	o.Logger = logger
	return o
}
