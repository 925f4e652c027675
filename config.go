package jarvis

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/retry"
	"github.com/joho/godotenv"
)

// Config holds everything needed to wire the services.
type Config struct {
	ToolserverURL string
	LLMProvider   string // "ollama", "groq" or "gemini"

	OllamaURL    string
	OllamaModel  string
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	GeminiAPIKey string
	GeminiModel  string

	SystemPromptPath  string
	PersonaPromptPath string

	LLMTimeout          time.Duration
	RegistryTimeout     time.Duration
	FactTimeout         time.Duration
	SearchTimeout       time.Duration
	SearchMaxResults    int
	DispatchConcurrency int
	Retry               retry.Policy

	ListenAddr     string
	ToolserverAddr string
	StoreType      string
	StoreDSN       string
	AuditEnabled   bool

	ProactivityConfig string
	TelegramBotToken  string
	TelegramChatID    string
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() *Config {
	return &Config{
		ToolserverURL:       "http://toolserver:8002",
		LLMProvider:         "ollama",
		OllamaURL:           "http://llama:11434",
		OllamaModel:         "llama3.1",
		GroqModel:           "llama-3.1-70b-versatile",
		GeminiModel:         "gemini-2.0-flash",
		SystemPromptPath:    "/app/config/system_prompt.txt",
		PersonaPromptPath:   "/app/config/persona_prompt.txt",
		LLMTimeout:          60 * time.Second,
		RegistryTimeout:     5 * time.Second,
		FactTimeout:         5 * time.Second,
		SearchTimeout:       10 * time.Second,
		SearchMaxResults:    3,
		DispatchConcurrency: 4,
		Retry:               retry.Default(),
		ListenAddr:          ":8001",
		ToolserverAddr:      ":8002",
		StoreType:           "sqlite",
		StoreDSN:            "jarvis.sqlite",
		AuditEnabled:        true,
		ProactivityConfig:   "/app/config/proactivity.yaml",
	}
}

// LoadConfig reads a .env file if present and overlays the environment on the defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a Config from lookup, which has the signature of os.LookupEnv.
func ConfigFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	c := DefaultConfig()
	e := envReader{lookup: lookup}

	e.str("TOOLSERVER_URL", &c.ToolserverURL)
	e.str("LLM_PROVIDER", &c.LLMProvider)
	e.str("OLLAMA_URL", &c.OllamaURL)
	e.str("OLLAMA_MODEL", &c.OllamaModel)
	e.str("GROQ_API_KEY", &c.GroqAPIKey)
	e.str("GROQ_MODEL", &c.GroqModel)
	e.str("GROQ_BASE_URL", &c.GroqBaseURL)
	e.str("GEMINI_API_KEY", &c.GeminiAPIKey)
	e.str("GEMINI_MODEL", &c.GeminiModel)
	e.str("SYSTEM_PROMPT_PATH", &c.SystemPromptPath)
	e.str("PERSONA_PROMPT_PATH", &c.PersonaPromptPath)
	e.duration("LLM_TIMEOUT", &c.LLMTimeout)
	e.duration("REGISTRY_TIMEOUT", &c.RegistryTimeout)
	e.duration("FACT_TIMEOUT", &c.FactTimeout)
	e.duration("SEARCH_TIMEOUT", &c.SearchTimeout)
	e.integer("SEARCH_MAX_RESULTS", &c.SearchMaxResults)
	e.integer("DISPATCH_CONCURRENCY", &c.DispatchConcurrency)
	e.integer("RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	e.duration("RETRY_BASE_DELAY", &c.Retry.BaseDelay)
	e.float("RETRY_MULTIPLIER", &c.Retry.Multiplier)
	e.str("LISTEN_ADDR", &c.ListenAddr)
	e.str("TOOLSERVER_ADDR", &c.ToolserverAddr)
	e.str("STORE_TYPE", &c.StoreType)
	e.str("STORE_DSN", &c.StoreDSN)
	e.boolean("AUDIT_ENABLED", &c.AuditEnabled)
	e.str("PROACTIVITY_CONFIG", &c.ProactivityConfig)
	e.str("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)
	e.str("TELEGRAM_CHAT_ID", &c.TelegramChatID)

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "ollama", "groq", "gemini":
	default:
		return fmt.Errorf("invalid configuration: unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.SearchMaxResults < 1 {
		return fmt.Errorf("invalid configuration: SEARCH_MAX_RESULTS must be at least 1")
	}
	if c.DispatchConcurrency < 1 {
		return fmt.Errorf("invalid configuration: DISPATCH_CONCURRENCY must be at least 1")
	}
	return nil
}

// WithToolserverURL sets the toolserver base URL
func (c *Config) WithToolserverURL(url string) *Config {
	c.ToolserverURL = url
	return c
}

// WithLLMProvider selects the model backend
func (c *Config) WithLLMProvider(provider string) *Config {
	c.LLMProvider = provider
	return c
}

// WithPrompts sets the prompt file paths
func (c *Config) WithPrompts(systemPath, personaPath string) *Config {
	c.SystemPromptPath = systemPath
	c.PersonaPromptPath = personaPath
	return c
}

// WithStore sets the database type and connection string
func (c *Config) WithStore(storeType, dsn string) *Config {
	c.StoreType = storeType
	c.StoreDSN = dsn
	return c
}

// WithRetry sets the retry policy for outbound calls
func (c *Config) WithRetry(policy retry.Policy) *Config {
	c.Retry = policy
	return c
}

// WithDispatchConcurrency bounds parallel tool calls; 1 runs them sequentially
func (c *Config) WithDispatchConcurrency(n int) *Config {
	c.DispatchConcurrency = n
	return c
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		secs, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
			return
		}
		d = time.Duration(secs * float64(time.Second))
	}
	*dst = d
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*dst = f
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*dst = b
}
