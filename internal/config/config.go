// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CHATGATE_* prefix, runtime override)
//  2. Config file (~/.chatgate/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model provider and model name for the agent backend
//   - ToolServer: transport and address of the remote MCP tool server
//   - Gateway: welcome message, prompt fallback, throttling, timeouts
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTransport indicates the tool server transport is not supported.
	ErrInvalidTransport = errors.New("invalid tool server transport")

	// ErrMissingToolServerURL indicates a URL transport without a URL.
	ErrMissingToolServerURL = errors.New("missing tool server URL")

	// ErrMissingToolServerCommand indicates a stdio transport without a command.
	ErrMissingToolServerCommand = errors.New("missing tool server command")

	// ErrInvalidMaxTurns indicates the agent turn limit is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidRateLimit indicates a negative message rate or burst.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Tool server transport identifiers used in ToolServer.Transport.
const (
	TransportHTTP  = "http"
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

// DefaultSystemPrompt is used when the tool server does not provide one.
const DefaultSystemPrompt = `You are a helpful assistant with access to multiple tools. Based on the
user's question, determine which tool is most appropriate and use it to
provide an answer.`

// DefaultWelcomeMessage is pushed to every client right after connecting.
const DefaultWelcomeMessage = "Hello! I'm your assistant with access to lookup and calculation tools. How can I help you today?"

// ToolServer describes the remote MCP server the gateway binds tools from.
type ToolServer struct {
	// Name identifies the server in logs and MCP handshakes.
	Name string `mapstructure:"name"`

	// Transport selects how to reach the server: "http" (streamable HTTP,
	// default), "sse", or "stdio" (spawn a subprocess).
	Transport string `mapstructure:"transport"`

	// URL is the server endpoint for the http and sse transports.
	URL string `mapstructure:"url"`

	// Command and Args launch the server for the stdio transport.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// Config stores the application configuration.
type Config struct {
	// AI provider and model configuration
	Provider   string `mapstructure:"provider"`    // "gemini" (default), "ollama", "openai"
	ModelName  string `mapstructure:"model_name"`  // provider-qualified model (e.g. "googleai/gemini-2.5-flash")
	OllamaHost string `mapstructure:"ollama_host"` // only for provider "ollama"
	MaxTurns   int    `mapstructure:"max_turns"`   // agentic tool-call loop limit

	// Tool server
	ToolServer ToolServer `mapstructure:"tool_server"`

	// Prompting
	SystemPrompt     string `mapstructure:"system_prompt"`      // fallback when the server has none
	SystemPromptName string `mapstructure:"system_prompt_name"` // prompt fetched from the tool server

	// Gateway behavior
	ListenAddr     string  `mapstructure:"listen_addr"`
	WelcomeMessage string  `mapstructure:"welcome_message"`
	RespondTimeout int     `mapstructure:"respond_timeout"` // seconds; 0 disables (source imposed none)
	MessageRate    float64 `mapstructure:"message_rate"`    // inbound messages/sec per client; 0 disables
	MessageBurst   int     `mapstructure:"message_burst"`

	// Observability (optional OTLP trace export)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // e.g. "localhost:4318"; empty disables
	ServiceName  string `mapstructure:"service_name"`

	// Logging
	LogLevel string `mapstructure:"log_level"` // "debug", "info" (default), "warn", "error"
	LogJSON  bool   `mapstructure:"log_json"`
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}

// RespondTimeoutDuration returns the configured respond timeout, or zero when
// disabled.
func (c *Config) RespondTimeoutDuration() time.Duration {
	if c.RespondTimeout <= 0 {
		return 0
	}
	return time.Duration(c.RespondTimeout) * time.Second
}

// Load reads configuration from file, environment, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CHATGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".chatgate"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env carry the load.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("max_turns", 5)

	v.SetDefault("tool_server.name", "dataflywheel")
	v.SetDefault("tool_server.transport", TransportHTTP)
	v.SetDefault("tool_server.url", "http://127.0.0.1:8000/mcp")

	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("system_prompt_name", "base-system-prompt")

	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("welcome_message", DefaultWelcomeMessage)
	v.SetDefault("respond_timeout", 0)
	v.SetDefault("message_rate", 0)
	v.SetDefault("message_burst", 1)

	v.SetDefault("service_name", "chatgate")
	v.SetDefault("log_level", "info")
}

// Validate checks configuration invariants. It is called by Load and by tests
// that construct a Config directly.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (want gemini, ollama, or openai)", ErrInvalidProvider, c.Provider)
	}

	switch c.ToolServer.Transport {
	case TransportHTTP, TransportSSE:
		if c.ToolServer.URL == "" {
			return fmt.Errorf("%w: transport %q requires tool_server.url", ErrMissingToolServerURL, c.ToolServer.Transport)
		}
	case TransportStdio:
		if c.ToolServer.Command == "" {
			return fmt.Errorf("%w: transport stdio requires tool_server.command", ErrMissingToolServerCommand)
		}
	default:
		return fmt.Errorf("%w: %q (want http, sse, or stdio)", ErrInvalidTransport, c.ToolServer.Transport)
	}

	if c.MaxTurns < 1 || c.MaxTurns > 50 {
		return fmt.Errorf("%w: %d (want 1-50)", ErrInvalidMaxTurns, c.MaxTurns)
	}

	if c.MessageRate < 0 || c.MessageBurst < 0 {
		return fmt.Errorf("%w: rate %.2f burst %d", ErrInvalidRateLimit, c.MessageRate, c.MessageBurst)
	}

	return nil
}
