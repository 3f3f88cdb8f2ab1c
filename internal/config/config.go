package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Search backend transports.
const (
	ClientTypeSSE            = "sse"
	ClientTypeStreamableHTTP = "streamable_http"
	ClientTypeStdio          = "stdio"
)

// Server modes.
const (
	ModeHTTP = "http"
	ModeMCP  = "mcp"
)

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig
	Server  ServerConfig
	History HistoryConfig
	Search  SearchConfig
	Log     LogConfig
}

// LLMConfig holds the provider configuration shared by the analyzer and the assistant.
type LLMConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	ChatModel       string        `mapstructure:"chat_model"`
	SystemPrompt    string        `mapstructure:"system_prompt"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxSearchRounds int           `mapstructure:"max_search_rounds"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// HistoryConfig describes where analysis history is persisted.
type HistoryConfig struct {
	Path  string `mapstructure:"path"`
	Key   string `mapstructure:"key"`
	Limit int    `mapstructure:"limit"`
}

// SearchConfig describes the MCP server providing web search grounding.
// An empty Type disables grounding.
type SearchConfig struct {
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Headers map[string]string `mapstructure:"headers"`
	Tool    string            `mapstructure:"tool"`
}

// Enabled reports whether a search backend is configured.
func (s SearchConfig) Enabled() bool {
	return s.Type != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.chat_model", "gpt-4o")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.request_timeout", 60*time.Second)
	v.SetDefault("llm.max_search_rounds", 3)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", ModeHTTP)

	v.SetDefault("history.path", "history.db")
	v.SetDefault("history.key", "sentix_history")
	v.SetDefault("history.limit", 10)

	v.SetDefault("search.type", "")
	v.SetDefault("search.url", "")
	v.SetDefault("search.command", "")
	v.SetDefault("search.tool", "web_search")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yaml (or the file named by CONFIG_PATH), overlays SENTIX_* environment
// variables and fills in defaults. A missing config.yaml in the working directory is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SENTIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Server.Mode {
	case ModeHTTP, ModeMCP:
	default:
		return fmt.Errorf("invalid server.mode %q", c.Server.Mode)
	}
	switch c.Search.Type {
	case "", ClientTypeSSE, ClientTypeStreamableHTTP:
		if c.Search.Type != "" && c.Search.URL == "" {
			return fmt.Errorf("search.url is required for %s search", c.Search.Type)
		}
	case ClientTypeStdio:
		if c.Search.Command == "" {
			return errors.New("search.command is required for stdio search")
		}
	default:
		return fmt.Errorf("unsupported search.type %q", c.Search.Type)
	}
	if c.History.Limit < 1 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	if c.LLM.RequestTimeout < 0 {
		return errors.New("llm.request_timeout must not be negative")
	}
	return nil
}
