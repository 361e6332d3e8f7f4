// Package config loads settings from flags, environment, .env and an optional
// hairvision.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DriverNone   = ""
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Server struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type Gemini struct {
	APIKey        string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL       string  `mapstructure:"base_url" yaml:"base_url"`
	AnalysisModel string  `mapstructure:"analysis_model" yaml:"analysis_model"`
	ImageModel    string  `mapstructure:"image_model" yaml:"image_model"`
	JSONMode      bool    `mapstructure:"json_mode" yaml:"json_mode"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
}

type Analysis struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
}

type Ollama struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Model string `mapstructure:"model" yaml:"model"`
}

type OpenAI struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type Store struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	Path            string        `mapstructure:"path" yaml:"path"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

type MQTT struct {
	Broker      string `mapstructure:"broker" yaml:"broker"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
}

type Display struct {
	GateVisible time.Duration `mapstructure:"gate_visible" yaml:"gate_visible"`
	GateFade    time.Duration `mapstructure:"gate_fade" yaml:"gate_fade"`
}

type Logging struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the full effective configuration.
type Config struct {
	Server   Server   `mapstructure:"server" yaml:"server"`
	Gemini   Gemini   `mapstructure:"gemini" yaml:"gemini"`
	Analysis Analysis `mapstructure:"analysis" yaml:"analysis"`
	Ollama   Ollama   `mapstructure:"ollama" yaml:"ollama"`
	OpenAI   OpenAI   `mapstructure:"openai" yaml:"openai"`
	Store    Store    `mapstructure:"store" yaml:"store"`
	MQTT     MQTT     `mapstructure:"mqtt" yaml:"mqtt"`
	Display  Display  `mapstructure:"display" yaml:"display"`
	Logging  Logging  `mapstructure:"logging" yaml:"logging"`
	// ServerURL is where CLI commands find a running server.
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
}

// SetDefaults registers every key so AutomaticEnv can see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8888")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.analysis_model", "gemini-3-flash-preview")
	v.SetDefault("gemini.image_model", "gemini-3-pro-image-preview")
	v.SetDefault("gemini.json_mode", false)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("analysis.provider", ProviderGemini)
	v.SetDefault("ollama.url", "")
	v.SetDefault("ollama.model", "llava")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.path", "hairvision.db")
	v.SetDefault("store.poll_interval", 500*time.Millisecond)
	v.SetDefault("store.cleanup_interval", time.Hour)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "hairvision")
	v.SetDefault("mqtt.topic_prefix", "hairvision/sessions")
	v.SetDefault("display.gate_visible", 2500*time.Millisecond)
	v.SetDefault("display.gate_fade", 500*time.Millisecond)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("server_url", "http://localhost:8888")
}

// Init wires config file lookup and the environment into v. cfgFile may be
// empty; a missing hairvision.yaml is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hairvision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "hairvision"))
		}
	}

	v.SetEnvPrefix("HAIRVISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// bare names used by the hosted deployments
	_ = v.BindEnv("gemini.api_key", "HAIRVISION_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ollama.url", "HAIRVISION_OLLAMA_URL", "OLLAMA_URL")
	_ = v.BindEnv("openai.api_key", "HAIRVISION_OPENAI_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load decodes v and checks the enumerated keys.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	switch cfg.Analysis.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("invalid analysis.provider: %q", cfg.Analysis.Provider)
	}
	switch cfg.Store.Driver {
	case DriverNone, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid store.driver: %q", cfg.Store.Driver)
	}
	return &cfg, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "********"
	}
	if c.OpenAI.APIKey != "" {
		c.OpenAI.APIKey = "********"
	}
	return c
}

// NewLogger builds the process logger from logging.level and logging.format.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info", "":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "console", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}
