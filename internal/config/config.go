package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when an operation needs a secret that is
// not configured anywhere.
var ErrMissingCredential = errors.New("missing required credential")

type Config struct {
	Server     ServerConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	Gemini     GeminiConfig
	Suggest    SuggestConfig
	Image      ImageConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type OllamaConfig struct {
	BaseURL      string
	SuggestModel string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type SuggestConfig struct {
	ServiceURL  string
	Debounce    time.Duration
	TierTimeout time.Duration
	CacheSize   int
}

type ImageConfig struct {
	MaxBytes     int
	FetchTimeout time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Ollama: OllamaConfig{
			BaseURL:      "http://localhost:11434",
			SuggestModel: "phi3.5",
		},
		OpenRouter: OpenRouterConfig{
			Model: "meta-llama/llama-3.1-8b-instruct",
		},
		Gemini: GeminiConfig{
			Model: "gemini-1.5-flash",
		},
		Suggest: SuggestConfig{
			Debounce:    300 * time.Millisecond,
			TierTimeout: 4 * time.Second,
			CacheSize:   256,
		},
		Image: ImageConfig{
			MaxBytes:     10 << 20,
			FetchTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the JSON file at $XDG_CONFIG_HOME/imgask/config.json, and IMGASK_*
// environment variables. A .env file in the working directory is folded into
// the environment first without overriding variables already set. Secrets
// are never read from the config file; when the environment lacks one, the
// owner-only secrets file is consulted.
//
// Missing secrets are not an error here; callers that need one use
// RequireGeminiKey.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(openJSONFile(configFilePath()), openJSONFile(secretsFilePath())), nil
}

func loadWith(file, secrets ConfigBackend) Config {
	cfg := defaults()
	applySource(&cfg, "file", fromFile(file))
	applySource(&cfg, "env", fromEnv)
	applySource(&cfg, "secrets", fromSecrets(&cfg, secrets))
	return cfg
}

// RequireGeminiKey returns an error wrapping ErrMissingCredential when no
// Gemini API key is configured.
func (c Config) RequireGeminiKey() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: Gemini API key. Set it via environment variable IMGASK_GEMINI_API_KEY", ErrMissingCredential)
	}
	return nil
}
