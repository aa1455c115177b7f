package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "IMGASK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "IMGASK_SERVER_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "ollama.base_url", typ: kString, env: "IMGASK_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.suggest_model", typ: kString, env: "IMGASK_OLLAMA_SUGGEST_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.SuggestModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.SuggestModel },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "IMGASK_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.model", typ: kString, env: "IMGASK_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Model },
	},
	{
		key: "gemini.api_key", typ: kString, env: "IMGASK_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "IMGASK_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.base_url", typ: kString, env: "IMGASK_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "suggest.service_url", typ: kString, env: "IMGASK_SUGGEST_SERVICE_URL",
		apply:   func(cfg *Config, v any) { cfg.Suggest.ServiceURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Suggest.ServiceURL },
	},
	{
		key: "suggest.debounce", typ: kDuration, env: "IMGASK_SUGGEST_DEBOUNCE",
		apply:   func(cfg *Config, v any) { cfg.Suggest.Debounce = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Suggest.Debounce },
	},
	{
		key: "suggest.tier_timeout", typ: kDuration, env: "IMGASK_SUGGEST_TIER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Suggest.TierTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Suggest.TierTimeout },
	},
	{
		key: "suggest.cache_size", typ: kInt, env: "IMGASK_SUGGEST_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Suggest.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Suggest.CacheSize },
	},
	{
		key: "image.max_bytes", typ: kInt, env: "IMGASK_IMAGE_MAX_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Image.MaxBytes = v.(int) },
		extract: func(cfg Config) any { return cfg.Image.MaxBytes },
	},
	{
		key: "image.fetch_timeout", typ: kDuration, env: "IMGASK_IMAGE_FETCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Image.FetchTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Image.FetchTimeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "IMGASK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "IMGASK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts the textual form of a value to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

// applySource reads every key from lookup and sets the ones it has. A value that
// does not parse is logged and the previous value kept.
func applySource(cfg *Config, source string, lookup func(keySpec) (string, bool)) {
	for _, s := range specs {
		raw, ok := lookup(s)
		if !ok || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			slog.Warn("ignoring invalid config value", "source", source, "key", s.key, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}

// fromFile exposes non-secret keys of a backend.
func fromFile(b ConfigBackend) func(keySpec) (string, bool) {
	return func(s keySpec) (string, bool) {
		if s.secret {
			return "", false
		}
		return b.Lookup(s.key)
	}
}

func fromEnv(s keySpec) (string, bool) {
	if s.env == "" {
		return "", false
	}
	return os.LookupEnv(s.env)
}

// fromSecrets fills secret keys still empty after the environment pass.
func fromSecrets(cfg *Config, b ConfigBackend) func(keySpec) (string, bool) {
	return func(s keySpec) (string, bool) {
		if !s.secret || s.extract(*cfg).(string) != "" {
			return "", false
		}
		v, ok := b.Lookup(s.key)
		return strings.TrimSpace(v), ok
	}
}
