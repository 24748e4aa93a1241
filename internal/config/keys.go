package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secrets file entry for secret keys
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "TUTORGW_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "TUTORGW_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.request_timeout_ms", typ: kInt, env: "TUTORGW_REQUEST_TIMEOUT_MS",
		apply:   func(cfg *Config, v any) { cfg.Server.RequestTimeoutMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.RequestTimeoutMS },
	},
	{
		key: "server.api_token", typ: kString, env: "TUTORGW_API_TOKEN",
		secret: true, account: "api_token",
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "server.trusted_proxies", typ: kString, env: "TUTORGW_TRUSTED_PROXIES",
		apply:   func(cfg *Config, v any) { cfg.Server.TrustedProxies = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.TrustedProxies },
	},
	{
		key: "gateway.default_provider", typ: kString, env: "TUTORGW_DEFAULT_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Gateway.DefaultProvider = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.DefaultProvider },
	},
	{
		key: "gateway.provider_timeout_ms", typ: kInt, env: "TUTORGW_PROVIDER_TIMEOUT_MS",
		apply:   func(cfg *Config, v any) { cfg.Gateway.ProviderTimeoutMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Gateway.ProviderTimeoutMS },
	},
	{
		key: "gateway.max_retries", typ: kInt, env: "TUTORGW_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Gateway.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.Gateway.MaxRetries },
	},
	{
		key: "gateway.initial_backoff_ms", typ: kInt, env: "TUTORGW_INITIAL_BACKOFF_MS",
		apply:   func(cfg *Config, v any) { cfg.Gateway.InitialBackoffMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Gateway.InitialBackoffMS },
	},
	{
		key: "ratelimit.window_ms", typ: kInt, env: "TUTORGW_RATELIMIT_WINDOW_MS",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.WindowMS = v.(int) },
		extract: func(cfg Config) any { return cfg.RateLimit.WindowMS },
	},
	{
		key: "ratelimit.max_requests", typ: kInt, env: "TUTORGW_RATELIMIT_MAX_REQUESTS",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.MaxRequests = v.(int) },
		extract: func(cfg Config) any { return cfg.RateLimit.MaxRequests },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "TUTORGW_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.base_url", typ: kString, env: "TUTORGW_OPENROUTER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.BaseURL },
	},
	{
		key: "openrouter.model", typ: kString, env: "TUTORGW_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Model },
	},
	{
		key: "local.base_url", typ: kString, env: "TUTORGW_LOCAL_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Local.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Local.BaseURL },
	},
	{
		key: "local.model", typ: kString, env: "TUTORGW_LOCAL_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Local.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Local.Model },
	},
	{
		key: "native.api_key", typ: kString, env: "TUTORGW_NATIVE_API_KEY",
		secret: true, account: "native_api_key",
		apply:   func(cfg *Config, v any) { cfg.Native.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Native.APIKey },
	},
	{
		key: "native.base_url", typ: kString, env: "TUTORGW_NATIVE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Native.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Native.BaseURL },
	},
	{
		key: "native.model", typ: kString, env: "TUTORGW_NATIVE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Native.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Native.Model },
	},
	{
		key: "history.dir", typ: kString, env: "TUTORGW_HISTORY_DIR",
		apply:   func(cfg *Config, v any) { cfg.History.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.History.Dir },
	},
	{
		key: "log.level", typ: kString, env: "TUTORGW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

func lookup(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}
