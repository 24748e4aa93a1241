package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	OpenRouter OpenRouterConfig
	Local      LocalConfig
	Native     NativeConfig
	History    HistoryConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host             string
	Port             int
	RequestTimeoutMS int

	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string

	// TrustedProxies lists comma-separated IPs or CIDRs whose
	// X-Forwarded-For header is believed. Empty means none.
	TrustedProxies string
}

type GatewayConfig struct {
	DefaultProvider   string
	ProviderTimeoutMS int
	MaxRetries        int
	InitialBackoffMS  int
}

type RateLimitConfig struct {
	WindowMS    int
	MaxRequests int
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LocalConfig points the general provider at a self-hosted Ollama endpoint.
// An empty BaseURL disables it.
type LocalConfig struct {
	BaseURL string
	Model   string
}

type NativeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// HistoryConfig enables the SQLite request journal. An empty Dir disables it.
type HistoryConfig struct {
	Dir string
}

type LogConfig struct {
	Level string
}

// MinProviderTimeoutMS is the lowest accepted per-attempt timeout.
const MinProviderTimeoutMS = 5000

const maxRetriesLimit = 10

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             4000,
			RequestTimeoutMS: 120000,
		},
		Gateway: GatewayConfig{
			DefaultProvider:   "general",
			ProviderTimeoutMS: 60000,
			MaxRetries:        2,
			InitialBackoffMS:  1000,
		},
		RateLimit: RateLimitConfig{
			WindowMS:    60000,
			MaxRequests: 30,
		},
		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "meta-llama/llama-3.1-70b-instruct",
		},
		Local: LocalConfig{
			Model: "llama3.1",
		},
		Native: NativeConfig{
			BaseURL: "https://api.mistral.ai/v1",
			Model:   "mistral-large-latest",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMS) * time.Millisecond
}

func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Gateway.ProviderTimeoutMS) * time.Millisecond
}

func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.Gateway.InitialBackoffMS) * time.Millisecond
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}

// Load reads configuration from the JSON file backend
// ($XDG_CONFIG_HOME/tutorgw/config.json), then TUTORGW_* environment
// variables, then the secrets file for any API key still unset.
//
// A missing API key is not an error: the matching provider is reported as
// not configured.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), secretsFile{path: secretsFilePath()})
}

// secretStore abstracts the secrets file for testing.
type secretStore interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, ss secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := ss.Get("tutorgw", s.account); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// check rejects impossible values and lowers the per-attempt provider
// timeout so that every attempt plus every backoff fits inside the request
// timeout.
func (c *Config) check() error {
	c.Gateway.DefaultProvider = strings.ToLower(strings.TrimSpace(c.Gateway.DefaultProvider))
	switch c.Gateway.DefaultProvider {
	case "general", "native":
	default:
		return fmt.Errorf("invalid gateway.default_provider %q: must be general or native", c.Gateway.DefaultProvider)
	}

	if c.Gateway.MaxRetries < 0 || c.Gateway.MaxRetries > maxRetriesLimit {
		return fmt.Errorf("invalid gateway.max_retries %d: must be between 0 and %d", c.Gateway.MaxRetries, maxRetriesLimit)
	}
	if c.Gateway.InitialBackoffMS < 0 {
		return fmt.Errorf("invalid gateway.initial_backoff_ms %d: must not be negative", c.Gateway.InitialBackoffMS)
	}
	if _, err := ParseProxies(c.Server.TrustedProxies); err != nil {
		return fmt.Errorf("invalid server.trusted_proxies: %w", err)
	}
	if c.Server.RequestTimeoutMS <= 0 {
		return fmt.Errorf("invalid server.request_timeout_ms %d: must be positive", c.Server.RequestTimeoutMS)
	}

	if c.Gateway.ProviderTimeoutMS < MinProviderTimeoutMS {
		c.Gateway.ProviderTimeoutMS = MinProviderTimeoutMS
	}

	attempts := c.Gateway.MaxRetries + 1
	limit := c.Server.RequestTimeoutMS - c.backoffTotalMS()
	if attempts*c.Gateway.ProviderTimeoutMS >= limit {
		lowered := limit/attempts - 1000
		if lowered < MinProviderTimeoutMS {
			return fmt.Errorf("retry budget of %d attempts does not fit in server.request_timeout_ms %d; lower gateway.max_retries or raise the request timeout",
				attempts, c.Server.RequestTimeoutMS)
		}
		// The shipped default is lowered silently; an operator-chosen value
		// gets a warning.
		if c.Gateway.ProviderTimeoutMS != defaults().Gateway.ProviderTimeoutMS {
			fmt.Fprintf(os.Stderr, "[WARN] gateway.provider_timeout_ms=%d with %d attempts exceeds server.request_timeout_ms=%d. Using %d.\n",
				c.Gateway.ProviderTimeoutMS, attempts, c.Server.RequestTimeoutMS, lowered)
		}
		c.Gateway.ProviderTimeoutMS = lowered
	}
	return nil
}

// ParseProxies parses a comma-separated list of IPs and CIDRs. A bare IP
// becomes a single-address prefix.
func ParseProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// TrustedProxies returns the parsed server.trusted_proxies. Load has
// already rejected malformed entries.
func (c Config) TrustedProxies() []netip.Prefix {
	p, _ := ParseProxies(c.Server.TrustedProxies)
	return p
}

// backoffTotalMS is the sum of all inter-attempt delays.
func (c Config) backoffTotalMS() int {
	total := 0
	for n := 1; n <= c.Gateway.MaxRetries; n++ {
		total += c.Gateway.InitialBackoffMS << (n - 1)
	}
	return total
}
