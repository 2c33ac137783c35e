// Package config loads gateway settings from the environment and an optional
// config file. Missing provider credentials never fail loading; they only
// exclude the provider from the registry.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Rate limit backends
const (
	BackendMemory = "memory"
	BackendUDS    = "uds"
)

// DefaultProviderOrder is the priority order used when PROVIDER_ORDER is unset.
var DefaultProviderOrder = []string{"openai", "claude", "deepseek", "grok", "gemini"}

// Config is the full gateway configuration.
type Config struct {
	Env     string
	Port    int
	LogFile string

	Providers ProvidersConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	Recorder  RecorderConfig

	JWTSecret     string
	YouTubeAPIKey string
}

type ProvidersConfig struct {
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	DeepSeekAPIKey  string
	DeepSeekModel   string
	XAIAPIKey       string
	GrokModel       string
	GeminiAPIKey    string
	GeminiModel     string

	// Order lists provider ids by priority, highest first.
	Order   []string
	Timeout time.Duration
}

type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	Backend    string
	SocketPath string
}

type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

type RecorderConfig struct {
	Workers   int
	QueueSize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", 8080)
	v.SetDefault("PROVIDER_ORDER", strings.Join(DefaultProviderOrder, ","))
	v.SetDefault("PROVIDER_TIMEOUT", "20s")
	v.SetDefault("RATE_LIMIT_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_BACKEND", BackendMemory)
	v.SetDefault("RATE_LIMIT_SOCKET", "/tmp/ai-gateway-rate-limiter.sock")
	v.SetDefault("DATABASE_AUTO_MIGRATE", false)
	v.SetDefault("RECORDER_WORKERS", 4)
	v.SetDefault("RECORDER_QUEUE_SIZE", 256)
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment values win over file values.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration using the given viper instance.
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	providerTimeout, err := duration(v, "PROVIDER_TIMEOUT")
	if err != nil {
		return nil, err
	}
	window, err := duration(v, "RATE_LIMIT_WINDOW")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:     v.GetString("ENV"),
		Port:    v.GetInt("PORT"),
		LogFile: v.GetString("LOG_FILE"),
		Providers: ProvidersConfig{
			OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
			OpenAIModel:     v.GetString("OPENAI_MODEL"),
			AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
			AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),
			DeepSeekAPIKey:  v.GetString("DEEPSEEK_API_KEY"),
			DeepSeekModel:   v.GetString("DEEPSEEK_MODEL"),
			XAIAPIKey:       v.GetString("XAI_API_KEY"),
			GrokModel:       v.GetString("GROK_MODEL"),
			GeminiAPIKey:    v.GetString("GEMINI_API_KEY"),
			GeminiModel:     v.GetString("GEMINI_MODEL"),
			Order:           splitList(v.GetString("PROVIDER_ORDER")),
			Timeout:         providerTimeout,
		},
		RateLimit: RateLimitConfig{
			Requests:   v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:     window,
			Backend:    strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
			SocketPath: v.GetString("RATE_LIMIT_SOCKET"),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("DATABASE_URL"),
			AutoMigrate: v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Recorder: RecorderConfig{
			Workers:   v.GetInt("RECORDER_WORKERS"),
			QueueSize: v.GetInt("RECORDER_QUEUE_SIZE"),
		},
		JWTSecret:     v.GetString("JWT_SECRET"),
		YouTubeAPIKey: v.GetString("YOUTUBE_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.RateLimit.Backend != BackendMemory && c.RateLimit.Backend != BackendUDS {
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q (want %s or %s)", c.RateLimit.Backend, BackendMemory, BackendUDS)
	}
	if c.Recorder.Workers <= 0 || c.Recorder.QueueSize <= 0 {
		return fmt.Errorf("RECORDER_WORKERS and RECORDER_QUEUE_SIZE must be positive")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// duration reads a duration key. Bare integers are seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
