package gateway

import (
	"context"

	"github.com/brightsphere/ai-gateway/config"
	"github.com/brightsphere/ai-gateway/providers"
	"github.com/brightsphere/ai-gateway/utils/httpclient"
	"github.com/brightsphere/ai-gateway/utils/logger"
)

const userAgent = "brightsphere-ai-gateway/1.0"

// BuildRegistry turns provider configuration into a Registry. Providers
// without credentials are registered as unavailable and logged; unknown
// names in the order are logged and ignored.
func BuildRegistry(ctx context.Context, cfg config.ProvidersConfig, lg logger.Logger) *Registry {
	order := cfg.Order
	if len(order) == 0 {
		order = config.DefaultProviderOrder
	}

	client := httpclient.New(userAgent)
	entries := make([]Entry, 0, len(order))
	seen := make(map[string]bool, len(order))

	for priority, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true

		var (
			provider providers.Provider
			key      string
		)

		switch id {
		case "openai":
			key = cfg.OpenAIAPIKey
			provider = providers.NewOpenAIProvider(
				providers.WithAPIKey(key),
				providers.WithModel(cfg.OpenAIModel),
				providers.WithTimeout(cfg.Timeout),
			)
		case "claude", "anthropic":
			key = cfg.AnthropicAPIKey
			provider = providers.NewAnthropicProvider(providers.AnthropicConfig{
				APIKey:  key,
				Model:   cfg.AnthropicModel,
				Timeout: cfg.Timeout,
			}, client)
		case "deepseek":
			key = cfg.DeepSeekAPIKey
			provider = providers.NewDeepSeekProvider(key, cfg.DeepSeekModel, cfg.Timeout)
		case "grok", "xai":
			key = cfg.XAIAPIKey
			provider = providers.NewGrokProvider(key, cfg.GrokModel, cfg.Timeout)
		case "gemini":
			key = cfg.GeminiAPIKey
			if key == "" {
				break
			}
			gemini, err := providers.NewGeminiProvider(ctx, key, cfg.GeminiModel)
			if err != nil {
				lg.WithFields(logger.Fields{"provider": "Gemini"}).Errorf("Failed to create Gemini client, skipping: %v", err)
				continue
			}
			provider = gemini
		default:
			lg.Warnf("Unknown provider %q in PROVIDER_ORDER, ignoring", id)
			continue
		}

		if key == "" {
			lg.WithFields(logger.Fields{"provider": id}).Warnf("No API key configured for %s, provider disabled", id)
			if provider == nil {
				continue
			}
		}

		entries = append(entries, Entry{
			Provider:          provider,
			Priority:          priority,
			CredentialPresent: key != "",
		})
	}

	registry := NewRegistry(entries...)
	lg.Printf("Provider registry ready: %v", registry.Names())
	return registry
}
