package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	grokBaseURL     = "https://api.x.ai/v1"
)

// OpenAIProvider implements Provider using the official OpenAI Go SDK.
// It serves any OpenAI-compatible endpoint via WithBaseURL, which is how
// DeepSeek and Grok are reached.
type OpenAIProvider struct {
	client      openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float64
}

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	name        string
	model       string
	apiKey      string
	baseURL     string
	timeout     time.Duration
	maxTokens   int
	temperature float64
}

// WithName sets the provider name reported in results (default: "OpenAI").
func WithName(name string) OpenAIOption {
	return func(c *openaiConfig) { c.name = name }
}

// WithModel sets the model name (default: "gpt-4o-mini").
func WithModel(model string) OpenAIOption {
	return func(c *openaiConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) OpenAIOption {
	return func(c *openaiConfig) { c.apiKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithTimeout sets the per-request timeout for API calls.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) { c.timeout = d }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(c *openaiConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(c *openaiConfig) { c.temperature = t }
}

// NewOpenAIProvider creates an OpenAIProvider with the given options.
func NewOpenAIProvider(opts ...OpenAIOption) *OpenAIProvider {
	cfg := openaiConfig{name: "OpenAI", model: "gpt-4o-mini", maxTokens: 1024, temperature: 0.7}
	for _, o := range opts {
		o(&cfg)
	}

	// The gateway falls through to the next provider instead of retrying.
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &OpenAIProvider{
		client:      openai.NewClient(clientOpts...),
		name:        cfg.name,
		model:       cfg.model,
		maxTokens:   cfg.maxTokens,
		temperature: cfg.temperature,
	}
}

// NewDeepSeekProvider creates a provider for DeepSeek's OpenAI-compatible API.
func NewDeepSeekProvider(apiKey string, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "deepseek-chat"
	}
	return NewOpenAIProvider(
		WithName("DeepSeek"),
		WithAPIKey(apiKey),
		WithBaseURL(deepSeekBaseURL),
		WithModel(model),
		WithTimeout(timeout),
	)
}

// NewGrokProvider creates a provider for xAI's OpenAI-compatible API.
func NewGrokProvider(apiKey string, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "grok-2-latest"
	}
	return NewOpenAIProvider(
		WithName("Grok"),
		WithAPIKey(apiKey),
		WithBaseURL(grokBaseURL),
		WithModel(model),
		WithTimeout(timeout),
	)
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete sends a chat completion request and returns the first choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.Query))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    messages,
		Temperature: openai.Float(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", p.classify(err)
	}

	if len(completion.Choices) == 0 {
		return "", NewError(p.name, ErrorKindMalformed, fmt.Errorf("no choices in completion"))
	}

	return completion.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) classify(err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return NewStatusError(p.name, apiErr.StatusCode, err)
	}
	return Classify(p.name, err)
}
