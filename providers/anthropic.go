package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brightsphere/ai-gateway/utils/httpclient"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	anthropicVersion      = "2023-06-01"
)

// AnthropicConfig holds configuration for creating a Claude provider
type AnthropicConfig struct {
	APIKey    string
	URL       string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey    string
	url       string
	model     string
	maxTokens int
	timeout   time.Duration
	client    httpclient.Client
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a new Claude provider
func NewAnthropicProvider(config AnthropicConfig, client httpclient.Client) *AnthropicProvider {
	if config.URL == "" {
		config.URL = defaultAnthropicURL
	}
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}

	return &AnthropicProvider{
		apiKey:    config.APIKey,
		url:       config.URL,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		timeout:   config.Timeout,
		client:    client,
	}
}

func (a *AnthropicProvider) Name() string {
	return "Claude"
}

// Complete sends a single-turn message and concatenates the text blocks of the reply.
func (a *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	body, err := a.requestBody(prompt)
	if err != nil {
		return "", NewError(a.Name(), ErrorKindMalformed, fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := a.client.Do(ctx, a.url, http.MethodPost, map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
		"Content-Type":      "application/json",
	}, strings.NewReader(body), a.timeout)
	if err != nil {
		return "", Classify(a.Name(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Classify(a.Name(), fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(data, "error.message").String()
		if message == "" {
			message = string(data)
		}
		return "", NewStatusError(a.Name(), resp.StatusCode, fmt.Errorf("API request failed: %s", message))
	}

	if !gjson.ValidBytes(data) {
		return "", NewError(a.Name(), ErrorKindMalformed, fmt.Errorf("response is not valid JSON"))
	}

	blocks := gjson.GetBytes(data, `content.#(type=="text")#.text`)
	if !blocks.Exists() {
		return "", NewError(a.Name(), ErrorKindMalformed, fmt.Errorf("response has no content blocks"))
	}

	var sb strings.Builder
	for _, block := range blocks.Array() {
		sb.WriteString(block.String())
	}
	return sb.String(), nil
}

func (a *AnthropicProvider) requestBody(prompt Prompt) (string, error) {
	body, err := sjson.Set("", "model", a.model)
	if err != nil {
		return "", err
	}
	if body, err = sjson.Set(body, "max_tokens", a.maxTokens); err != nil {
		return "", err
	}
	if prompt.System != "" {
		if body, err = sjson.Set(body, "system", prompt.System); err != nil {
			return "", err
		}
	}
	if body, err = sjson.Set(body, "messages.0.role", "user"); err != nil {
		return "", err
	}
	return sjson.Set(body, "messages.0.content", prompt.Query)
}
