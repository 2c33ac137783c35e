package token_counter

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounterImpl provides utilities for counting tokens in prompts and responses.
// A nil encoder means counts are estimated from text length.
type tokenCounterImpl struct {
	encoder *tiktoken.Tiktoken
}

var _ TokenCounterInterface = (*tokenCounterImpl)(nil)

var encodingBase = "cl100k_base"

// messageOverhead matches OpenAI's per-message framing cost.
const messageOverhead = 4

// NewTokenCounter creates a new TokenCounter instance
func NewTokenCounter() (*tokenCounterImpl, error) {
	// Use cl100k_base encoding (used by GPT-4, GPT-3.5-turbo, and text-embedding-ada-002)
	encoder, err := tiktoken.GetEncoding(encodingBase)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &tokenCounterImpl{
		encoder: encoder,
	}, nil
}

// NewEstimatingCounter creates a counter that approximates tokens as one per
// four characters. Used when the tiktoken vocabulary cannot be loaded.
func NewEstimatingCounter() *tokenCounterImpl {
	return &tokenCounterImpl{}
}

// CountTextTokens counts tokens in plain text
func (tc *tokenCounterImpl) CountTextTokens(text string) int {
	if text == "" {
		return 0
	}
	if tc.encoder == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(tc.encoder.Encode(text, nil, nil))
}

// CountPromptTokens estimates the prompt size sent upstream: a system message
// (when present) and the user query, each with message overhead.
func (tc *tokenCounterImpl) CountPromptTokens(systemContext string, query string) int {
	total := tc.CountTextTokens(query) + messageOverhead
	if systemContext != "" {
		total += tc.CountTextTokens(systemContext) + messageOverhead
	}
	return total
}
