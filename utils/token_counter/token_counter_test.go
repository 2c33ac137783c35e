package token_counter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatingCounter_CountTextTokens(t *testing.T) {
	counter := NewEstimatingCounter()

	testCases := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty", text: "", expected: 0},
		{name: "single rune rounds up", text: "a", expected: 1},
		{name: "exact multiple", text: "abcdefgh", expected: 2},
		{name: "multibyte counts runes", text: "ŋ'anda ŋ'anda", expected: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, counter.CountTextTokens(tc.text))
		})
	}
}

func TestEstimatingCounter_CountPromptTokens(t *testing.T) {
	counter := NewEstimatingCounter()

	withoutSystem := counter.CountPromptTokens("", "What is photosynthesis?")
	withSystem := counter.CountPromptTokens("You are a patient biology tutor.", "What is photosynthesis?")

	assert.Equal(t, counter.CountTextTokens("What is photosynthesis?")+messageOverhead, withoutSystem)
	assert.Greater(t, withSystem, withoutSystem+messageOverhead)
}

func TestEstimatingCounter_LongTextIsProportional(t *testing.T) {
	counter := NewEstimatingCounter()
	long := strings.Repeat("word ", 1000)

	result := counter.CountTextTokens(long)
	assert.Equal(t, 1250, result)
}

func TestMockTokenCounter(t *testing.T) {
	counter := NewMockTokenCounter()
	counter.On("CountTextTokens", "hello").Return(7)

	assert.Equal(t, 7, counter.CountTextTokens("hello"))
	counter.AssertExpectations(t)
}
