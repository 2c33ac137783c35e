package token_counter

import (
	"github.com/stretchr/testify/mock"
)

// MockTokenCounter is a mock implementation of TokenCounterInterface for testing.
type MockTokenCounter struct {
	mock.Mock
}

var _ TokenCounterInterface = (*MockTokenCounter)(nil)

func NewMockTokenCounter() *MockTokenCounter {
	return &MockTokenCounter{}
}

func (m *MockTokenCounter) CountTextTokens(text string) int {
	args := m.Called(text)
	return args.Int(0)
}

func (m *MockTokenCounter) CountPromptTokens(systemContext string, query string) int {
	args := m.Called(systemContext, query)
	return args.Int(0)
}
