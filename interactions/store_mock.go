package interactions

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) SaveInteraction(ctx context.Context, entry *Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStore) SaveEvent(ctx context.Context, event *AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
