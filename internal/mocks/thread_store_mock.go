package mocks

import (
	"context"

	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"github.com/stretchr/testify/mock"
)

// MockThreadStore is a mock type for the store.ThreadStore type
type MockThreadStore struct {
	mock.Mock
}

func (_m *MockThreadStore) Get(ctx context.Context, threadID string) (*models.ConversationThread, error) {
	ret := _m.Called(ctx, threadID)

	var r0 *models.ConversationThread
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.ConversationThread)
	}
	return r0, ret.Error(1)
}

func (_m *MockThreadStore) Create(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}

func (_m *MockThreadStore) AppendTurn(ctx context.Context, threadID string, turn models.Turn) error {
	ret := _m.Called(ctx, threadID, turn)
	return ret.Error(0)
}

func (_m *MockThreadStore) SetLastStory(ctx context.Context, threadID string, story models.Story) error {
	ret := _m.Called(ctx, threadID, story)
	return ret.Error(0)
}

func (_m *MockThreadStore) GetLastStory(ctx context.Context, threadID string) (*models.Story, error) {
	ret := _m.Called(ctx, threadID)

	var r0 *models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}
	return r0, ret.Error(1)
}

func (_m *MockThreadStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewMockThreadStore creates a new instance of MockThreadStore and asserts its expectations on cleanup.
func NewMockThreadStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockThreadStore {
	m := &MockThreadStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ store.ThreadStore = (*MockThreadStore)(nil)
