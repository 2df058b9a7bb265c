package mocks

import (
	"context"

	"starlit-server/internal/messaging"
	"starlit-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock type for the messaging.EventPublisher type
type MockEventPublisher struct {
	mock.Mock
}

func (_m *MockEventPublisher) PublishStoryEvent(ctx context.Context, event models.StoryEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

func (_m *MockEventPublisher) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_m *MockEventPublisher) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockEventPublisher creates a new instance of MockEventPublisher and asserts its expectations on cleanup.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ messaging.EventPublisher = (*MockEventPublisher)(nil)
