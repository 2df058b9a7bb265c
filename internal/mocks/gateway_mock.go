package mocks

import (
	"context"

	"starlit-server/internal/llm"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock type for the llm.Gateway type
type MockGateway struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, prompt, c
func (_m *MockGateway) Complete(ctx context.Context, prompt llm.Prompt, c llm.Constraints) (string, error) {
	ret := _m.Called(ctx, prompt, c)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, llm.Prompt, llm.Constraints) string); ok {
		r0 = rf(ctx, prompt, c)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, llm.Prompt, llm.Constraints) error); ok {
		r1 = rf(ctx, prompt, c)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockGateway creates a new instance of MockGateway. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGateway {
	m := &MockGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RoleIs матчит вызовы по этапу конвейера.
func RoleIs(role llm.Role) interface{} {
	return mock.MatchedBy(func(c llm.Constraints) bool { return c.Role == role })
}

var _ llm.Gateway = (*MockGateway)(nil)
