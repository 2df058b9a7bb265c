package mocks

import (
	"context"

	"starlit-server/internal/generator"
	"starlit-server/internal/models"
	"starlit-server/internal/orchestrator"

	"github.com/stretchr/testify/mock"
)

// MockIntentRouter is a mock type for the orchestrator.IntentRouter type
type MockIntentRouter struct {
	mock.Mock
}

func (_m *MockIntentRouter) Route(ctx context.Context, input string, hasLiveStory bool, history []models.Turn) (models.Intent, error) {
	ret := _m.Called(ctx, input, hasLiveStory, history)
	return ret.Get(0).(models.Intent), ret.Error(1)
}

// MockStoryGenerator is a mock type for the orchestrator.StoryGenerator type
type MockStoryGenerator struct {
	mock.Mock
}

func (_m *MockStoryGenerator) Generate(ctx context.Context, in generator.GenerateInput) (models.StoryDraft, error) {
	ret := _m.Called(ctx, in)

	var r0 models.StoryDraft
	if rf, ok := ret.Get(0).(func(context.Context, generator.GenerateInput) models.StoryDraft); ok {
		r0 = rf(ctx, in)
	} else {
		r0 = ret.Get(0).(models.StoryDraft)
	}
	return r0, ret.Error(1)
}

// MockDraftValidator is a mock type for the orchestrator.DraftValidator type
type MockDraftValidator struct {
	mock.Mock
}

func (_m *MockDraftValidator) Validate(ctx context.Context, draft models.StoryDraft) (models.ValidationVerdict, error) {
	ret := _m.Called(ctx, draft)
	return ret.Get(0).(models.ValidationVerdict), ret.Error(1)
}

// MockMoralSummarizer is a mock type for the orchestrator.MoralSummarizer type
type MockMoralSummarizer struct {
	mock.Mock
}

func (_m *MockMoralSummarizer) Summarize(ctx context.Context, body string) (string, error) {
	ret := _m.Called(ctx, body)
	return ret.String(0), ret.Error(1)
}

// MockClassicRetriever is a mock type for the orchestrator.ClassicRetriever type
type MockClassicRetriever struct {
	mock.Mock
}

func (_m *MockClassicRetriever) Retrieve(ctx context.Context, query string, tier models.LengthTier) (models.Story, error) {
	ret := _m.Called(ctx, query, tier)
	return ret.Get(0).(models.Story), ret.Error(1)
}

var (
	_ orchestrator.IntentRouter     = (*MockIntentRouter)(nil)
	_ orchestrator.StoryGenerator   = (*MockStoryGenerator)(nil)
	_ orchestrator.DraftValidator   = (*MockDraftValidator)(nil)
	_ orchestrator.MoralSummarizer  = (*MockMoralSummarizer)(nil)
	_ orchestrator.ClassicRetriever = (*MockClassicRetriever)(nil)
)
