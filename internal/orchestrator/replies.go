package orchestrator

import (
	"context"
	"errors"

	"starlit-server/internal/models"
)

// Готовые ответы рассказчика
const (
	greetingReply = "Hello there! I'm your storyteller. What would you like a story about tonight? " +
		"It could be a brave little mouse, a friendly dragon or a classic fairy tale."
	farewellReply = "Goodnight! Sweet dreams, and come back for another story anytime."
	otherReply    = "I love telling stories! Tell me what you'd like a story about, or ask me to change the last one."

	timeoutMessage     = "I'm sorry, that story took too long to imagine. Could you ask me again?"
	unavailableMessage = "I'm sorry, my storybook is resting right now. Please try again in a little while."
	emptyInputMessage  = "I didn't hear anything! Tell me what you'd like a story about."
	tooLongMessage     = "That's a lot of words! Could you tell me your story idea in a shorter way?"
	badTierMessage     = "I can tell short, medium or long stories. Which one would you like?"
)

func cannedReply(kind models.IntentKind) string {
	switch kind {
	case models.IntentGreeting:
		return greetingReply
	case models.IntentFarewell:
		return farewellReply
	}
	return otherReply
}

// requestErrorMessage переводит ошибку валидации запроса в реплику рассказчика.
func requestErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInputTooLong):
		return tooLongMessage
	case errors.Is(err, models.ErrInvalidLengthTier):
		return badTierMessage
	}
	return emptyInputMessage
}

// pipelineErrorMessage - сообщение для ErrorResult. Внутренний текст ошибки наружу не уходит.
func pipelineErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutMessage
	}
	return unavailableMessage
}
