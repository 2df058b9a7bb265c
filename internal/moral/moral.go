// Package moral формулирует мораль принятой истории.
package moral

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"starlit-server/internal/llm"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"
	"starlit-server/internal/safety"

	"go.uber.org/zap"
)

const maxMoralRunes = 600

var moralPrefixRegex = regexp.MustCompile(`(?i)^\s*(\*\*)?\s*(the\s+)?moral\b(\s+of\s+the\s+story)?\s*(is\b)?\s*[:\-]?\s*(\*\*)?\s*[:\-]?\s*`)

type Summarizer struct {
	gateway llm.Gateway
	prompts prompts.Renderer
	model   string
	logger  *zap.Logger
}

func New(gateway llm.Gateway, renderer prompts.Renderer, model string, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		gateway: gateway,
		prompts: renderer,
		model:   model,
		logger:  logger.Named("MoralSummarizer"),
	}
}

// Summarize возвращает 1-3 предложения морали. Любой сбой - models.ErrMoralGenerationFailed.
func (s *Summarizer) Summarize(ctx context.Context, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: empty story", models.ErrMoralGenerationFailed)
	}

	prompt, err := s.prompts.Render(prompts.KeyMoral, map[string]string{"STORY": body})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrMoralGenerationFailed, err)
	}

	raw, err := s.gateway.Complete(ctx, prompt, llm.ConstraintsFor(llm.RoleMoral, s.model))
	if err != nil {
		s.logger.Warn("Moral generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", models.ErrMoralGenerationFailed, err)
	}

	moral := clean(raw)
	if moral == "" {
		return "", fmt.Errorf("%w: empty moral", models.ErrMoralGenerationFailed)
	}
	return moral, nil
}

func clean(raw string) string {
	text := safety.SanitizeText(raw, maxMoralRunes)
	text = moralPrefixRegex.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return strings.Trim(text, "\"'“”‘’ ")
}
