package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"starlit-server/internal/llm"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"

	"go.uber.org/zap"
)

// Пороги оценки судьи (0-10)
const (
	defaultMinScore = 6.0
	strictMinScore  = 8.0
)

// judgeResponse - JSON, который возвращает модель-проверяющий.
type judgeResponse struct {
	Approved             bool     `json:"approved"`
	Score                *float64 `json:"score"`
	Reasons              []string `json:"reasons"`
	FeedbackForGenerator string   `json:"feedback_for_generator"`
}

// Judge - целостная проверка черновика языковой моделью.
type Judge struct {
	gateway llm.Gateway
	prompts prompts.Renderer
	model   string
	strict  bool
	logger  *zap.Logger
}

func NewJudge(gateway llm.Gateway, renderer prompts.Renderer, model string, strict bool, logger *zap.Logger) *Judge {
	return &Judge{
		gateway: gateway,
		prompts: renderer,
		model:   model,
		strict:  strict,
		logger:  logger.Named("SafetyJudge"),
	}
}

// Review возвращает вердикт. Сбой модели - models.ErrGenerationUnavailable;
// неразборчивый ответ считается отказом с причиной other.
func (j *Judge) Review(ctx context.Context, draft models.StoryDraft) (models.ValidationVerdict, error) {
	strictness := ""
	if j.strict {
		strictness = "Be extra strict: also reject death, monsters, fighting, sadness, fire or anything mildly scary."
	}
	prompt, err := j.prompts.Render(prompts.KeyChecker, map[string]string{
		"TITLE":      draft.Title,
		"STORY":      draft.Body,
		"STRICTNESS": strictness,
	})
	if err != nil {
		return models.ValidationVerdict{}, fmt.Errorf("failed to render checker prompt: %w", err)
	}

	cons := llm.ConstraintsFor(llm.RoleChecker, j.model)
	cons.JSON = true
	raw, err := j.gateway.Complete(ctx, prompt, cons)
	if err != nil {
		return models.ValidationVerdict{}, err
	}

	var resp judgeResponse
	if err := llm.ParseJSONObject(raw, &resp); err != nil {
		if !errors.Is(err, models.ErrMalformedModelOutput) {
			return models.ValidationVerdict{}, err
		}
		j.logger.Warn("Unparseable judge response, treating as rejection", zap.Error(err))
		return models.ValidationVerdict{
			Accepted: false,
			Reasons:  []models.ViolationCategory{models.ViolationOther},
			Details:  []string{"safety review could not be completed"},
		}, nil
	}

	verdict := models.ValidationVerdict{
		Accepted:     resp.Approved,
		SuggestedFix: strings.TrimSpace(resp.FeedbackForGenerator),
	}
	if resp.Score != nil {
		verdict.Score = *resp.Score
		threshold := defaultMinScore
		if j.strict {
			threshold = strictMinScore
		}
		if verdict.Score < threshold {
			verdict.Accepted = false
		}
	}
	if !verdict.Accepted {
		for _, r := range resp.Reasons {
			verdict.AddReason(ParseCategory(r))
		}
		if len(verdict.Reasons) == 0 {
			verdict.AddReason(models.ViolationOther)
		}
		verdict.Details = append(verdict.Details, resp.Reasons...)
	}
	j.logger.Debug("Judge verdict",
		zap.Bool("accepted", verdict.Accepted),
		zap.Float64("score", verdict.Score),
		zap.Strings("reasons", resp.Reasons),
	)
	return verdict, nil
}

// ParseCategory приводит произвольную метку к известной категории.
func ParseCategory(s string) models.ViolationCategory {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "violen"):
		return models.ViolationViolence
	case strings.Contains(s, "adult"), strings.Contains(s, "sexual"):
		return models.ViolationAdult
	case strings.Contains(s, "fear"), strings.Contains(s, "horror"), strings.Contains(s, "scary"), strings.Contains(s, "frighten"):
		return models.ViolationFearHorror
	case strings.Contains(s, "language"), strings.Contains(s, "profan"):
		return models.ViolationLanguage
	case strings.Contains(s, "substance"), strings.Contains(s, "drug"), strings.Contains(s, "alcohol"):
		return models.ViolationSubstances
	case strings.Contains(s, "self"), strings.Contains(s, "harm"):
		return models.ViolationSelfHarm
	case strings.Contains(s, "weapon"):
		return models.ViolationWeapons
	}
	return models.ViolationOther
}
