package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"starlit-server/internal/generator"
	"starlit-server/internal/models"

	"go.uber.org/zap"
)

// draftResult - итог цикла Drafting -> Validating.
type draftResult struct {
	draft    models.StoryDraft
	attempts int
	reasons  []string
}

// draftUntilAccepted - ограниченный цикл генерации и проверки.
// attempt начинается с 0 и растет на каждый черновик; при attempt == MaxIterations
// и отказе цикл завершается models.ErrValidationExhausted, черновик не возвращается.
// Недоступность модели прерывает цикл сразу.
func (o *Orchestrator) draftUntilAccepted(ctx context.Context, in generator.GenerateInput) (draftResult, error) {
	maxIterations := o.cfg.MaxIterations
	if maxIterations < 1 {
		maxIterations = 1
	}
	constraints := append([]string(nil), in.NegativeConstraints...)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return draftResult{attempts: attempt, reasons: constraints}, err
		}

		// Drafting
		attempt++
		in.NegativeConstraints = append([]string(nil), constraints...)
		draft, err := o.generator.Generate(ctx, in)
		if err != nil {
			return draftResult{attempts: attempt, reasons: constraints}, err
		}
		draft.AttemptCount = attempt
		draft.RejectionReasons = append([]string(nil), constraints...)

		// Validating
		verdict, err := o.validator.Validate(ctx, draft)
		if err != nil {
			return draftResult{attempts: attempt, reasons: constraints}, err
		}
		if verdict.Accepted {
			validationAttempts.WithLabelValues("accepted").Inc()
			return draftResult{draft: draft, attempts: attempt, reasons: constraints}, nil
		}

		validationAttempts.WithLabelValues("rejected").Inc()
		constraints = appendConstraints(constraints, verdict)
		o.logger.Info("Draft rejected",
			zap.Int("attempt", attempt),
			zap.Int("max_iterations", maxIterations),
			zap.Strings("reasons", categories(verdict.Reasons)),
		)

		if attempt >= maxIterations {
			// Exhausted
			return draftResult{attempts: attempt, reasons: constraints},
				fmt.Errorf("%w after %d attempts: %s", models.ErrValidationExhausted, attempt, strings.Join(constraints, "; "))
		}
		// Retrying
	}
}

// appendConstraints превращает вердикт в негативные ограничения следующей попытки, без дублей.
func appendConstraints(constraints []string, verdict models.ValidationVerdict) []string {
	seen := make(map[string]struct{}, len(constraints))
	for _, c := range constraints {
		seen[c] = struct{}{}
	}
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		constraints = append(constraints, c)
	}

	for _, r := range verdict.Reasons {
		add(constraintFor(r))
	}
	add(verdict.SuggestedFix)
	return constraints
}

func constraintFor(c models.ViolationCategory) string {
	switch c {
	case models.ViolationViolence:
		return "no violence, fighting or injuries"
	case models.ViolationAdult:
		return "no adult themes or romance beyond simple friendship"
	case models.ViolationFearHorror:
		return "nothing scary, dark or frightening for a young child"
	case models.ViolationLanguage:
		return "no rude words or name-calling"
	case models.ViolationSubstances:
		return "no alcohol, smoking or drugs"
	case models.ViolationSelfHarm:
		return "no self-harm, abuse or sad adult topics"
	case models.ViolationWeapons:
		return "no weapons of any kind"
	}
	return "keep the story gentle and suitable for ages 5-10"
}

func categories(reasons []models.ViolationCategory) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, string(r))
	}
	return out
}
