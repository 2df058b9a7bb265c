package safety

import (
	"context"
	"fmt"
	"strings"

	"starlit-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var validationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "starlit_safety_validations_total",
		Help: "Total number of draft validations by outcome and failing check.",
	},
	[]string{"outcome", "check"},
)

// Options управляет составом проверок.
type Options struct {
	// EnableJudge включает проверку моделью (ENABLE_SAFETY_CHECKS).
	EnableJudge bool
	// DisableLexical выключает словарный фильтр. Только явным флагом.
	DisableLexical bool
}

// Validator объединяет словарный фильтр и судью: отказ, если сработал любой.
type Validator struct {
	screen *LexicalScreen
	judge  *Judge
	opts   Options
	logger *zap.Logger
}

// NewValidator собирает валидатор. judge может быть nil, если EnableJudge=false.
func NewValidator(screen *LexicalScreen, judge *Judge, opts Options, logger *zap.Logger) *Validator {
	if judge == nil {
		opts.EnableJudge = false
	}
	if !opts.EnableJudge && opts.DisableLexical {
		logger.Warn("All safety checks are disabled; drafts will be accepted unchecked")
	}
	return &Validator{screen: screen, judge: judge, opts: opts, logger: logger.Named("SafetyValidator")}
}

// Validate проверяет черновик. Судья вызывается только если словарь чист.
func (v *Validator) Validate(ctx context.Context, draft models.StoryDraft) (models.ValidationVerdict, error) {
	verdict := models.ValidationVerdict{Accepted: true}

	if !v.opts.DisableLexical && v.screen != nil {
		findings := v.screen.Screen(draft.Title + "\n" + draft.Body)
		if len(findings) > 0 {
			verdict.Accepted = false
			for _, f := range findings {
				verdict.AddReason(f.Category)
				verdict.Details = append(verdict.Details, fmt.Sprintf("contains %q", f.Term))
			}
			verdict.SuggestedFix = "Remove any mention of: " + joinTerms(findings)
			validationsTotal.WithLabelValues("rejected", "lexical").Inc()
			v.logger.Info("Draft rejected by lexical screen",
				zap.Int("attempt", draft.AttemptCount),
				zap.Int("findings", len(findings)),
			)
			return verdict, nil
		}
	}

	if v.opts.EnableJudge {
		jv, err := v.judge.Review(ctx, draft)
		if err != nil {
			validationsTotal.WithLabelValues("error", "judge").Inc()
			return models.ValidationVerdict{}, err
		}
		if !jv.Accepted {
			validationsTotal.WithLabelValues("rejected", "judge").Inc()
			v.logger.Info("Draft rejected by judge",
				zap.Int("attempt", draft.AttemptCount),
				zap.Float64("score", jv.Score),
			)
			return jv, nil
		}
		verdict.Score = jv.Score
	}

	validationsTotal.WithLabelValues("accepted", "").Inc()
	return verdict, nil
}

func joinTerms(findings []Finding) string {
	terms := make([]string, 0, len(findings))
	for _, f := range findings {
		terms = append(terms, f.Term)
	}
	return strings.Join(terms, ", ")
}
