// Package router классифицирует сообщение пользователя в одно из намерений.
// Порядок: прощание, приветствие, названная сказка, правка живой истории, новая история.
package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"starlit-server/internal/llm"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var intentsRouted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "starlit_router_intents_total",
		Help: "Total number of routed messages by intent and decision source.",
	},
	[]string{"intent", "source"},
)

// Источники решения
const (
	sourceLexical  = "lexical"
	sourceLLM      = "llm"
	sourceFallback = "fallback"
)

// ClassicMatcher распознает названную сказку в тексте.
type ClassicMatcher interface {
	Match(input string) (string, bool)
}

// Options настраивает маршрутизатор.
type Options struct {
	// UseLLM включает классификацию моделью для неоднозначных сообщений.
	UseLLM bool
	Model  string
	// HistoryWindow - сколько последних реплик показывать модели.
	HistoryWindow int
	// AllowUnlistedClassics разрешает retrieve_classic для сказок вне каталога.
	AllowUnlistedClassics bool
}

type Router struct {
	matcher ClassicMatcher
	gateway llm.Gateway
	prompts prompts.Renderer
	opts    Options
	logger  *zap.Logger
}

func New(matcher ClassicMatcher, gateway llm.Gateway, renderer prompts.Renderer, opts Options, logger *zap.Logger) *Router {
	if gateway == nil || renderer == nil {
		opts.UseLLM = false
	}
	return &Router{
		matcher: matcher,
		gateway: gateway,
		prompts: renderer,
		opts:    opts,
		logger:  logger.Named("IntentRouter"),
	}
}

// llmDecision - ответ модели-классификатора.
type llmDecision struct {
	Intent string `json:"intent"`
	Hint   string `json:"hint"`
}

// Route возвращает ровно одно намерение. Ошибка возможна только при отмене контекста:
// сбой модели не фатален и дает NewStory.
func (r *Router) Route(ctx context.Context, input string, hasLiveStory bool, history []models.Turn) (models.Intent, error) {
	input = strings.TrimSpace(input)

	if intent, ok := r.routeLexical(input, hasLiveStory); ok {
		return r.record(intent, sourceLexical), nil
	}
	if !r.opts.UseLLM {
		return r.record(models.NewStoryIntent(input), sourceFallback), nil
	}

	intent, err := r.routeLLM(ctx, input, hasLiveStory, history)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Intent{}, ctxErr
		}
		r.logger.Warn("LLM routing failed, falling back to new story", zap.Error(err))
		return r.record(models.NewStoryIntent(input), sourceFallback), nil
	}
	return r.record(intent, sourceLLM), nil
}

// routeLexical применяет детерминированные правила. ok=false - сообщение неоднозначно.
func (r *Router) routeLexical(input string, hasLiveStory bool) (models.Intent, bool) {
	switch {
	case isFarewell(input, hasLiveStory):
		return models.FarewellIntent(), true
	case isGreeting(input):
		return models.GreetingIntent(), true
	}
	if r.matcher != nil {
		if title, ok := r.matcher.Match(input); ok {
			return models.RetrieveClassicIntent(title), true
		}
	}
	switch {
	case hasLiveStory && isModification(input) && !isNewStoryRequest(input):
		return models.ModifyStoryIntent(input), true
	case isNewStoryRequest(input):
		return models.NewStoryIntent(input), true
	case isChitChat(input):
		return models.OtherIntent(input), true
	case !hasLiveStory && !isModification(input) && storyRequestRegex.MatchString(input):
		return models.NewStoryIntent(input), true
	}
	return models.Intent{}, false
}

func (r *Router) routeLLM(ctx context.Context, input string, hasLiveStory bool, history []models.Turn) (models.Intent, error) {
	prompt, err := r.prompts.Render(prompts.KeyRouter, map[string]string{
		"HAS_LIVE_STORY": strconv.FormatBool(hasLiveStory),
		"HISTORY":        formatHistory(history, r.opts.HistoryWindow),
		"INPUT":          input,
	})
	if err != nil {
		return models.Intent{}, fmt.Errorf("failed to render router prompt: %w", err)
	}

	cons := llm.ConstraintsFor(llm.RoleRouter, r.opts.Model)
	cons.JSON = true
	raw, err := r.gateway.Complete(ctx, prompt, cons)
	if err != nil {
		return models.Intent{}, err
	}

	var decision llmDecision
	if err := llm.ParseJSONObject(raw, &decision); err != nil {
		return models.Intent{}, err
	}
	kind, ok := models.ParseIntentKind(strings.ToLower(strings.TrimSpace(decision.Intent)))
	if !ok {
		return models.Intent{}, fmt.Errorf("%w: unknown intent %q", models.ErrMalformedModelOutput, decision.Intent)
	}
	return r.clamp(kind, strings.TrimSpace(decision.Hint), input, hasLiveStory), nil
}

// clamp приводит ответ модели к тем же ограничениям, что и лексические правила.
// Правка без живой истории всегда становится новой историей, а разговорные
// ответы принимаются только вместе с соответствующим правилом.
func (r *Router) clamp(kind models.IntentKind, hint, input string, hasLiveStory bool) models.Intent {
	if !hasLiveStory && isModification(input) {
		return models.NewStoryIntent(input)
	}
	switch kind {
	case models.IntentFarewell:
		if isFarewell(input, hasLiveStory) {
			return models.FarewellIntent()
		}
		return models.NewStoryIntent(input)
	case models.IntentGreeting:
		if isGreeting(input) {
			return models.GreetingIntent()
		}
		return models.NewStoryIntent(input)
	case models.IntentOther:
		if isChitChat(input) {
			return models.OtherIntent(input)
		}
		return models.NewStoryIntent(input)
	case models.IntentModifyStory:
		if !hasLiveStory {
			return models.NewStoryIntent(input)
		}
		return models.ModifyStoryIntent(firstNonEmpty(hint, input))
	case models.IntentRetrieveClassic:
		if r.matcher != nil {
			if title, ok := r.matcher.Match(firstNonEmpty(hint, input)); ok {
				return models.RetrieveClassicIntent(title)
			}
		}
		if r.opts.AllowUnlistedClassics && hint != "" {
			return models.RetrieveClassicIntent(hint)
		}
		return models.NewStoryIntent(input)
	}
	return models.NewStoryIntent(input)
}

func (r *Router) record(intent models.Intent, source string) models.Intent {
	intentsRouted.WithLabelValues(string(intent.Kind), source).Inc()
	r.logger.Debug("Intent routed",
		zap.String("intent", string(intent.Kind)),
		zap.String("source", source),
	)
	return intent
}

func formatHistory(turns []models.Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	if len(turns) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for _, t := range turns {
		content := t.Content
		if r := []rune(content); len(r) > 300 {
			content = string(r[:300]) + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", t.Role, content)
	}
	return strings.TrimSpace(b.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

