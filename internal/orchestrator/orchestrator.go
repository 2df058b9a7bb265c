// Package orchestrator ведет один запрос через весь конвейер:
// тред, проверка запроса, маршрутизация, генерация с проверкой, мораль, запись ответа.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"starlit-server/internal/generator"
	"starlit-server/internal/messaging"
	"starlit-server/internal/models"
	"starlit-server/internal/safety"
	"starlit-server/internal/store"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const commitTimeout = 5 * time.Second

var (
	pipelineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlit_pipeline_requests_total",
			Help: "Total number of processed requests by intent and outcome.",
		},
		[]string{"intent", "outcome"},
	)
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starlit_pipeline_duration_seconds",
			Help:    "Duration of the full request pipeline.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"intent"},
	)
	validationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlit_validation_attempts_total",
			Help: "Total number of drafts that went through validation, by verdict.",
		},
		[]string{"verdict"},
	)
)

// Исходы запроса для метрик
const (
	outcomeStory          = "story"
	outcomeConversational = "conversational"
	outcomeRefusal        = "refusal"
	outcomeError          = "error"
	outcomeInvalid        = "invalid"
)

// Config - параметры конвейера.
type Config struct {
	MaxIterations  int
	DefaultTier    models.LengthTier
	MaxInputLength int
	HistoryWindow  int
}

// Deps - этапы конвейера. Screener и Events могут быть nil.
type Deps struct {
	Threads   store.ThreadStore
	Router    IntentRouter
	Generator StoryGenerator
	Validator DraftValidator
	Screener  RequestScreener
	Moral     MoralSummarizer
	Classics  ClassicRetriever
	Formatter ResponseCommitter
	Events    messaging.EventPublisher
}

type Orchestrator struct {
	threads   store.ThreadStore
	router    IntentRouter
	generator StoryGenerator
	validator DraftValidator
	screener  RequestScreener
	moral     MoralSummarizer
	classics  ClassicRetriever
	formatter ResponseCommitter
	events    messaging.EventPublisher
	cfg       Config
	logger    *zap.Logger
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	if !cfg.DefaultTier.Valid() {
		cfg.DefaultTier = models.LengthMedium
	}
	events := deps.Events
	if events == nil {
		events = messaging.NoopPublisher{}
	}
	return &Orchestrator{
		threads:   deps.Threads,
		router:    deps.Router,
		generator: deps.Generator,
		validator: deps.Validator,
		screener:  deps.Screener,
		moral:     deps.Moral,
		classics:  deps.Classics,
		formatter: deps.Formatter,
		events:    events,
		cfg:       cfg,
		logger:    logger.Named("Orchestrator"),
	}
}

// outcome - результат ветки до записи в тред.
type outcome struct {
	result   models.FormattedResponse
	event    models.StoryEventKind
	attempts int
}

// Process обрабатывает один запрос. Ошибки не возвращаются: любой сбой
// превращается в ErrorResult или разговорный ответ.
func (o *Orchestrator) Process(ctx context.Context, req models.GenerationRequest) models.FormattedResponse {
	start := time.Now()

	if err := req.Normalize(o.cfg.DefaultTier, o.cfg.MaxInputLength); err != nil {
		o.logger.Info("Request rejected", zap.Error(err))
		pipelineRequests.WithLabelValues("", outcomeInvalid).Inc()
		return models.ErrorResult(requestErrorMessage(err), req.ThreadID)
	}

	log := o.logger.With(zap.String("length_tier", string(req.LengthTier)))
	thread, err := o.resolveThread(ctx, req.ThreadID)
	if err != nil {
		log.Error("Failed to resolve thread", zap.String("requested_thread_id", req.ThreadID), zap.Error(err))
		pipelineRequests.WithLabelValues("", outcomeError).Inc()
		return models.ErrorResult(pipelineErrorMessage(err), req.ThreadID)
	}
	log = log.With(zap.String("thread_id", thread.ID))

	var (
		out    outcome
		intent models.Intent
	)
	if refused, ok := o.screenRequest(req.UserInput); ok {
		log.Info("Request refused by lexical screen")
		out = refused
	} else {
		intent, err = o.router.Route(ctx, req.UserInput, thread.HasLiveStory(), thread.RecentTurns(o.cfg.HistoryWindow))
		if err == nil {
			log = log.With(zap.String("intent", string(intent.Kind)))
			out, err = o.dispatch(ctx, intent, req, thread)
		}
		if err != nil {
			log.Error("Pipeline failed", zap.Error(err))
			out = outcome{result: models.ErrorResult(pipelineErrorMessage(err), thread.ID)}
		}
	}

	// запись в тред и событие не должны отменяться вместе с запросом
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	result, err := o.formatter.Commit(commitCtx, thread.ID, req.UserInput, out.result)
	if err != nil {
		log.Error("Failed to commit response to thread", zap.Error(err))
	}
	if out.event != "" {
		o.publish(commitCtx, result.ThreadID, out, log)
	}

	kind := outcomeLabel(out)
	pipelineRequests.WithLabelValues(string(intent.Kind), kind).Inc()
	pipelineDuration.WithLabelValues(string(intent.Kind)).Observe(time.Since(start).Seconds())
	log.Info("Request processed",
		zap.String("outcome", kind),
		zap.Int("attempts", out.attempts),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

// resolveThread возвращает тред запроса. Неизвестный id мягко заменяется новым тредом.
func (o *Orchestrator) resolveThread(ctx context.Context, threadID string) (*models.ConversationThread, error) {
	if threadID != "" {
		thread, err := o.threads.Get(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if thread != nil {
			return thread, nil
		}
		o.logger.Info("Unknown thread id, starting a new thread", zap.String("requested_thread_id", threadID))
	}
	id, err := o.threads.Create(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ConversationThread{ID: id}, nil
}

// screenRequest отказывает до маршрутизации, если сам запрос содержит запрещенное.
// Предупреждающие темы строгого режима запрос не блокируют.
func (o *Orchestrator) screenRequest(input string) (outcome, bool) {
	if o.screener == nil {
		return outcome{}, false
	}
	for _, f := range o.screener.Screen(input) {
		if f.Warning {
			continue
		}
		return outcome{
			result: models.ConversationalResult(safety.RefusalMessage(input), ""),
			event:  models.EventRefusal,
		}, true
	}
	return outcome{}, false
}

// dispatch - разбор варианта намерения.
func (o *Orchestrator) dispatch(ctx context.Context, intent models.Intent, req models.GenerationRequest, thread *models.ConversationThread) (outcome, error) {
	switch intent.Kind {
	case models.IntentGreeting, models.IntentFarewell, models.IntentOther:
		return outcome{result: models.ConversationalResult(cannedReply(intent.Kind), thread.ID)}, nil

	case models.IntentRetrieveClassic:
		return o.retrieveClassic(ctx, intent.Payload, req)

	case models.IntentModifyStory:
		if !thread.HasLiveStory() {
			return o.writeStory(ctx, generator.GenerateInput{ThemeHint: req.UserInput, Tier: req.LengthTier}, models.EventStoryCreated)
		}
		prior := thread.LastStory.Clone()
		return o.writeStory(ctx, generator.GenerateInput{
			ThemeHint:  firstNonEmpty(intent.Payload, req.UserInput),
			PriorStory: &prior,
			Tier:       req.LengthTier,
		}, models.EventStoryModified)

	case models.IntentNewStory:
		return o.writeStory(ctx, generator.GenerateInput{
			ThemeHint: firstNonEmpty(intent.Payload, req.UserInput),
			Tier:      req.LengthTier,
		}, models.EventStoryCreated)
	}

	o.logger.Warn("Unexpected intent kind, treating as new story", zap.String("intent", string(intent.Kind)))
	return o.writeStory(ctx, generator.GenerateInput{ThemeHint: req.UserInput, Tier: req.LengthTier}, models.EventStoryCreated)
}

// writeStory гоняет цикл проверки и добавляет мораль к принятому черновику.
func (o *Orchestrator) writeStory(ctx context.Context, in generator.GenerateInput, event models.StoryEventKind) (outcome, error) {
	res, err := o.draftUntilAccepted(ctx, in)
	if err != nil {
		if errors.Is(err, models.ErrValidationExhausted) {
			o.logger.Info("Validation exhausted, refusing gently",
				zap.Int("attempts", res.attempts),
				zap.Strings("reasons", res.reasons),
			)
			return outcome{
				result:   models.ConversationalResult(safety.RefusalMessage(in.ThemeHint), ""),
				event:    models.EventRefusal,
				attempts: res.attempts,
			}, nil
		}
		return outcome{attempts: res.attempts}, err
	}

	story := res.draft.ToStory()
	story.Moral = o.summarize(ctx, story.Body)
	return outcome{
		result:   models.StoryResult(story, ""),
		event:    event,
		attempts: res.attempts,
	}, nil
}

// retrieveClassic отдает сказку после одной проверки. Промах или отказ проверки
// переводят запрос в новую историю на ту же тему.
func (o *Orchestrator) retrieveClassic(ctx context.Context, query string, req models.GenerationRequest) (outcome, error) {
	fallback := generator.GenerateInput{ThemeHint: firstNonEmpty(query, req.UserInput), Tier: req.LengthTier}
	if o.classics == nil {
		return o.writeStory(ctx, fallback, models.EventStoryCreated)
	}

	story, err := o.classics.Retrieve(ctx, query, req.LengthTier)
	if err != nil {
		if errors.Is(err, models.ErrClassicNotFound) {
			o.logger.Info("Classic not found, writing a new story instead", zap.String("query", query))
			return o.writeStory(ctx, fallback, models.EventStoryCreated)
		}
		return outcome{}, err
	}

	verdict, err := o.validator.Validate(ctx, models.StoryDraft{Title: story.Title, Body: story.Body, AttemptCount: 1})
	if err != nil {
		return outcome{attempts: 1}, err
	}
	if !verdict.Accepted {
		validationAttempts.WithLabelValues("rejected").Inc()
		o.logger.Warn("Classic rejected by safety validator, writing a new story instead",
			zap.String("title", story.Title),
			zap.Strings("reasons", categories(verdict.Reasons)),
		)
		return o.writeStory(ctx, fallback, models.EventStoryCreated)
	}
	validationAttempts.WithLabelValues("accepted").Inc()

	if story.Moral == "" {
		story.Moral = o.summarize(ctx, story.Body)
	}
	return outcome{
		result:   models.StoryResult(story, ""),
		event:    models.EventClassicRetrieved,
		attempts: 1,
	}, nil
}

// summarize деградирует до пустой морали при любой ошибке.
func (o *Orchestrator) summarize(ctx context.Context, body string) string {
	if o.moral == nil {
		return ""
	}
	moral, err := o.moral.Summarize(ctx, body)
	if err != nil {
		o.logger.Warn("Moral unavailable, returning story without it", zap.Error(err))
		return ""
	}
	return moral
}

func (o *Orchestrator) publish(ctx context.Context, threadID string, out outcome, log *zap.Logger) {
	event := models.StoryEvent{
		EventID:  uuid.NewString(),
		ThreadID: threadID,
		Kind:     out.event,
		Title:    out.result.Title,
		Attempts: out.attempts,
		At:       time.Now().UTC(),
	}
	if err := o.events.PublishStoryEvent(ctx, event); err != nil {
		log.Warn("Failed to publish story event", zap.String("kind", string(out.event)), zap.Error(err))
	}
}

func outcomeLabel(out outcome) string {
	switch {
	case out.result.Kind == models.ResponseStory:
		return outcomeStory
	case out.result.Kind == models.ResponseError:
		return outcomeError
	case out.event == models.EventRefusal:
		return outcomeRefusal
	}
	return outcomeConversational
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
