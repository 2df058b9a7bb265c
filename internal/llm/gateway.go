package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"starlit-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Role - этап конвейера, от имени которого идет вызов модели.
type Role string

const (
	RoleRouter    Role = "router"
	RoleGenerator Role = "generator"
	RoleChecker   Role = "checker"
	RoleMoral     Role = "moral"
	RoleRetriever Role = "retriever"
)

// Prompt - системная инструкция и пользовательская часть запроса.
type Prompt struct {
	System string
	User   string
}

// Constraints - параметры одного вызова модели.
type Constraints struct {
	Role        Role
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	LengthTier  models.LengthTier
	// JSON просит провайдера вернуть JSON-объект, если он это умеет.
	JSON bool
}

// Gateway - единый интерфейс к языковой модели. Бизнес-логики здесь нет.
type Gateway interface {
	// Complete возвращает текст модели. Любой сбой апстрима, таймаут или
	// отмена контекста оборачивается в models.ErrGenerationUnavailable.
	Complete(ctx context.Context, prompt Prompt, c Constraints) (string, error)
}

type roleProfile struct {
	temperature float64
	timeout     time.Duration
	maxTokens   int
}

var roleProfiles = map[Role]roleProfile{
	RoleRouter:    {temperature: 0.3, timeout: 30 * time.Second, maxTokens: 256},
	RoleGenerator: {temperature: 0.8, timeout: 60 * time.Second, maxTokens: 4096},
	RoleChecker:   {temperature: 0.2, timeout: 30 * time.Second, maxTokens: 512},
	RoleMoral:     {temperature: 0.5, timeout: 20 * time.Second, maxTokens: 256},
	RoleRetriever: {temperature: 0.3, timeout: 45 * time.Second, maxTokens: 4096},
}

// ConstraintsFor возвращает параметры этапа по умолчанию для указанной модели.
func ConstraintsFor(role Role, model string) Constraints {
	p, ok := roleProfiles[role]
	if !ok {
		p = roleProfile{temperature: 0.5, timeout: 30 * time.Second}
	}
	return Constraints{
		Role:        role,
		Model:       model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Timeout:     p.timeout,
	}
}

// Usage - учет токенов одного вызова.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// provider - конкретный SDK. Ошибки возвращаются как есть, обертку делает Client.
type provider interface {
	name() string
	chat(ctx context.Context, prompt Prompt, c Constraints) (string, Usage, error)
	close() error
}

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlit_llm_requests_total",
			Help: "Total number of requests to the language model.",
		},
		[]string{"provider", "model", "role", "status"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starlit_llm_request_duration_seconds",
			Help:    "Histogram of language model request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model", "role"},
	)
	llmTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starlit_llm_tokens",
			Help:    "Histogram of prompt and completion token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model", "role", "kind"},
	)
)

// Client - Gateway поверх одного провайдера: таймауты, метрики, логи, обертка ошибок.
type Client struct {
	p              provider
	defaultTimeout time.Duration
	logger         *zap.Logger
}

var _ Gateway = (*Client)(nil)

func newClient(p provider, defaultTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{p: p, defaultTimeout: defaultTimeout, logger: logger.Named("LLMGateway")}
}

// Complete выполняет вызов с таймаутом этапа (или общим, если этап его не задал).
func (c *Client) Complete(ctx context.Context, prompt Prompt, cons Constraints) (string, error) {
	provider := c.p.name()
	log := c.logger.With(
		zap.String("provider", provider),
		zap.String("model", cons.Model),
		zap.String("role", string(cons.Role)),
	)

	if strings.TrimSpace(prompt.System) == "" && strings.TrimSpace(prompt.User) == "" {
		llmRequestsTotal.WithLabelValues(provider, cons.Model, string(cons.Role), "error").Inc()
		return "", fmt.Errorf("%w: empty prompt", models.ErrGenerationUnavailable)
	}

	timeout := cons.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	log.Debug("Sending request to language model",
		zap.Int("system_bytes", len(prompt.System)),
		zap.Int("user_bytes", len(prompt.User)),
		zap.Float64("temperature", cons.Temperature),
	)

	text, usage, err := c.p.chat(callCtx, prompt, cons)
	duration := time.Since(start)
	llmRequestDuration.WithLabelValues(provider, cons.Model, string(cons.Role)).Observe(duration.Seconds())

	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		} else if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
		llmRequestsTotal.WithLabelValues(provider, cons.Model, string(cons.Role), status).Inc()
		log.Warn("Language model request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", fmt.Errorf("%w: %w", models.ErrGenerationUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		llmRequestsTotal.WithLabelValues(provider, cons.Model, string(cons.Role), "error_empty_response").Inc()
		log.Warn("Language model returned empty response", zap.Duration("duration", duration))
		return "", fmt.Errorf("%w: empty response", models.ErrGenerationUnavailable)
	}

	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		usage = Usage{
			PromptTokens:     EstimateTokens(prompt.System) + EstimateTokens(prompt.User),
			CompletionTokens: EstimateTokens(text),
		}
	}
	llmRequestsTotal.WithLabelValues(provider, cons.Model, string(cons.Role), "success").Inc()
	llmTokens.WithLabelValues(cons.Model, string(cons.Role), "prompt").Observe(float64(usage.PromptTokens))
	llmTokens.WithLabelValues(cons.Model, string(cons.Role), "completion").Observe(float64(usage.CompletionTokens))

	log.Debug("Language model response received",
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(text)),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
	)
	return text, nil
}

// Close освобождает ресурсы провайдера.
func (c *Client) Close() error {
	return c.p.close()
}
