package classics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"starlit-server/internal/llm"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"
	"starlit-server/internal/safety"

	"go.uber.org/zap"
)

const maxThemes = 3

// retrieverResponse - JSON ответа модели-рассказчика классики.
type retrieverResponse struct {
	Found      bool   `json:"found"`
	Title      string `json:"title"`
	Story      string `json:"story"`
	Provenance string `json:"provenance"`
	Reason     string `json:"reason"`
}

// Retriever ищет сказку в каталоге, а при промахе (если разрешено) спрашивает модель.
type Retriever struct {
	catalog *Catalog
	gateway llm.Gateway
	prompts prompts.Renderer
	model   string
	useLLM  bool
	logger  *zap.Logger
}

// NewRetriever. gateway и renderer могут быть nil, если useLLM=false.
func NewRetriever(catalog *Catalog, gateway llm.Gateway, renderer prompts.Renderer, model string, useLLM bool, logger *zap.Logger) *Retriever {
	if gateway == nil || renderer == nil {
		useLLM = false
	}
	return &Retriever{
		catalog: catalog,
		gateway: gateway,
		prompts: renderer,
		model:   model,
		useLLM:  useLLM,
		logger:  logger.Named("ClassicRetriever"),
	}
}

// Match - лексическое распознавание названной сказки для маршрутизатора.
func (r *Retriever) Match(input string) (string, bool) {
	return r.catalog.Match(input)
}

// AllowsUnlisted сообщает, можно ли искать сказки вне каталога.
func (r *Retriever) AllowsUnlisted() bool {
	return r.useLLM
}

// Retrieve возвращает пересказ сказки. Промах - models.ErrClassicNotFound,
// сбой модели - models.ErrGenerationUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, tier models.LengthTier) (models.Story, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Story{}, models.ErrClassicNotFound
	}

	if tale, ok := r.catalog.Get(query); ok {
		r.logger.Info("Classic found in catalog",
			zap.String("title", tale.Title),
			zap.String("provenance", tale.Provenance),
		)
		return tale.ToStory(), nil
	}

	if !r.useLLM {
		return models.Story{}, fmt.Errorf("%w: %q", models.ErrClassicNotFound, query)
	}
	return r.retrieveFromModel(ctx, query, tier)
}

func (r *Retriever) retrieveFromModel(ctx context.Context, query string, tier models.LengthTier) (models.Story, error) {
	prompt, err := r.prompts.Render(prompts.KeyRetriever, map[string]string{
		"QUERY":        query,
		"WORDS_TARGET": strconv.Itoa(tier.Words().Target),
	})
	if err != nil {
		return models.Story{}, fmt.Errorf("failed to render retriever prompt: %w", err)
	}

	cons := llm.ConstraintsFor(llm.RoleRetriever, r.model)
	cons.LengthTier = tier
	cons.JSON = true
	raw, err := r.gateway.Complete(ctx, prompt, cons)
	if err != nil {
		return models.Story{}, err
	}

	var resp retrieverResponse
	if err := llm.ParseJSONObject(raw, &resp); err != nil {
		if errors.Is(err, models.ErrMalformedModelOutput) {
			r.logger.Warn("Unparseable retriever response", zap.String("query", query), zap.Error(err))
			return models.Story{}, fmt.Errorf("%w: %w", models.ErrClassicNotFound, err)
		}
		return models.Story{}, err
	}

	story := safety.SanitizeText(resp.Story, 0)
	if !resp.Found || story == "" {
		r.logger.Info("Classic not found by model",
			zap.String("query", query),
			zap.String("reason", resp.Reason),
		)
		return models.Story{}, fmt.Errorf("%w: %q", models.ErrClassicNotFound, query)
	}

	title := strings.TrimSpace(resp.Title)
	if title == "" {
		title = query
	}
	r.logger.Info("Classic retrieved by model",
		zap.String("title", title),
		zap.String("provenance", resp.Provenance),
	)
	return models.Story{Title: title, Body: story, Themes: safety.ThemesIn(story, maxThemes)}, nil
}
