package llm

import (
	"context"
	"fmt"
	"strings"

	"starlit-server/internal/config"

	"go.uber.org/zap"
)

// NewGateway создает клиента языковой модели по AI_CLIENT_TYPE.
func NewGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case config.AIClientGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini client requires gemini_api_key secret or GEMINI_API_KEY")
		}
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.AIBaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Gemini language model client")
		return newClient(p, cfg.AITimeout, logger), nil
	case config.AIClientOpenAI:
		logger.Info("Using OpenAI-compatible language model client", zap.String("base_url", cfg.AIBaseURL))
		return newClient(newOpenAIProvider(cfg.OpenAIAPIKey, cfg.AIBaseURL, cfg.AITimeout), cfg.AITimeout, logger), nil
	case config.AIClientOllama:
		p, err := newOllamaProvider(cfg.AIBaseURL, cfg.AITimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Ollama language model client", zap.String("base_url", cfg.AIBaseURL))
		return newClient(p, cfg.AITimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown AI client type '%s'", cfg.AIClientType)
	}
}
