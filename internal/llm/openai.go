package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
)

// openAIProvider работает с OpenAI и совместимыми API (OpenRouter, vLLM и т.п.).
type openAIProvider struct {
	client *openaigo.Client
}

func newOpenAIProvider(apiKey, baseURL string, timeout time.Duration) *openAIProvider {
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &openAIProvider{client: openaigo.NewClientWithConfig(cfg)}
}

func (p *openAIProvider) name() string { return "openai" }

func (p *openAIProvider) chat(ctx context.Context, prompt Prompt, c Constraints) (string, Usage, error) {
	var messages []openaigo.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	if prompt.User != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: prompt.User,
		})
	}

	req := openaigo.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: float32(c.Temperature),
		MaxTokens:   c.MaxTokens,
	}
	if c.JSON {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", Usage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *openAIProvider) close() error { return nil }
