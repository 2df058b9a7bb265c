package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// ollamaProvider вызывает локальную модель через нативный API Ollama.
type ollamaProvider struct {
	client *api.Client
}

func newOllamaProvider(baseURL string, timeout time.Duration) (*ollamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	// api.NewClient ожидает URL без суффикса /v1
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return &ollamaProvider{client: api.NewClient(parsedURL, &http.Client{Timeout: timeout})}, nil
}

func (p *ollamaProvider) name() string { return "ollama" }

func (p *ollamaProvider) chat(ctx context.Context, prompt Prompt, c Constraints) (string, Usage, error) {
	var messages []api.Message
	if prompt.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: prompt.System})
	}
	if prompt.User != "" {
		messages = append(messages, api.Message{Role: "user", Content: prompt.User})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": c.Temperature,
		},
	}
	if c.MaxTokens > 0 {
		req.Options["num_predict"] = c.MaxTokens
	}
	if c.JSON {
		req.Format = []byte(`"json"`)
	}

	var (
		text  strings.Builder
		usage Usage
	)
	err := p.client.Chat(ctx, req, func(r api.ChatResponse) error {
		text.WriteString(r.Message.Content)
		if r.Done {
			usage.PromptTokens = r.PromptEvalCount
			usage.CompletionTokens = r.EvalCount
		}
		return nil
	})
	if err != nil {
		return "", Usage{}, err
	}
	return text.String(), usage, nil
}

func (p *ollamaProvider) close() error { return nil }
