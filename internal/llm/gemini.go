package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiProvider - провайдер по умолчанию, Google Gemini.
type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(ctx context.Context, apiKey, endpoint string) (*geminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiProvider{client: client}, nil
}

func (p *geminiProvider) name() string { return "gemini" }

func (p *geminiProvider) chat(ctx context.Context, prompt Prompt, c Constraints) (string, Usage, error) {
	gm := p.client.GenerativeModel(c.Model)
	gm.SetTemperature(float32(c.Temperature))
	if c.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(c.MaxTokens))
	}
	if prompt.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	if c.JSON {
		gm.ResponseMIMEType = "application/json"
	}

	user := prompt.User
	if user == "" {
		// Gemini не принимает пустой контент пользователя
		user = "Begin."
	}
	resp, err := gm.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", Usage{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil {
			return "", Usage{}, fmt.Errorf("prompt blocked: %v", resp.PromptFeedback.BlockReason)
		}
		return "", Usage{}, fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return sb.String(), usage, nil
}

func (p *geminiProvider) close() error { return p.client.Close() }
