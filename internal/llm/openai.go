package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// openaiProvider speaks the OpenAI chat-completions wire shape, which most
// local and hosted gateways (vLLM, Ollama, LiteLLM, OpenRouter) accept. Any
// deviation from the expected envelope is a hard failure, never a partial
// success.
type openaiProvider struct {
	spec   ProviderSpec
	client *http.Client
}

func newOpenAIProvider(spec ProviderSpec) *openaiProvider {
	// Timeouts are driven by the caller's context so the chained deadline in
	// Client.Generate stays authoritative.
	return &openaiProvider{spec: spec, client: &http.Client{}}
}

func (p *openaiProvider) id() string {
	return p.spec.ID()
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *openaiProvider) generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.spec.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.1,
		MaxTokens:      2048,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", 0, fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimSuffix(p.spec.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.spec.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.spec.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", 0, fmt.Errorf("malformed response envelope: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", 0, fmt.Errorf("response carried no message content")
	}
	return *parsed.Choices[0].Message.Content, parsed.Usage.TotalTokens, nil
}
