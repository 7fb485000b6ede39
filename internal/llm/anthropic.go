package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicProvider uses the native Anthropic SDK rather than the OpenAI
// compatibility shape, selected by `provider: anthropic` in the ProviderSpec.
type anthropicProvider struct {
	spec   ProviderSpec
	client anthropic.Client
}

func newAnthropicProvider(spec ProviderSpec) *anthropicProvider {
	opts := []option.RequestOption{}
	if spec.APIKey != "" {
		opts = append(opts, option.WithAPIKey(spec.APIKey))
	}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(spec.BaseURL))
	}
	return &anthropicProvider{spec: spec, client: anthropic.NewClient(opts...)}
}

func (p *anthropicProvider) id() string {
	return p.spec.ID()
}

func (p *anthropicProvider) generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.spec.Model),
		MaxTokens:   2048,
		Temperature: anthropic.Float(0.1),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", 0, fmt.Errorf("response carried no text content")
	}
	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	return text, tokens, nil
}
