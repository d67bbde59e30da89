package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fixpilot/fixpilot/internal/testrunner"
)

const systemPrompt = "You are a senior engineer reviewing automated test failures. " +
	"Be specific and concise; name the files and changes you would make."

// Claude implements Analyzer against the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaude creates a Claude analyzer with the given API key, model
// identifier, and response token budget.
func NewClaude(apiKey, model string, maxTokens int) *Claude {
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}
}

// Analyze sends the failure context to the model and returns its
// free-text analysis.
func (c *Claude) Analyze(ctx context.Context, files []string, result testrunner.TestResult) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{{
			Text: systemPrompt,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(files, result))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: analysis request: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("llm: empty response from model")
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("llm: response contained no text content")
	}
	return text, nil
}
