// Package llm provides the chat-completion client used to generate answers.
// It speaks the OpenAI API shape against an OpenRouter-compatible endpoint.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is the model the assistant answers with unless configured.
const DefaultModel = "meta-llama/llama-3.1-8b-instruct:free"

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a Client against baseURL (DefaultBaseURL if empty).
func New(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete generates an assistant reply for the conversation history, with
// the system prompt prepended.
func (c *Client) Complete(ctx context.Context, system string, history []domain.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm complete: empty choice list")
	}
	return resp.Choices[0].Message.Content, nil
}
