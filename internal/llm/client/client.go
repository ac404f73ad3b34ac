package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// CompletionClient is the single capability the pipeline needs from a
// language model: one prompt in, text out. Prompt construction and response
// parsing stay with the caller.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// ChatModelClient adapts an eino chat model to CompletionClient.
type ChatModelClient struct {
	chatModel model.BaseChatModel
	provider  string
	modelName string
}

// Provider returns the provider id this client was built for.
func (c *ChatModelClient) Provider() string {
	return c.provider
}

// ModelName returns the provider-side model identifier.
func (c *ChatModelClient) ModelName() string {
	return c.modelName
}

func (c *ChatModelClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	opts := []model.Option{}
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}
	if temperature >= 0 {
		opts = append(opts, model.WithTemperature(temperature))
	}

	msg, err := c.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", c.provider, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%s returned no content", c.provider)
	}
	return msg.Content, nil
}
