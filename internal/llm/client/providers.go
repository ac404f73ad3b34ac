package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"google.golang.org/genai"
)

// defaultMaxTokens caps a single completion when the caller does not override
// it. The anthropic adapter requires a non-zero value at construction.
const defaultMaxTokens = 8192

// ClaudeModelOptions configures an Anthropic-backed client.
type ClaudeModelOptions struct {
	Model string
}

// OpenAIModelOptions configures an OpenAI-backed client.
type OpenAIModelOptions struct {
	Model string
}

// GeminiModelOptions configures a Gemini-backed client.
type GeminiModelOptions struct {
	Model string
}

func NewClaudeClient(ctx context.Context, apiKey string, opts ClaudeModelOptions) (*ChatModelClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	chatModel, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    apiKey,
		Model:     opts.Model,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create anthropic chat model: %w", err)
	}
	return &ChatModelClient{chatModel: chatModel, provider: "anthropic", modelName: opts.Model}, nil
}

func NewOpenAIClient(ctx context.Context, apiKey string, opts OpenAIModelOptions) (*ChatModelClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &ChatModelClient{chatModel: chatModel, provider: "openai", modelName: opts.Model}, nil
}

func NewGeminiClient(ctx context.Context, apiKey string, opts GeminiModelOptions) (*ChatModelClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: genaiClient,
		Model:  opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return &ChatModelClient{chatModel: chatModel, provider: "gemini", modelName: opts.Model}, nil
}

// NewClient builds a CompletionClient for the given provider id.
func NewClient(ctx context.Context, provider, apiKey, modelName string) (*ChatModelClient, error) {
	provider = strings.TrimSpace(provider)
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	switch provider {
	case "anthropic":
		return NewClaudeClient(ctx, apiKey, ClaudeModelOptions{Model: modelName})
	case "openai":
		return NewOpenAIClient(ctx, apiKey, OpenAIModelOptions{Model: modelName})
	case "gemini":
		return NewGeminiClient(ctx, apiKey, GeminiModelOptions{Model: modelName})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
