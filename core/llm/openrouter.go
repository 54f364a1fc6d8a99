package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/revrost/go-openrouter"
)

// OpenRouterProvider implements the Provider interface for OpenRouter models
type OpenRouterProvider struct {
	client *openrouter.Client
	config Config
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(config Config) (*OpenRouterProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	return &OpenRouterProvider{
		client: openrouter.NewClient(config.APIKey),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

// IsAvailable checks if the provider is reachable by listing its models
func (p *OpenRouterProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Complete generates a reply through OpenRouter
func (p *OpenRouterProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = "openai/gpt-4o-mini"
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Duration(p.config.timeoutSeconds())*time.Second)
	defer cancel()

	var messages []openrouter.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openrouter.ChatCompletionMessage{
			Role:    openrouter.ChatMessageRoleSystem,
			Content: openrouter.Content{Text: req.System},
		})
	}
	messages = append(messages, openrouter.ChatCompletionMessage{
		Role:    openrouter.ChatMessageRoleUser,
		Content: openrouter.Content{Text: req.Prompt},
	})

	request := openrouter.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: p.config.maxTokens(req),
	}
	if req.JSON {
		request.ResponseFormat = &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	response, err := p.client.CreateChatCompletion(ctxWithTimeout, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return &CompletionResponse{
		Text:  strings.TrimSpace(response.Choices[0].Message.Content.Text),
		Model: model,
	}, nil
}
