// Package llm wraps the language model used for claim extraction and
// narrative passes. The engine's numbers never come from the model;
// the model only restructures text the tools produced.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the completion contract the grounding validator and the
// briefing narrator consume.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient captures the subset of the go-openai client the adapter
// uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client      ChatClient
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIClient implements Client via the OpenAI Chat Completions API.
type OpenAIClient struct {
	chat        ChatClient
	model       string
	temperature float32
	maxTokens   int
}

// New builds an OpenAI-backed client from the provided options.
func New(opts Options) (*OpenAIClient, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAIClient{
		chat:        opts.Client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// NewFromAPIKey constructs a client using the default go-openai HTTP
// client.
func NewFromAPIKey(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return New(Options{Client: openai.NewClient(apiKey), Model: model})
}

// Complete sends a system+user exchange and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	response, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return response.Choices[0].Message.Content, nil
}

var _ Client = (*OpenAIClient)(nil)
