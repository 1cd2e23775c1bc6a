package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	request  openai.ChatCompletionRequest
	response openai.ChatCompletionResponse
	err      error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (
	openai.ChatCompletionResponse, error) {
	f.request = request
	return f.response, f.err
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Model: "gpt-4o-mini"})
	assert.Error(t, err)

	_, err = New(Options{Client: &fakeChat{}})
	assert.Error(t, err)

	_, err = NewFromAPIKey("", "gpt-4o-mini")
	assert.Error(t, err)
}

func TestCompleteBuildsRequest(t *testing.T) {
	chat := &fakeChat{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "grounded answer"}},
			},
		},
	}
	client, err := New(Options{Client: chat, Model: "gpt-4o-mini", Temperature: 0.1, MaxTokens: 512})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "system prompt", "user question")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", got)

	assert.Equal(t, "gpt-4o-mini", chat.request.Model)
	assert.InDelta(t, 0.1, chat.request.Temperature, 1e-6)
	assert.Equal(t, 512, chat.request.MaxTokens)
	require.Len(t, chat.request.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, chat.request.Messages[0].Role)
	assert.Equal(t, "user question", chat.request.Messages[1].Content)
}

func TestCompleteErrors(t *testing.T) {
	chat := &fakeChat{err: errors.New("rate limited")}
	client, err := New(Options{Client: chat, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "rate limited")

	chat.err = nil
	chat.response = openai.ChatCompletionResponse{}
	_, err = client.Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "no choices")
}

func TestStubClientReplaysResponses(t *testing.T) {
	stub := NewStubClient("first", "second")

	got, err := stub.Complete(context.Background(), "sys", "one")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, _ = stub.Complete(context.Background(), "sys", "two")
	assert.Equal(t, "second", got)
	got, _ = stub.Complete(context.Background(), "sys", "three")
	assert.Equal(t, "second", got, "last response repeats")

	require.Len(t, stub.Calls, 3)
	assert.Equal(t, "one", stub.Calls[0].User)
}
