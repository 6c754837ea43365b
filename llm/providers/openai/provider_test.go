package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/types"
)

type fakeClient struct {
	req  goopenai.ChatCompletionRequest
	resp goopenai.ChatCompletionResponse
	err  error
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestProvider_CompletionMapsRequestAndToolCalls(t *testing.T) {
	client := &fakeClient{resp: goopenai.ChatCompletionResponse{
		ID:    "resp-1",
		Model: "gpt-4o",
		Choices: []goopenai.ChatCompletionChoice{{
			Message: goopenai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []goopenai.ToolCall{{
					ID:       "call-1",
					Type:     goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{Name: "ReviewCodeBlock", Arguments: `{"a":true}`},
				}},
			},
		}},
		Usage: goopenai.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
	}}
	p := NewWithClient(client, "gpt-4o", zaptest.NewLogger(t))

	temp := float32(0.4)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages:    []types.Message{types.NewSystemMessage("sys"), types.NewUserMessage("hi").WithFrom("admin")},
		Temperature: &temp,
		Functions:   []types.FunctionSchema{{Name: "ReviewCodeBlock", Parameters: json.RawMessage(`{"type":"object"}`)}},
		ToolChoice:  "auto",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", client.req.Model)
	assert.Equal(t, float32(0.4), client.req.Temperature)
	require.Len(t, client.req.Messages, 2)
	assert.Equal(t, "admin", client.req.Messages[1].Name)
	require.Len(t, client.req.Tools, 1)
	assert.Equal(t, "ReviewCodeBlock", client.req.Tools[0].Function.Name)

	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "ReviewCodeBlock", resp.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"a":true}`, string(resp.Message.ToolCalls[0].Arguments))
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestProvider_ZeroTemperatureIsSent(t *testing.T) {
	client := &fakeClient{resp: goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{{Message: goopenai.ChatCompletionMessage{Content: "ok"}}},
	}}
	p := NewWithClient(client, "gpt-4o", nil)

	zero := float32(0)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages:    []types.Message{types.NewUserMessage("hi")},
		Temperature: &zero,
	})
	require.NoError(t, err)

	body, err := json.Marshal(client.req)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	require.Contains(t, fields, "temperature")
	assert.InDelta(t, 0, fields["temperature"], 1e-6)

	// unset temperature is left to the backend default
	_, err = p.Completion(context.Background(), &llm.ChatRequest{Messages: []types.Message{types.NewUserMessage("hi")}})
	require.NoError(t, err)
	body, err = json.Marshal(client.req)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"temperature"`)
}

func TestProvider_NoChoices(t *testing.T) {
	p := NewWithClient(&fakeClient{}, "gpt-4o", nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
}

func TestProvider_ErrorClassification(t *testing.T) {
	p := NewWithClient(&fakeClient{err: &goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}}, "gpt-4o", nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
	assert.True(t, types.IsRetryable(err))

	p = NewWithClient(&fakeClient{err: context.Canceled}, "gpt-4o", nil)
	_, err = p.Completion(context.Background(), &llm.ChatRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrCancelled))

	p = NewWithClient(&fakeClient{err: errors.New("connection reset")}, "gpt-4o", nil)
	_, err = p.Completion(context.Background(), &llm.ChatRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
	assert.False(t, types.IsRetryable(err))
}
