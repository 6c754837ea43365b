// Package openai adapts OpenAI-compatible chat completion endpoints to the
// llm.Provider boundary using github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/types"
)

// Config configures the provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client is the subset of *goopenai.Client the provider uses.
type Client interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Provider implements llm.Provider on top of go-openai.
type Provider struct {
	client Client
	model  string
	logger *zap.Logger
}

// New creates a provider talking to cfg.BaseURL (OpenAI when empty).
func New(cfg Config, logger *zap.Logger) *Provider {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewWithClient(goopenai.NewClientWithConfig(clientConfig), cfg.Model, logger)
}

// NewWithClient creates a provider around an existing client.
func NewWithClient(client Client, model string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		client: client,
		model:  model,
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	creq := goopenai.ChatCompletionRequest{
		Model:     model,
		Messages:  toOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
		Stop:      req.Stop,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
		// go-openai drops a zero temperature (omitempty)
		if creq.Temperature == 0 {
			creq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	for _, fn := range req.Functions {
		creq.Tools = append(creq.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}
	if len(creq.Tools) > 0 && req.ToolChoice != "" {
		creq.ToolChoice = req.ToolChoice
	}

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.ErrTransport, "openai returned no choices")
	}

	choice := resp.Choices[0].Message
	msg := types.NewMessage(types.RoleAssistant, choice.Content)
	if len(choice.ToolCalls) > 0 {
		calls := make([]types.ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			calls = append(calls, types.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			})
		}
		msg = msg.WithToolCalls(calls)
	}

	p.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("tool_calls", len(msg.ToolCalls)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &llm.ChatResponse{
		ID:       resp.ID,
		Provider: p.Name(),
		Model:    resp.Model,
		Message:  msg,
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func toOpenAIMessages(msgs []types.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.From,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

// classify maps go-openai failures onto the framework taxonomy.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return types.NewError(types.ErrCancelled, "openai request cancelled").WithCause(err)
	}
	terr := llm.TransportError("openai", err)

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		terr.Message = fmt.Sprintf("openai api error (status %d)", apiErr.HTTPStatusCode)
		terr.Retryable = apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return terr
}
