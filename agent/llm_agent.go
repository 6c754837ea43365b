package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/types"
)

// LLMAgent generates replies through an llm.Provider. Its only suspension
// point is the provider call.
type LLMAgent struct {
	name         string
	systemPrompt string
	provider     llm.Provider
	model        string
	temperature  *float32
	maxTokens    int
	functions    []types.FunctionSchema
	functionMap  map[string]FunctionHandler
	logger       *zap.Logger
}

// LLMAgentOption configures an LLMAgent.
type LLMAgentOption func(*LLMAgent)

// WithModel overrides the provider's default model.
func WithModel(model string) LLMAgentOption {
	return func(a *LLMAgent) { a.model = model }
}

// WithTemperature sets the agent's default temperature.
func WithTemperature(t float32) LLMAgentOption {
	return func(a *LLMAgent) { a.temperature = Temperature(t) }
}

// WithMaxTokens caps reply length.
func WithMaxTokens(n int) LLMAgentOption {
	return func(a *LLMAgent) { a.maxTokens = n }
}

// WithFunction declares a callable function and registers its local handler.
func WithFunction(schema types.FunctionSchema, handler FunctionHandler) LLMAgentOption {
	return func(a *LLMAgent) {
		a.functions = append(a.functions, schema)
		if a.functionMap == nil {
			a.functionMap = make(map[string]FunctionHandler)
		}
		a.functionMap[schema.Name] = handler
	}
}

// WithLogger sets the agent logger.
func WithLogger(logger *zap.Logger) LLMAgentOption {
	return func(a *LLMAgent) { a.logger = logger }
}

// NewLLMAgent creates an agent backed by provider.
func NewLLMAgent(name, systemPrompt string, provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	a := &LLMAgent{
		name:         name,
		systemPrompt: systemPrompt,
		provider:     provider,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "llm_agent"), zap.String("agent", name))
	return a
}

func (a *LLMAgent) Name() string { return a.name }

// SystemPrompt returns the agent's seed instruction.
func (a *LLMAgent) SystemPrompt() string { return a.systemPrompt }

func (a *LLMAgent) GenerateReply(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error) {
	if err := checkContext(ctx, a.name, StageGenerate); err != nil {
		return types.Message{}, err
	}

	req := a.buildRequest(messages, opts)
	start := time.Now()
	resp, err := a.provider.Completion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return types.Message{}, checkContext(ctx, a.name, StageGenerate)
		}
		a.logger.Warn("reply generation failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return types.Message{}, llm.TransportError(a.provider.Name(), err).WithAgent(a.name).WithStage(StageGenerate)
	}

	if resp == nil {
		a.logger.Warn("provider returned no response", zap.String("provider", a.provider.Name()))
		return types.Message{}, types.NewError(types.ErrTransport, "provider "+a.provider.Name()+" returned no response").
			WithAgent(a.name).WithStage(StageGenerate)
	}

	reply := resp.Message
	reply.Role = types.RoleAssistant
	reply = reply.WithFrom(a.name)
	if reply.ID == "" {
		reply.ID = types.NewMessage(types.RoleAssistant, "").ID
	}

	a.logger.Debug("reply generated",
		zap.Duration("duration", time.Since(start)),
		zap.Int("tool_calls", len(reply.ToolCalls)))

	if len(a.functionMap) > 0 {
		reply = routeFunctionCall(ctx, reply, a.functionMap)
	}
	return reply, nil
}

// buildRequest maps the shared history onto the agent's point of view: its
// own messages become assistant turns, everyone else's become user turns
// that keep the sender name.
func (a *LLMAgent) buildRequest(messages []types.Message, opts *ReplyOptions) *llm.ChatRequest {
	msgs := make([]types.Message, 0, len(messages)+1)
	if a.systemPrompt != "" {
		msgs = append(msgs, types.NewSystemMessage(a.systemPrompt))
	}
	for _, m := range messages {
		switch {
		case m.Role == types.RoleSystem:
		case m.From == a.name:
			m.Role = types.RoleAssistant
		default:
			m.Role = types.RoleUser
		}
		msgs = append(msgs, m)
	}

	req := &llm.ChatRequest{
		Model:       a.model,
		Messages:    msgs,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Functions:   append([]types.FunctionSchema(nil), a.functions...),
	}
	if opts != nil {
		if opts.Temperature != nil {
			req.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		req.Stop = opts.Stop
		req.Functions = append(req.Functions, opts.Functions...)
	}
	if len(req.Functions) > 0 {
		req.ToolChoice = "auto"
	}
	return req
}
