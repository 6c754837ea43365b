package agent

import (
	"context"

	"github.com/BaSui01/groupchat/types"
)

// Pipeline stage names reported in errors.
const (
	StageGenerate   = "generate"
	StagePreProcess = "pre_process"
	StageValidate   = "validate"
	StagePost       = "post_process"
)

// Middleware intercepts one reply. It receives the visible history and the
// next stage and may call next zero or more times.
type Middleware func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error)

// MiddlewareAgent wraps an inner agent with an ordered interceptor stack.
// A MiddlewareAgent is immutable: Use returns a new wrapper.
//
// Later registrations wrap earlier ones, so the last registered middleware
// runs first and sees the result of every stage registered before it.
type MiddlewareAgent struct {
	inner       Agent
	middlewares []Middleware
}

// NewMiddlewareAgent wraps inner with the given middlewares, applied in
// registration order.
func NewMiddlewareAgent(inner Agent, middlewares ...Middleware) *MiddlewareAgent {
	return &MiddlewareAgent{
		inner:       inner,
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// Name returns the inner agent's name.
func (a *MiddlewareAgent) Name() string { return a.inner.Name() }

// Inner returns the wrapped agent.
func (a *MiddlewareAgent) Inner() Agent { return a.inner }

// Len returns the number of registered middlewares.
func (a *MiddlewareAgent) Len() int { return len(a.middlewares) }

// Use returns a new MiddlewareAgent with mw registered on top of the stack.
func (a *MiddlewareAgent) Use(mw ...Middleware) *MiddlewareAgent {
	stack := make([]Middleware, 0, len(a.middlewares)+len(mw))
	stack = append(stack, a.middlewares...)
	stack = append(stack, mw...)
	return &MiddlewareAgent{inner: a.inner, middlewares: stack}
}

// RegisterPreProcess is shorthand for Use(PreProcess(fn, fallback)).
func (a *MiddlewareAgent) RegisterPreProcess(fn FilterFunc, fallback string) *MiddlewareAgent {
	return a.Use(PreProcess(fn, fallback))
}

// RegisterReply is shorthand for Use(Reply(fn)).
func (a *MiddlewareAgent) RegisterReply(fn ShortCircuitFunc) *MiddlewareAgent {
	return a.Use(Reply(fn))
}

// RegisterPostProcess is shorthand for Use(PostProcess(fn)).
func (a *MiddlewareAgent) RegisterPostProcess(fn TransformFunc) *MiddlewareAgent {
	return a.Use(PostProcess(fn))
}

// GenerateReply runs the full stack. Every stage result without a sender is
// attributed to this agent.
func (a *MiddlewareAgent) GenerateReply(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error) {
	name := a.inner.Name()
	handler := a.stamp(name, a.inner.GenerateReply)
	for _, mw := range a.middlewares {
		handler = a.stamp(name, wrap(mw, handler))
	}
	return handler(ctx, messages, opts)
}

func wrap(mw Middleware, next ReplyFunc) ReplyFunc {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error) {
		return mw(ctx, messages, opts, next)
	}
}

func (a *MiddlewareAgent) stamp(name string, next ReplyFunc) ReplyFunc {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error) {
		reply, err := next(ctx, messages, opts)
		if err != nil {
			return reply, err
		}
		if reply.From == "" {
			reply = reply.WithFrom(name)
		}
		if reply.Role == "" {
			reply.Role = types.RoleAssistant
		}
		return reply, nil
	}
}
