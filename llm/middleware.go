package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/groupchat/types"
)

// Handler processes a request and returns a response.
type Handler func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

// Middleware wraps a handler with additional functionality.
type Middleware func(next Handler) Handler

// Chain represents a middleware chain.
type Chain struct {
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewChain creates a new middleware chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use adds middleware to the chain.
func (c *Chain) Use(m Middleware) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, m)
	return c
}

// Then wraps a handler with all middleware. The first middleware added is the
// outermost.
func (c *Chain) Then(h Handler) Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// Len returns the number of middleware.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.middlewares)
}

// Wrap returns a Provider whose Completion runs through chain.
func Wrap(p Provider, chain *Chain) Provider {
	return &wrappedProvider{name: p.Name(), handler: chain.Then(p.Completion)}
}

type wrappedProvider struct {
	name    string
	handler Handler
}

func (w *wrappedProvider) Name() string { return w.name }

func (w *wrappedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return w.handler(ctx, req)
}

// LoggingMiddleware logs request/response details.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	logger = logger.With(zap.String("component", "llm"))
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			start := time.Now()
			fields := []zap.Field{zap.String("model", req.Model), zap.Int("messages", len(req.Messages))}
			if id, ok := types.SessionID(ctx); ok {
				fields = append(fields, zap.String("session_id", id))
			}
			if name, ok := types.Agent(ctx); ok {
				fields = append(fields, zap.String("agent", name))
			}
			if round, ok := types.Round(ctx); ok {
				fields = append(fields, zap.Int("round", round))
			}

			resp, err := next(ctx, req)

			fields = append(fields, zap.Duration("duration", time.Since(start)))
			if err != nil {
				logger.Warn("completion failed", append(fields, zap.Error(err))...)
			} else if resp != nil {
				logger.Debug("completion done", append(fields, zap.Int("tokens", resp.Usage.TotalTokens))...)
			}
			return resp, err
		}
	}
}

// TimeoutMiddleware adds timeout to requests.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// RecoveryMiddleware recovers from panics.
func RecoveryMiddleware(onPanic func(any)) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (resp *ChatResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					if onPanic != nil {
						onPanic(r)
					}
					err = types.NewError(types.ErrTransport, "provider panicked").WithCause(&PanicError{Value: r})
				}
			}()
			return next(ctx, req)
		}
	}
}

// PanicError represents a recovered panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "panic recovered"
}

// RateLimitMiddleware blocks until limiter admits the request. Waiting honours
// ctx, so a cancelled session never sits in the limiter queue.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, types.NewError(types.ErrCancelled, "rate limit wait aborted").WithCause(ctx.Err())
				}
				return nil, types.NewError(types.ErrTransport, "rate limit exceeded").WithCause(err)
			}
			return next(ctx, req)
		}
	}
}

// MetricsMiddleware collects request metrics.
func MetricsMiddleware(provider string, collector MetricsCollector) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			collector.RecordLLMRequest(provider, req.Model, err == nil, duration)
			if resp != nil {
				collector.RecordLLMTokens(provider, req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			return resp, err
		}
	}
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	RecordLLMRequest(provider, model string, success bool, duration time.Duration)
	RecordLLMTokens(provider, model string, promptTokens, completionTokens int)
}
