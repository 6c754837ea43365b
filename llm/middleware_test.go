package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/BaSui01/groupchat/types"
)

type stubProvider struct {
	calls int
	resp  *ChatResponse
	err   error
	panic bool
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type recordingCollector struct {
	mu       sync.Mutex
	requests []bool
	tokens   int
}

func (r *recordingCollector) RecordLLMRequest(_, _ string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, success)
}

func (r *recordingCollector) RecordLLMTokens(_, _ string, prompt, completion int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens += prompt + completion
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	chain := NewChain(mark("a")).Use(mark("b"))
	assert.Equal(t, 2, chain.Len())

	p := Wrap(&stubProvider{resp: &ChatResponse{}}, chain)
	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "stub", p.Name())
}

func TestRecoveryMiddleware(t *testing.T) {
	var recovered any
	p := Wrap(&stubProvider{panic: true}, NewChain(RecoveryMiddleware(func(v any) { recovered = v })))

	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
	assert.Equal(t, "boom", recovered)

	var pe *PanicError
	assert.True(t, errors.As(err, &pe))
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline bool
	inner := Middleware(func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			_, deadline = ctx.Deadline()
			return next(ctx, req)
		}
	})
	p := Wrap(&stubProvider{resp: &ChatResponse{}}, NewChain(TimeoutMiddleware(time.Second), inner))

	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.True(t, deadline)
}

func TestRateLimitMiddleware_CancelledContext(t *testing.T) {
	stub := &stubProvider{resp: &ChatResponse{}}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	p := Wrap(stub, NewChain(RateLimitMiddleware(limiter)))

	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Completion(ctx, &ChatRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCancelled))
	assert.Equal(t, 1, stub.calls)
}

func TestMetricsAndLoggingMiddleware(t *testing.T) {
	collector := &recordingCollector{}
	stub := &stubProvider{resp: &ChatResponse{Usage: ChatUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}}}
	p := Wrap(stub, NewChain(LoggingMiddleware(zaptest.NewLogger(t)), MetricsMiddleware("stub", collector)))

	ctx := types.WithAgent(types.WithRound(context.Background(), 2), "coder")
	_, err := p.Completion(ctx, &ChatRequest{Model: "m"})
	require.NoError(t, err)

	stub.err = errors.New("down")
	_, err = p.Completion(ctx, &ChatRequest{Model: "m"})
	require.Error(t, err)

	assert.Equal(t, []bool{true, false}, collector.requests)
	assert.Equal(t, 7, collector.tokens)
}

func TestTransportError(t *testing.T) {
	err := TransportError("openai", errors.New("dial tcp: refused"))
	assert.Equal(t, types.ErrTransport, err.Code)

	existing := types.NewError(types.ErrCancelled, "stopped")
	assert.Same(t, existing, TransportError("openai", existing))
}
