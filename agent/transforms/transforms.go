package transforms

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/llm/tokenizer"
	"github.com/BaSui01/groupchat/types"
)

// Transform rewrites the history an agent sees. Implementations return a new
// slice and never modify the input messages.
type Transform interface {
	Apply(messages []types.Message) ([]types.Message, error)
}

// Middleware applies transforms in order before the rest of the pipeline
// sees the history. A transform error aborts the reply. When nothing is left
// to show, agent.DefaultFallback is published and next is never called.
func Middleware(transforms ...Transform) agent.Middleware {
	return func(ctx context.Context, messages []types.Message, opts *agent.ReplyOptions, next agent.ReplyFunc) (types.Message, error) {
		visible := messages
		for _, t := range transforms {
			var err error
			visible, err = t.Apply(visible)
			if err != nil {
				return types.Message{}, err
			}
		}
		if len(visible) == 0 {
			return types.NewAssistantMessage(agent.DefaultFallback, ""), nil
		}
		return next(ctx, visible, opts)
	}
}

// HistoryLimiter keeps only the most recent messages.
type HistoryLimiter struct {
	maxMessages int
}

// NewMessageHistoryLimiter keeps at most maxMessages messages.
func NewMessageHistoryLimiter(maxMessages int) (*HistoryLimiter, error) {
	if maxMessages < 1 {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("max messages must be at least 1, got %d", maxMessages))
	}
	return &HistoryLimiter{maxMessages: maxMessages}, nil
}

// Apply returns the trailing window of messages.
func (l *HistoryLimiter) Apply(messages []types.Message) ([]types.Message, error) {
	return l.Filter()(messages), nil
}

// Filter exposes the limiter as a pre-process filter.
func (l *HistoryLimiter) Filter() agent.FilterFunc {
	return func(messages []types.Message) []types.Message {
		if len(messages) <= l.maxMessages {
			return types.CloneMessages(messages)
		}
		return types.CloneMessages(messages[len(messages)-l.maxMessages:])
	}
}

// TokenLimiter truncates each message and then drops the oldest messages
// once the history exceeds a total token budget.
type TokenLimiter struct {
	perMessage int
	total      int
	tokenizer  tokenizer.Tokenizer
	logger     *zap.Logger
}

// TokenLimiterOption configures a TokenLimiter.
type TokenLimiterOption func(*TokenLimiter)

// WithLogger reports truncation statistics.
func WithLogger(logger *zap.Logger) TokenLimiterOption {
	return func(l *TokenLimiter) { l.logger = logger }
}

// NewMessageTokenLimiter creates a token limiter. A zero limit disables that
// limit; negative limits are rejected. A nil tokenizer selects the rune
// estimator.
func NewMessageTokenLimiter(perMessage, total int, tok tokenizer.Tokenizer, opts ...TokenLimiterOption) (*TokenLimiter, error) {
	if perMessage < 0 || total < 0 {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("token limits must be non-negative, got per message %d and total %d", perMessage, total))
	}
	if tok == nil {
		tok = tokenizer.NewEstimatorTokenizer()
	}
	l := &TokenLimiter{
		perMessage: perMessage,
		total:      total,
		tokenizer:  tok,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("component", "token_limiter"))
	return l, nil
}

// Apply walks the history newest first, truncating each message and stopping
// at the first message that would overflow the total budget.
func (l *TokenLimiter) Apply(messages []types.Message) ([]types.Message, error) {
	totalBefore := 0
	budgetUsed := 0
	dropping := false
	out := make([]types.Message, 0, len(messages))

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		n, err := l.tokenizer.CountTokens(m.Content)
		if err != nil {
			return nil, err
		}
		totalBefore += n

		if dropping {
			continue
		}

		if l.perMessage > 0 && n > l.perMessage {
			truncated, err := l.tokenizer.Truncate(m.Content, l.perMessage)
			if err != nil {
				return nil, err
			}
			m = m.WithContent(truncated)
			if n, err = l.tokenizer.CountTokens(truncated); err != nil {
				return nil, err
			}
		}

		if l.total > 0 && budgetUsed+n > l.total {
			// everything older is dropped too
			dropping = true
			continue
		}
		budgetUsed += n
		out = append(out, m)
	}

	// restore chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if totalBefore > budgetUsed {
		l.logger.Debug("history truncated",
			zap.Int("tokens_before", totalBefore),
			zap.Int("tokens_after", budgetUsed),
			zap.Int("messages_before", len(messages)),
			zap.Int("messages_after", len(out)))
	}
	return out, nil
}

// Filter exposes the limiter as a pre-process filter. Tokenizer failures
// leave the history untouched.
func (l *TokenLimiter) Filter() agent.FilterFunc {
	return func(messages []types.Message) []types.Message {
		out, err := l.Apply(messages)
		if err != nil {
			l.logger.Warn("token limiting skipped", zap.Error(err))
			return types.CloneMessages(messages)
		}
		return out
	}
}
