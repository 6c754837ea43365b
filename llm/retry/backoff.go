package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/types"
)

// Policy 定义后端调用的重试策略
type Policy struct {
	MaxRetries   int                                               // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration                                     // 初始延迟时间
	MaxDelay     time.Duration                                     // 最大延迟时间
	Multiplier   float64                                           // 延迟时间倍增因子（指数退避）
	Jitter       bool                                              // 是否添加 ±25% 随机抖动
	OnRetry      func(attempt int, err error, delay time.Duration) // 重试回调
}

// DefaultPolicy 返回默认的重试策略，适用于大部分 LLM API 调用
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// normalize 参数校验
func (p Policy) normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// Delay 计算第 attempt 次重试前的等待时间（attempt 从 1 开始）
// delay = initial * multiplier^(attempt-1)，不超过 MaxDelay，不低于 InitialDelay
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalize()
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
	}
	if delay < float64(p.InitialDelay) {
		delay = float64(p.InitialDelay)
	}
	return time.Duration(delay)
}

// Retryable 只有标记为可重试、且不是取消的错误才会重试。
// 结构化输出的校验失败不经过这里，由 agent.RetryUntilValid 处理。
func Retryable(err error) bool {
	return err != nil && !types.IsCancellation(err) && types.IsRetryable(err)
}

// Do 执行 fn，遇到可重试错误时按策略退避重试。
// 重试耗尽时原样返回最后一次错误，保留其错误码。
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, lastErr, delay)
			}
			select {
			case <-ctx.Done():
				return zero, types.NewError(types.ErrCancelled, "retry wait aborted").WithCause(ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}

		if !Retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt >= policy.MaxRetries {
			logger.Warn("retries exhausted",
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return zero, err
		}

		logger.Debug("retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Error(err))
	}
}

// Middleware 把重试挂到 llm 中间件链上。每次尝试都会重新经过链中位于它
// 之后的中间件（限流、超时）。
func Middleware(policy Policy, logger *zap.Logger) llm.Middleware {
	return func(next llm.Handler) llm.Handler {
		return func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
			return Do(ctx, policy, logger, func(ctx context.Context) (*llm.ChatResponse, error) {
				return next(ctx, req)
			})
		}
	}
}
