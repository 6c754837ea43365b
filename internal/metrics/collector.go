// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/groupchat"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现 groupchat.MetricsRecorder 和 llm.MetricsCollector
type Collector struct {
	// 会话指标
	sessionsTotal   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	sessionRounds   prometheus.Histogram

	// 成员回复指标
	repliesTotal  *prometheus.CounterVec
	replyDuration *prometheus.HistogramVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，注册到 reg；reg 为 nil 时使用默认 Registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 会话指标
	c.sessionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of group chat sessions by final state",
		},
		[]string{"state"},
	)

	c.sessionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Group chat session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"state"},
	)

	c.sessionRounds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_rounds",
			Help:      "Number of rounds used by a session",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		},
	)

	// 成员回复指标
	c.repliesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_replies_total",
			Help:      "Total number of agent replies",
		},
		[]string{"agent", "status"},
	)

	c.replyDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_reply_duration_seconds",
			Help:      "Agent reply duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	return c
}

// =============================================================================
// 🗣️ 群聊指标
// =============================================================================

// RecordReply 记录一次成员回复
func (c *Collector) RecordReply(agentName string, success bool, d time.Duration) {
	c.repliesTotal.WithLabelValues(agentName, status(success)).Inc()
	c.replyDuration.WithLabelValues(agentName).Observe(d.Seconds())
}

// RecordSession 记录一次会话结束
func (c *Collector) RecordSession(state string, rounds int, d time.Duration) {
	c.sessionsTotal.WithLabelValues(state).Inc()
	c.sessionDuration.WithLabelValues(state).Observe(d.Seconds())
	c.sessionRounds.Observe(float64(rounds))

	c.logger.Debug("session recorded",
		zap.String("state", state),
		zap.Int("rounds", rounds),
		zap.Duration("duration", d),
	)
}

// =============================================================================
// 🤖 LLM 指标
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model string, success bool, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status(success)).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordLLMTokens 记录 Token 用量
func (c *Collector) RecordLLMTokens(provider, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// =============================================================================
// 🔀 多路分发
// =============================================================================

type fanout []groupchat.MetricsRecorder

// Fanout 将会话指标同时分发给多个记录器，nil 记录器会被忽略
func Fanout(recorders ...groupchat.MetricsRecorder) groupchat.MetricsRecorder {
	var f fanout
	for _, r := range recorders {
		if r != nil {
			f = append(f, r)
		}
	}
	return f
}

func (f fanout) RecordReply(agentName string, success bool, d time.Duration) {
	for _, r := range f {
		r.RecordReply(agentName, success, d)
	}
}

func (f fanout) RecordSession(state string, rounds int, d time.Duration) {
	for _, r := range f {
		r.RecordSession(state, rounds, d)
	}
}
