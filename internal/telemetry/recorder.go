package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SessionMetrics records group chat measurements through an OTel meter.
// It satisfies groupchat.MetricsRecorder.
type SessionMetrics struct {
	replies         metric.Int64Counter
	replyDuration   metric.Float64Histogram
	sessions        metric.Int64Counter
	sessionRounds   metric.Int64Histogram
	sessionDuration metric.Float64Histogram
}

// NewSessionMetrics creates the instruments on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	var (
		m   SessionMetrics
		err error
	)
	if m.replies, err = meter.Int64Counter("groupchat.agent.replies",
		metric.WithDescription("Agent replies by agent and outcome")); err != nil {
		return nil, err
	}
	if m.replyDuration, err = meter.Float64Histogram("groupchat.agent.reply.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Agent reply latency")); err != nil {
		return nil, err
	}
	if m.sessions, err = meter.Int64Counter("groupchat.sessions",
		metric.WithDescription("Finished sessions by state")); err != nil {
		return nil, err
	}
	if m.sessionRounds, err = meter.Int64Histogram("groupchat.session.rounds",
		metric.WithDescription("Rounds used per session")); err != nil {
		return nil, err
	}
	if m.sessionDuration, err = meter.Float64Histogram("groupchat.session.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Session wall time")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *SessionMetrics) RecordReply(agentName string, success bool, d time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("agent", agentName),
		attribute.Bool("success", success),
	)
	m.replies.Add(ctx, 1, attrs)
	m.replyDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *SessionMetrics) RecordSession(state string, rounds int, d time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("state", state))
	m.sessions.Add(ctx, 1, attrs)
	m.sessionRounds.Record(ctx, int64(rounds), attrs)
	m.sessionDuration.Record(ctx, d.Seconds(), attrs)
}
