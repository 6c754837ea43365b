package groupchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/types"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInitialized       State = "initialized"
	StateRunning           State = "running"
	StateSucceeded         State = "succeeded"
	StateRoundLimitReached State = "round_limit_reached"
	StateFailed            State = "failed"
)

// Terminal reports whether no further rounds can run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateRoundLimitReached || s == StateFailed
}

// Termination reasons.
const (
	ReasonTerminated = "terminated by admin"
	ReasonRoundLimit = "round limit reached"
	ReasonCancelled  = "cancelled"
)

// Manager pipeline stages reported in errors.
const (
	StageSelect = "select"
	StageReply  = "reply"
)

// Result is the outcome of a session. Messages always holds the full
// history, including the introductions, at the time the session ended.
type Result struct {
	// SessionID identifies one Initiate call in logs, spans and context.
	SessionID string
	Messages  []types.Message
	State     State
	Reason    string
	Rounds    int
	Err       error
}

// Last returns the final message of the session.
func (r *Result) Last() (types.Message, bool) {
	if len(r.Messages) == 0 {
		return types.Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// MetricsRecorder receives session and reply measurements.
type MetricsRecorder interface {
	RecordReply(agentName string, success bool, d time.Duration)
	RecordSession(state string, rounds int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordReply(string, bool, time.Duration)  {}
func (nopRecorder) RecordSession(string, int, time.Duration) {}

// Manager drives the round loop of one GroupChat. Exactly one speaker is
// active at a time.
type Manager struct {
	chat         *GroupChat
	selector     SpeakerSelector
	logger       *zap.Logger
	metrics      MetricsRecorder
	tracer       trace.Tracer
	replyOptions *agent.ReplyOptions
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSelector sets the speaker selection policy. Default RoundRobinSelector.
func WithSelector(s SpeakerSelector) ManagerOption {
	return func(m *Manager) { m.selector = s }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r MetricsRecorder) ManagerOption {
	return func(m *Manager) { m.metrics = r }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) ManagerOption {
	return func(m *Manager) { m.tracer = t }
}

// WithReplyOptions passes opts to every speaker.
func WithReplyOptions(opts *agent.ReplyOptions) ManagerOption {
	return func(m *Manager) { m.replyOptions = opts }
}

// NewManager creates a manager for chat.
func NewManager(chat *GroupChat, opts ...ManagerOption) *Manager {
	m := &Manager{
		chat:     chat,
		selector: RoundRobinSelector{},
		logger:   zap.NewNop(),
		metrics:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("github.com/BaSui01/groupchat/groupchat")
	}
	m.logger = m.logger.With(zap.String("component", "group_chat_manager"))
	return m
}

// Chat returns the managed chat.
func (m *Manager) Chat() *GroupChat { return m.chat }

// Initiate runs one session: round 1 publishes task from the admin, every
// later round selects a speaker, runs its pipeline and appends the reply.
// The session succeeds when the admin publishes the termination sentinel.
//
// The returned Result is never nil. err is non-nil exactly when the session
// failed or was cancelled.
func Initiate(ctx context.Context, chat *GroupChat, task string, maxRound int, opts ...ManagerOption) (*Result, error) {
	return NewManager(chat, opts...).Initiate(ctx, task, maxRound)
}

func (m *Manager) Initiate(ctx context.Context, task string, maxRound int) (*Result, error) {
	result := &Result{SessionID: uuid.NewString(), State: StateInitialized}

	if maxRound <= 0 {
		err := policyError(fmt.Sprintf("max round must be positive, got %d", maxRound))
		return m.fail(result, err), err
	}
	if !m.chat.turn.TryLock() {
		err := types.NewError(types.ErrChatBusy, "group chat already has an active session")
		result.State = StateFailed
		result.Reason = err.Message
		result.Err = err
		result.Messages = m.chat.History()
		return result, err
	}
	defer m.chat.turn.Unlock()

	start := time.Now()
	ctx = types.WithSessionID(ctx, result.SessionID)
	ctx, span := m.tracer.Start(ctx, "groupchat.initiate", trace.WithAttributes(
		attribute.String("groupchat.session_id", result.SessionID),
		attribute.Int("groupchat.max_round", maxRound),
		attribute.Int("groupchat.members", len(m.chat.members)),
		attribute.String("groupchat.admin", m.chat.admin.Name()),
	))
	defer span.End()

	m.chat.reset()
	result.State = StateRunning
	admin := m.chat.admin.Name()
	logger := m.logger.With(zap.String("session_id", result.SessionID))
	logger.Info("group chat started",
		zap.Int("max_round", maxRound),
		zap.Strings("members", m.chat.MemberNames()))

	defer func() {
		result.Messages = m.chat.History()
		span.SetAttributes(
			attribute.String("groupchat.state", string(result.State)),
			attribute.Int("groupchat.rounds", result.Rounds))
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Reason)
		}
		m.metrics.RecordSession(string(result.State), result.Rounds, time.Since(start))
		logger.Info("group chat ended",
			zap.String("state", string(result.State)),
			zap.String("reason", result.Reason),
			zap.Int("rounds", result.Rounds),
			zap.Duration("duration", time.Since(start)))
	}()

	if err := ctx.Err(); err != nil {
		return m.failRound(result, 1, "", StageReply, err)
	}
	m.chat.append(types.NewUserMessage(task).WithFrom(admin))
	result.Rounds = 1

	for round := 2; round <= maxRound; round++ {
		if err := ctx.Err(); err != nil {
			return m.failRound(result, round, "", StageSelect, err)
		}

		reply, speaker, err := m.runRound(ctx, round)
		if err != nil {
			return m.failRound(result, round, speaker, stageOf(err), err)
		}

		m.chat.append(reply)
		result.Rounds = round

		if reply.IsTerminate() {
			if reply.From == admin {
				result.State = StateSucceeded
				result.Reason = ReasonTerminated
				return result, nil
			}
			logger.Debug("termination sentinel from non-admin ignored",
				zap.Int("round", round), zap.String("agent", reply.From))
		}
	}

	result.State = StateRoundLimitReached
	result.Reason = ReasonRoundLimit
	return result, nil
}

// roundError remembers the manager stage an error happened in.
type roundError struct {
	stage string
	err   error
}

func (e *roundError) Error() string { return e.err.Error() }
func (e *roundError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var re *roundError
	if errors.As(err, &re) {
		return re.stage
	}
	return StageReply
}

func (m *Manager) runRound(ctx context.Context, round int) (types.Message, string, error) {
	ctx, span := m.tracer.Start(ctx, "groupchat.round", trace.WithAttributes(attribute.Int("groupchat.round", round)))
	defer span.End()

	history := m.chat.History()
	ctx = types.WithRound(ctx, round)

	speaker, err := m.selector.SelectNext(ctx, m.chat, history)
	if err != nil {
		span.RecordError(err)
		return types.Message{}, "", &roundError{stage: StageSelect, err: err}
	}
	if speaker == nil {
		return types.Message{}, "", &roundError{stage: StageSelect, err: policyError("selector returned no speaker")}
	}
	name := speaker.Name()
	if _, ok := m.chat.Member(name); !ok {
		return types.Message{}, name, &roundError{stage: StageSelect, err: policyError(fmt.Sprintf("selected %q is not a member", name))}
	}
	span.SetAttributes(attribute.String("groupchat.speaker", name))
	m.logger.Debug("speaker selected", zap.Int("round", round), zap.String("agent", name))

	if err := ctx.Err(); err != nil {
		return types.Message{}, name, &roundError{stage: StageReply, err: err}
	}

	start := time.Now()
	reply, err := speaker.GenerateReply(types.WithAgent(ctx, name), history, m.replyOptions)
	m.metrics.RecordReply(name, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return types.Message{}, name, &roundError{stage: StageReply, err: err}
	}

	switch reply.From {
	case "":
		reply = reply.WithFrom(name)
	case name:
	default:
		return types.Message{}, name, &roundError{stage: StageReply, err: types.NewError(types.ErrInvalidReply,
			fmt.Sprintf("reply claims to be from %q", reply.From))}
	}
	if reply.Role == "" {
		reply.Role = types.RoleAssistant
	}
	if reply.ID == "" {
		reply.ID = types.NewMessage(reply.Role, "").ID
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now()
	}
	return reply, name, nil
}

// failRound converts err into a located types.Error and fails the session.
func (m *Manager) failRound(result *Result, round int, speaker, stage string, err error) (*Result, error) {
	var re *roundError
	if errors.As(err, &re) {
		err = re.err
	}

	located := locate(err, round, speaker, stage)
	if located.Code == types.ErrCancelled {
		result.State = StateFailed
		result.Reason = ReasonCancelled
		result.Err = located
		m.logger.Info("group chat cancelled", zap.Int("round", round))
		return result, located
	}

	m.logger.Warn("group chat failed",
		zap.Int("round", round),
		zap.String("agent", speaker),
		zap.String("stage", located.Stage),
		zap.Error(located))
	return m.fail(result, located), located
}

func (m *Manager) fail(result *Result, err *types.Error) *Result {
	result.State = StateFailed
	result.Reason = err.Error()
	result.Err = err
	if result.Messages == nil {
		result.Messages = m.chat.History()
	}
	return result
}

// locate returns a copy of err as a types.Error carrying round, stage and
// agent. Fields already set by the pipeline are kept.
func locate(err error, round int, speaker, stage string) *types.Error {
	var located types.Error
	switch te, ok := types.AsError(err); {
	case ok:
		located = *te
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		located = types.Error{Code: types.ErrCancelled, Message: "session cancelled", Cause: err}
	case stage == StageReply:
		located = types.Error{Code: types.ErrTransport, Message: "reply failed", Cause: err}
	default:
		located = types.Error{Code: types.ErrPolicyViolation, Message: "speaker selection failed", Cause: err}
	}

	if located.Round == 0 {
		located.Round = round
	}
	if located.Stage == "" {
		located.Stage = stage
	}
	if located.Agent == "" {
		located.Agent = speaker
	}
	return &located
}
