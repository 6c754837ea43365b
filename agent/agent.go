package agent

import (
	"context"

	"github.com/BaSui01/groupchat/types"
)

// ReplyOptions tunes a single reply. A nil *ReplyOptions means "agent
// defaults".
type ReplyOptions struct {
	Temperature *float32
	MaxTokens   int
	Stop        []string
	Functions   []types.FunctionSchema
}

// Agent is a named participant that produces one message per turn.
// Implementations must not mutate the messages they are given.
type Agent interface {
	// Name returns the agent's name, unique within a group chat.
	Name() string
	// GenerateReply produces one reply for the ordered history.
	GenerateReply(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error)
}

// ReplyFunc is the GenerateReply capability as a value. It is the "next"
// stage handed to a Middleware.
type ReplyFunc func(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error)

// Temperature returns a pointer to t, for use in ReplyOptions.
func Temperature(t float32) *float32 {
	return &t
}

// checkContext converts a done context into a cancellation error. Called
// before every suspension point.
func checkContext(ctx context.Context, agentName, stage string) error {
	if err := ctx.Err(); err != nil {
		return types.NewError(types.ErrCancelled, "context done").
			WithAgent(agentName).
			WithStage(stage).
			WithCause(err)
	}
	return nil
}

// DefaultReplyAgent always answers with a fixed text. It is the base of
// agents whose behaviour lives entirely in middleware (e.g. a code runner).
type DefaultReplyAgent struct {
	name  string
	reply string
}

// NewDefaultReplyAgent creates an agent that replies with reply.
func NewDefaultReplyAgent(name, reply string) *DefaultReplyAgent {
	return &DefaultReplyAgent{name: name, reply: reply}
}

func (a *DefaultReplyAgent) Name() string { return a.name }

func (a *DefaultReplyAgent) GenerateReply(ctx context.Context, _ []types.Message, _ *ReplyOptions) (types.Message, error) {
	if err := checkContext(ctx, a.name, StageGenerate); err != nil {
		return types.Message{}, err
	}
	return types.NewAssistantMessage(a.reply, a.name), nil
}
