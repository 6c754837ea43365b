package groupchat

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/types"
)

// funcAgent answers through a function of the visible history.
type funcAgent struct {
	name string
	fn   func(ctx context.Context, history []types.Message) (types.Message, error)

	mu    sync.Mutex
	calls int
}

func newFuncAgent(name string, fn func(ctx context.Context, history []types.Message) (types.Message, error)) *funcAgent {
	return &funcAgent{name: name, fn: fn}
}

// say creates an agent that always answers text.
func say(name, text string) *funcAgent {
	return newFuncAgent(name, func(context.Context, []types.Message) (types.Message, error) {
		return types.Message{Role: types.RoleAssistant, Content: text}, nil
	})
}

func (a *funcAgent) Name() string { return a.name }

func (a *funcAgent) GenerateReply(ctx context.Context, history []types.Message, _ *agent.ReplyOptions) (types.Message, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.fn(ctx, history)
}

func (a *funcAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func mustChat(admin agent.Agent, members ...agent.Agent) *GroupChat {
	chat, err := NewGroupChat(admin, members)
	if err != nil {
		panic(err)
	}
	return chat
}

type recordingMetrics struct {
	mu       sync.Mutex
	replies  map[string]int
	failures int
	sessions []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{replies: make(map[string]int)}
}

func (r *recordingMetrics) RecordReply(agentName string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[agentName]++
	if !success {
		r.failures++
	}
}

func (r *recordingMetrics) RecordSession(state string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, state)
}
