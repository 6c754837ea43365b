package groupchat

import (
	"fmt"
	"sync"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/types"
)

// GroupChat holds the members of one conversation and its shared history.
// The history is append-only while a session runs and is only written by
// the Manager that holds the chat's turn token.
type GroupChat struct {
	admin   agent.Agent
	members []agent.Agent
	byName  map[string]agent.Agent
	intros  []types.Message

	mu      sync.RWMutex
	history []types.Message

	// turn is held by the Manager for the whole session.
	turn sync.Mutex
}

// Option configures a GroupChat.
type Option func(*chatOptions)

type chatOptions struct {
	intros map[string]string
}

// WithIntroduction sets the self-introduction a member publishes before the
// first round.
func WithIntroduction(name, text string) Option {
	return func(o *chatOptions) { o.intros[name] = text }
}

// DefaultIntroduction is used for members without an explicit introduction.
func DefaultIntroduction(name string) string {
	return fmt.Sprintf("Hello, I'm %s.", name)
}

// NewGroupChat validates membership and seeds the history with one
// introduction per member, admin first, then the remaining members in order.
func NewGroupChat(admin agent.Agent, members []agent.Agent, opts ...Option) (*GroupChat, error) {
	o := chatOptions{intros: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}

	if admin == nil {
		return nil, policyError("group chat needs an admin")
	}
	if len(members) == 0 {
		return nil, policyError("group chat needs members")
	}

	byName := make(map[string]agent.Agent, len(members))
	for _, m := range members {
		if m == nil || m.Name() == "" {
			return nil, policyError("member without a name")
		}
		if _, dup := byName[m.Name()]; dup {
			return nil, policyError(fmt.Sprintf("duplicate member %q", m.Name()))
		}
		byName[m.Name()] = m
	}
	if _, ok := byName[admin.Name()]; !ok {
		return nil, policyError(fmt.Sprintf("admin %q is not a member", admin.Name()))
	}
	for name := range o.intros {
		if _, ok := byName[name]; !ok {
			return nil, policyError(fmt.Sprintf("introduction for unknown member %q", name))
		}
	}

	ordered := make([]agent.Agent, 0, len(members))
	ordered = append(ordered, byName[admin.Name()])
	for _, m := range members {
		if m.Name() != admin.Name() {
			ordered = append(ordered, m)
		}
	}

	intros := make([]types.Message, 0, len(ordered))
	for _, m := range ordered {
		text, ok := o.intros[m.Name()]
		if !ok {
			text = DefaultIntroduction(m.Name())
		}
		intros = append(intros, types.NewAssistantMessage(text, m.Name()))
	}

	c := &GroupChat{
		admin:   byName[admin.Name()],
		members: append([]agent.Agent(nil), members...),
		byName:  byName,
		intros:  intros,
	}
	c.history = types.CloneMessages(intros)
	return c, nil
}

func policyError(msg string) *types.Error {
	return types.NewError(types.ErrPolicyViolation, msg)
}

// Admin returns the distinguished admin agent.
func (c *GroupChat) Admin() agent.Agent { return c.admin }

// Members returns the members in their configured order.
func (c *GroupChat) Members() []agent.Agent {
	return append([]agent.Agent(nil), c.members...)
}

// MemberNames returns the member names in their configured order.
func (c *GroupChat) MemberNames() []string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.Name()
	}
	return names
}

// Member looks a member up by name.
func (c *GroupChat) Member(name string) (agent.Agent, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// History returns a copy of the shared history.
func (c *GroupChat) History() []types.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CloneMessages(c.history)
}

// Len returns the number of messages in the history.
func (c *GroupChat) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Introductions returns the seed messages.
func (c *GroupChat) Introductions() []types.Message {
	return types.CloneMessages(c.intros)
}

func (c *GroupChat) append(m types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
}

// reset starts a new session from the introductions.
func (c *GroupChat) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = types.CloneMessages(c.intros)
}
