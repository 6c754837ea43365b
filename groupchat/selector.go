package groupchat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/types"
)

// SpeakerSelector picks the member that speaks next.
type SpeakerSelector interface {
	SelectNext(ctx context.Context, chat *GroupChat, history []types.Message) (agent.Agent, error)
}

// lastSpeaker returns the sender of the latest message, or the admin for an
// empty history.
func lastSpeaker(chat *GroupChat, history []types.Message) string {
	if len(history) == 0 {
		return chat.Admin().Name()
	}
	return history[len(history)-1].From
}

// RoundRobinSelector hands the turn to the member after the last speaker in
// member order.
type RoundRobinSelector struct{}

func (RoundRobinSelector) SelectNext(_ context.Context, chat *GroupChat, history []types.Message) (agent.Agent, error) {
	members := chat.Members()
	if len(members) == 0 {
		return nil, policyError("no agents available")
	}
	last := lastSpeaker(chat, history)
	for i, m := range members {
		if m.Name() == last {
			return members[(i+1)%len(members)], nil
		}
	}
	return members[0], nil
}

// WorkflowSelector follows a Workflow. A single candidate speaks directly;
// several candidates are arbitrated by the admin.
type WorkflowSelector struct {
	workflow *Workflow
	arbiter  *AdminSelector
}

// NewWorkflowSelector creates a selector over workflow. A nil arbiter means
// the chat admin arbitrates.
func NewWorkflowSelector(workflow *Workflow, arbiter *AdminSelector) *WorkflowSelector {
	if arbiter == nil {
		arbiter = NewAdminSelector(nil)
	}
	return &WorkflowSelector{workflow: workflow, arbiter: arbiter}
}

func (s *WorkflowSelector) SelectNext(ctx context.Context, chat *GroupChat, history []types.Message) (agent.Agent, error) {
	from := lastSpeaker(chat, history)
	candidates := s.workflow.NextCandidates(from, history)
	switch len(candidates) {
	case 0:
		return nil, policyError(fmt.Sprintf("no transition from %q", from))
	case 1:
		m, ok := chat.Member(candidates[0])
		if !ok {
			return nil, policyError(fmt.Sprintf("transition to unknown member %q", candidates[0]))
		}
		return m, nil
	default:
		return s.arbiter.choose(ctx, chat, candidates, history)
	}
}

// AdminSelector consults an arbiter agent, by default the chat admin, with a
// role-play prompt and parses the chosen role from its reply. The selection
// reply is never published to the history.
type AdminSelector struct {
	arbiter agent.Agent
}

// NewAdminSelector creates an admin selector. A nil arbiter means the chat
// admin without its middleware stack, so pre-process filters and print hooks
// never see the selection prompt.
func NewAdminSelector(arbiter agent.Agent) *AdminSelector {
	return &AdminSelector{arbiter: arbiter}
}

// SelectNext lets the arbiter choose among every member except the last
// speaker.
func (s *AdminSelector) SelectNext(ctx context.Context, chat *GroupChat, history []types.Message) (agent.Agent, error) {
	last := lastSpeaker(chat, history)
	names := chat.MemberNames()
	candidates := make([]string, 0, len(names))
	for _, n := range names {
		if n != last || len(names) == 1 {
			candidates = append(candidates, n)
		}
	}
	return s.choose(ctx, chat, candidates, history)
}

func (s *AdminSelector) choose(ctx context.Context, chat *GroupChat, candidates []string, history []types.Message) (agent.Agent, error) {
	arbiter := s.arbiter
	if arbiter == nil {
		arbiter = bareAgent(chat.Admin())
	}

	prompt := SelectionPrompt(candidates, history)
	reply, err := arbiter.GenerateReply(ctx, prompt, &agent.ReplyOptions{Temperature: agent.Temperature(0)})
	if err != nil {
		return nil, err
	}

	name, ok := ParseSelection(reply.Content, candidates)
	if !ok {
		return nil, policyError(fmt.Sprintf("admin chose no valid role from %v: %q", candidates, reply.Content)).
			WithAgent(arbiter.Name())
	}
	m, ok := chat.Member(name)
	if !ok {
		return nil, policyError(fmt.Sprintf("unknown member %q", name))
	}
	return m, nil
}

// bareAgent strips MiddlewareAgent wrappers.
func bareAgent(a agent.Agent) agent.Agent {
	for {
		ma, ok := a.(*agent.MiddlewareAgent)
		if !ok {
			return a
		}
		a = ma.Inner()
	}
}

// SelectionPrompt frames the history as a role-play transcript and asks for
// the next role among candidates.
func SelectionPrompt(candidates []string, history []types.Message) []types.Message {
	roles := strings.Join(candidates, "\n")
	system := types.NewSystemMessage(fmt.Sprintf(`You are in a role play game. Each message in the conversation starts with 'From name:'.
The available roles are:
%s
Read the conversation and decide who speaks next.`, roles))

	msgs := make([]types.Message, 0, len(history)+2)
	msgs = append(msgs, system)
	for _, m := range history {
		if m.From != "" {
			m = m.WithContent(fmt.Sprintf("From %s:\n%s", m.From, m.Content))
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, types.NewUserMessage(fmt.Sprintf(
		"Pick the next role from [%s]. Reply with 'From <role>' only.", strings.Join(candidates, ", "))))
	return msgs
}

var fromPattern = regexp.MustCompile(`(?i)from\s+([^\s:,.]+)`)

// ParseSelection extracts a candidate name from a selection reply. It
// accepts "From name", "From name:" and a bare name.
func ParseSelection(content string, candidates []string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	for _, c := range candidates {
		if strings.EqualFold(trimmed, c) {
			return c, true
		}
	}
	for _, m := range fromPattern.FindAllStringSubmatch(trimmed, -1) {
		for _, c := range candidates {
			if strings.EqualFold(m[1], c) {
				return c, true
			}
		}
	}

	// a reply naming exactly one candidate is accepted
	var found []string
	for _, c := range candidates {
		if containsWord(trimmed, c) {
			found = append(found, c)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}

func containsWord(s, word string) bool {
	re := regexp.MustCompile(`(?i)(^|[^\w])` + regexp.QuoteMeta(word) + `($|[^\w])`)
	return re.MatchString(s)
}
