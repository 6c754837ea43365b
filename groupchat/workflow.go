package groupchat

import (
	"fmt"
	"strings"

	"github.com/BaSui01/groupchat/types"
)

// Condition decides whether a transition may fire given the history so far.
type Condition func(history []types.Message) bool

// Transition allows To to speak after From. A nil When always allows it.
type Transition struct {
	From string
	To   string
	When Condition
}

// Handoff is an unconditional transition.
func Handoff(from, to string) Transition {
	return Transition{From: from, To: to}
}

// When is a conditional transition.
func When(from, to string, cond Condition) Transition {
	return Transition{From: from, To: to, When: cond}
}

// LastMessageContains fires when the latest message contains substr.
func LastMessageContains(substr string) Condition {
	return func(history []types.Message) bool {
		if len(history) == 0 {
			return false
		}
		return strings.Contains(history[len(history)-1].Content, substr)
	}
}

// Not negates a condition.
func Not(cond Condition) Condition {
	return func(history []types.Message) bool { return !cond(history) }
}

// Workflow is the set of allowed speaker hand-offs.
type Workflow struct {
	transitions []Transition
}

// NewWorkflow creates a workflow from transitions.
func NewWorkflow(transitions ...Transition) *Workflow {
	return &Workflow{transitions: append([]Transition(nil), transitions...)}
}

// Add registers more transitions.
func (w *Workflow) Add(transitions ...Transition) *Workflow {
	w.transitions = append(w.transitions, transitions...)
	return w
}

// Transitions returns a copy of the registered transitions.
func (w *Workflow) Transitions() []Transition {
	return append([]Transition(nil), w.transitions...)
}

// NextCandidates returns the members allowed to speak after from, in
// registration order and without duplicates.
func (w *Workflow) NextCandidates(from string, history []types.Message) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range w.transitions {
		if t.From != from || seen[t.To] {
			continue
		}
		if t.When != nil && !t.When(history) {
			continue
		}
		seen[t.To] = true
		out = append(out, t.To)
	}
	return out
}

// Validate checks that every transition names members of chat.
func (w *Workflow) Validate(chat *GroupChat) error {
	for _, t := range w.transitions {
		for _, name := range []string{t.From, t.To} {
			if _, ok := chat.Member(name); !ok {
				return policyError(fmt.Sprintf("workflow references unknown member %q", name))
			}
		}
	}
	return nil
}
