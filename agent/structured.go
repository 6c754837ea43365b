package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BaSui01/groupchat/types"
)

// DefaultMaxAttempts bounds structured retries.
const DefaultMaxAttempts = 3

// Outcome tags a structured attempt.
type Outcome int

const (
	// OutcomeValid means the reply decoded into the expected payload.
	OutcomeValid Outcome = iota
	// OutcomeInvalid means the reply did not match the expected shape.
	OutcomeInvalid
	// OutcomeFatal means the loop stopped without a valid payload.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt is the tagged result of one structured attempt, or of the whole
// loop when returned by RunStructured.
type Attempt[T any] struct {
	Number  int
	Outcome Outcome
	Value   T
	Reason  string
	Reply   types.Message
}

// Decoder extracts a typed payload from a reply.
type Decoder[T any] func(reply types.Message) (T, error)

// StructuredConfig configures RetryUntilValid.
type StructuredConfig[T any] struct {
	// MaxAttempts is the number of backend calls allowed. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int
	// FunctionName names the expected function in clarification prompts.
	FunctionName string
	Decode       Decoder[T]
	// Clarify builds the prompt asking the agent to reformat content.
	// Defaults to ClarificationPrompt.
	Clarify func(functionName, content string) string
	// Render maps a valid payload to the published message. Defaults to
	// the reply carrying the payload.
	Render func(value T) types.Message
	// OnAttempt observes each attempt.
	OnAttempt func(attempt Attempt[T])
}

// ClarificationPrompt asks an agent to turn its previous answer into the
// arguments of functionName.
func ClarificationPrompt(functionName, content string) string {
	return fmt.Sprintf("Please convert the content to %s function arguments.\n\n## Original Content\n%s", functionName, content)
}

func (c StructuredConfig[T]) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c StructuredConfig[T]) clarify(content string) string {
	if c.Clarify != nil {
		return c.Clarify(c.FunctionName, content)
	}
	return ClarificationPrompt(c.FunctionName, content)
}

// RunStructured calls next until its reply decodes or the attempt bound is
// reached. Backend errors and cancellation end the loop immediately.
func RunStructured[T any](ctx context.Context, agentName string, cfg StructuredConfig[T], messages []types.Message, opts *ReplyOptions, next ReplyFunc) (Attempt[T], error) {
	maxAttempts := cfg.maxAttempts()
	request := messages
	var last Attempt[T]

	for n := 1; n <= maxAttempts; n++ {
		if err := checkContext(ctx, agentName, StageValidate); err != nil {
			return Attempt[T]{Number: n, Outcome: OutcomeFatal, Reason: "cancelled"}, err
		}

		reply, err := next(ctx, request, opts)
		if err != nil {
			return Attempt[T]{Number: n, Outcome: OutcomeFatal, Reason: err.Error()}, err
		}

		value, decodeErr := cfg.Decode(reply)
		if decodeErr == nil {
			last = Attempt[T]{Number: n, Outcome: OutcomeValid, Value: value, Reply: reply}
			if cfg.OnAttempt != nil {
				cfg.OnAttempt(last)
			}
			return last, nil
		}

		last = Attempt[T]{Number: n, Outcome: OutcomeInvalid, Reason: decodeErr.Error(), Reply: reply}
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(last)
		}

		request = append(types.CloneMessages(messages), types.NewUserMessage(cfg.clarify(reply.Content)))
	}

	last.Outcome = OutcomeFatal
	err := types.NewError(types.ErrStructuralValidation,
		fmt.Sprintf("no valid %s payload after %d attempts", cfg.FunctionName, maxAttempts)).
		WithAgent(agentName).
		WithStage(StageValidate).
		WithCause(fmt.Errorf("%s", last.Reason))
	return last, err
}

// RetryUntilValid is a middleware that only lets a structurally valid reply
// through, re-asking the agent with a clarification prompt when it is not.
func RetryUntilValid[T any](agentName string, cfg StructuredConfig[T]) Middleware {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		attempt, err := RunStructured(ctx, agentName, cfg, messages, opts, next)
		if err != nil {
			return types.Message{}, err
		}
		if cfg.Render != nil {
			return cfg.Render(attempt.Value), nil
		}
		return attempt.Reply.WithStructured(attempt.Value), nil
	}
}

// DecodeFunctionCall decodes the arguments of the single call to name. It
// accepts a reply whose call was already routed to a handler (Structured
// holds a types.FunctionResult) as well as an unrouted reply with exactly
// one tool call.
func DecodeFunctionCall[T any](name string) Decoder[T] {
	return func(reply types.Message) (T, error) {
		var zero T

		if fr, ok := reply.Structured.(types.FunctionResult); ok {
			if fr.Name != name {
				return zero, fmt.Errorf("unexpected function %q", fr.Name)
			}
			if fr.IsError() {
				return zero, fmt.Errorf("function %s failed: %s", name, fr.Error)
			}
			var v T
			if err := json.Unmarshal([]byte(fr.Result), &v); err != nil {
				return zero, fmt.Errorf("decode %s result: %w", name, err)
			}
			return v, nil
		}

		switch len(reply.ToolCalls) {
		case 0:
			return zero, fmt.Errorf("reply has no call to %s", name)
		case 1:
		default:
			return zero, fmt.Errorf("reply has %d function calls, expected one", len(reply.ToolCalls))
		}

		call := reply.ToolCalls[0]
		if call.Name != name {
			return zero, fmt.Errorf("unexpected function %q", call.Name)
		}
		var v T
		if err := json.Unmarshal(call.Arguments, &v); err != nil {
			return zero, fmt.Errorf("decode %s arguments: %w", name, err)
		}
		return v, nil
	}
}
