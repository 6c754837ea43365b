package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/groupchat/testutil/mocks"
	"github.com/BaSui01/groupchat/types"
)

type verdict struct {
	OK bool `json:"ok"`
}

func verdictSchema() types.FunctionSchema {
	return types.FunctionSchema{
		Name:       "Verdict",
		Parameters: []byte(`{"type":"object","properties":{"ok":{"type":"boolean"}},"required":["ok"]}`),
	}
}

func verdictHandler(_ context.Context, args string) (string, error) {
	var v verdict
	if err := json.Unmarshal([]byte(args), &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	return string(out), err
}

func newValidatingAgent(provider *mocks.MockProvider, maxAttempts int, observe func(Attempt[verdict])) *MiddlewareAgent {
	inner := NewLLMAgent("reviewer", "review code", provider, WithFunction(verdictSchema(), verdictHandler))
	return NewMiddlewareAgent(inner, RetryUntilValid("reviewer", StructuredConfig[verdict]{
		MaxAttempts:  maxAttempts,
		FunctionName: "Verdict",
		Decode:       DecodeFunctionCall[verdict]("Verdict"),
		Render: func(v verdict) types.Message {
			if v.OK {
				return types.Message{Content: "approved"}
			}
			return types.Message{Content: "rejected"}
		},
		OnAttempt: observe,
	}))
}

func TestRetryUntilValid_AlwaysInvalidCallsBackendExactlyBound(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProvider().WithResponse("looks good to me")
	a := newValidatingAgent(provider, 0, nil)

	_, err := a.GenerateReply(context.Background(), []types.Message{types.NewAssistantMessage("print(5)", "coder")}, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrStructuralValidation))
	assert.Equal(t, DefaultMaxAttempts, provider.CallCount())

	typed, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "reviewer", typed.Agent)
	assert.Equal(t, StageValidate, typed.Stage)
}

func TestProperty_RetryBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bound := rapid.IntRange(1, 8).Draw(t, "bound")
		provider := mocks.NewMockProvider().WithResponse(rapid.String().Draw(t, "content"))

		var outcomes []Outcome
		a := newValidatingAgent(provider, bound, func(at Attempt[verdict]) { outcomes = append(outcomes, at.Outcome) })

		_, err := a.GenerateReply(context.Background(), nil, nil)
		if !types.IsErrorCode(err, types.ErrStructuralValidation) {
			t.Fatalf("expected structural validation error, got %v", err)
		}
		if provider.CallCount() != bound {
			t.Fatalf("expected %d backend calls, got %d", bound, provider.CallCount())
		}
		for _, o := range outcomes {
			if o != OutcomeInvalid {
				t.Fatalf("unexpected outcome %s", o)
			}
		}
	})
}

func TestRetryUntilValid_ClarifiesThenSucceeds(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProvider().WithScript(
		types.Message{Content: "the code is fine"},
		types.Message{ToolCalls: []types.ToolCall{{ID: "1", Name: "Verdict", Arguments: []byte(`{"ok":true}`)}}},
	)
	var attempts []Attempt[verdict]
	a := newValidatingAgent(provider, 3, func(at Attempt[verdict]) { attempts = append(attempts, at) })

	history := []types.Message{types.NewAssistantMessage("print(5)", "coder")}
	reply, err := a.GenerateReply(context.Background(), history, nil)
	require.NoError(t, err)
	assert.Equal(t, "approved", reply.Content)
	assert.Equal(t, "reviewer", reply.From)
	assert.Equal(t, 2, provider.CallCount())

	require.Len(t, attempts, 2)
	assert.Equal(t, OutcomeInvalid, attempts[0].Outcome)
	assert.Equal(t, OutcomeValid, attempts[1].Outcome)
	assert.Equal(t, 2, attempts[1].Number)

	calls := provider.Calls()
	second := calls[1].Request.Messages
	last := second[len(second)-1]
	assert.Equal(t, types.RoleUser, last.Role)
	assert.Equal(t, ClarificationPrompt("Verdict", "the code is fine"), last.Content)
	// system prompt, the coder message and the clarification
	assert.Len(t, second, 3)
}

func TestRetryUntilValid_MultipleCallsAreInvalid(t *testing.T) {
	t.Parallel()

	twoCalls := types.Message{ToolCalls: []types.ToolCall{
		{ID: "1", Name: "Verdict", Arguments: []byte(`{"ok":true}`)},
		{ID: "2", Name: "Verdict", Arguments: []byte(`{"ok":false}`)},
	}}
	provider := mocks.NewMockProvider().WithScript(twoCalls, twoCalls, twoCalls)
	a := newValidatingAgent(provider, 3, nil)

	_, err := a.GenerateReply(context.Background(), nil, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrStructuralValidation))
	assert.Equal(t, 3, provider.CallCount())
}

func TestRetryUntilValid_TransportErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProvider().WithError(errors.New("503 service unavailable"))
	a := newValidatingAgent(provider, 3, nil)

	_, err := a.GenerateReply(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
	assert.Equal(t, 1, provider.CallCount())
}

func TestRetryUntilValid_StopsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := mocks.NewMockProvider().WithResponse("not structured")
	a := newValidatingAgent(provider, 3, func(Attempt[verdict]) { cancel() })

	_, err := a.GenerateReply(ctx, nil, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCancelled))
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStructured_ReturnsTaggedOutcome(t *testing.T) {
	t.Parallel()

	next := func(context.Context, []types.Message, *ReplyOptions) (types.Message, error) {
		return types.Message{Content: "free text"}, nil
	}
	cfg := StructuredConfig[verdict]{MaxAttempts: 2, FunctionName: "Verdict", Decode: DecodeFunctionCall[verdict]("Verdict")}

	attempt, err := RunStructured(context.Background(), "reviewer", cfg, nil, nil, next)
	require.Error(t, err)
	assert.Equal(t, OutcomeFatal, attempt.Outcome)
	assert.Equal(t, 2, attempt.Number)
	assert.NotEmpty(t, attempt.Reason)
	assert.Equal(t, "fatal", attempt.Outcome.String())
}

func TestDecodeFunctionCall(t *testing.T) {
	t.Parallel()

	decode := DecodeFunctionCall[verdict]("Verdict")

	v, err := decode(types.Message{Structured: types.FunctionResult{Name: "Verdict", Result: `{"ok":true}`}})
	require.NoError(t, err)
	assert.True(t, v.OK)

	v, err = decode(types.Message{ToolCalls: []types.ToolCall{{Name: "Verdict", Arguments: []byte(`{"ok":false}`)}}})
	require.NoError(t, err)
	assert.False(t, v.OK)

	_, err = decode(types.Message{Structured: types.FunctionResult{Name: "Verdict", Error: "boom"}})
	assert.Error(t, err)

	_, err = decode(types.Message{ToolCalls: []types.ToolCall{{Name: "Other", Arguments: []byte(`{}`)}}})
	assert.Error(t, err)

	_, err = decode(types.Message{Content: "plain"})
	assert.Error(t, err)
}
