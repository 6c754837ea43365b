package agent

import (
	"context"

	"github.com/BaSui01/groupchat/types"
)

// FunctionHandler executes a declared function locally. arguments is the raw
// JSON argument object chosen by the backend.
type FunctionHandler func(ctx context.Context, arguments string) (string, error)

// FunctionCall routes a reply's single function call to its registered
// handler and substitutes the handler result as the reply content. Replies
// with zero or several calls, or an unknown function name, pass through
// unchanged; a structured validation stage treats those as invalid.
func FunctionCall(functionMap map[string]FunctionHandler) Middleware {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		reply, err := next(ctx, messages, opts)
		if err != nil {
			return reply, err
		}
		return routeFunctionCall(ctx, reply, functionMap), nil
	}
}

func routeFunctionCall(ctx context.Context, reply types.Message, functionMap map[string]FunctionHandler) types.Message {
	if len(reply.ToolCalls) != 1 {
		return reply
	}
	call := reply.ToolCalls[0]
	handler, ok := functionMap[call.Name]
	if !ok {
		return reply
	}

	result := types.FunctionResult{ToolCallID: call.ID, Name: call.Name}
	out, err := handler(ctx, string(call.Arguments))
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Result = out
	}
	return reply.WithContent(result.Content()).WithStructured(result)
}
