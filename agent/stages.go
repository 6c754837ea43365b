package agent

import (
	"context"
	"strings"

	"github.com/BaSui01/groupchat/types"
)

// DefaultFallback is published when a pre-process filter leaves nothing to
// answer.
const DefaultFallback = "No input available."

// FilterFunc selects the part of the history an agent should see.
type FilterFunc func(messages []types.Message) []types.Message

// ShortCircuitFunc may answer a turn on its own. Returning ok=false defers to
// the next stage.
type ShortCircuitFunc func(ctx context.Context, messages []types.Message) (reply types.Message, ok bool, err error)

// TransformFunc rewrites a produced reply.
type TransformFunc func(messages []types.Message, reply types.Message) types.Message

// PreProcess filters the visible history. When the filter returns no
// messages the fallback is published and next is never called.
func PreProcess(fn FilterFunc, fallback string) Middleware {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		visible := fn(types.CloneMessages(messages))
		if len(visible) == 0 {
			return types.NewAssistantMessage(fallback, ""), nil
		}
		return next(ctx, visible, opts)
	}
}

// LastMessageFrom keeps only the most recent message sent by name.
func LastMessageFrom(name string) FilterFunc {
	return func(messages []types.Message) []types.Message {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].From == name {
				return []types.Message{messages[i]}
			}
		}
		return nil
	}
}

// Reply installs a stage that may answer without calling the inner agent.
func Reply(fn ShortCircuitFunc) Middleware {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		reply, ok, err := fn(ctx, messages)
		if err != nil {
			return types.Message{}, err
		}
		if ok {
			return reply, nil
		}
		return next(ctx, messages, opts)
	}
}

// PostProcess transforms the reply produced by the rest of the stack. The
// sender of the reply is kept whatever fn does.
func PostProcess(fn TransformFunc) Middleware {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		reply, err := next(ctx, messages, opts)
		if err != nil {
			return reply, err
		}
		out := fn(messages, reply)
		out.From = reply.From
		return out, nil
	}
}

// AppendTerminate appends the termination sentinel to reply when its content
// mentions keyword. Replies that already carry the sentinel are returned
// as-is.
func AppendTerminate(reply types.Message, keyword string) types.Message {
	if reply.IsTerminate() || !strings.Contains(reply.Content, keyword) {
		return reply
	}
	return reply.WithContent(reply.Content + "\n\n" + types.TerminateSentinel)
}

// TerminateOnKeyword is an idempotent post-processor marking replies that
// mention keyword as termination requests.
func TerminateOnKeyword(keyword string) Middleware {
	return PostProcess(func(_ []types.Message, reply types.Message) types.Message {
		return AppendTerminate(reply, keyword)
	})
}
