package agent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/types"
)

var (
	senderColor  = color.New(color.FgCyan, color.Bold)
	contentColor = color.New(color.FgWhite)
	callColor    = color.New(color.FgYellow)
)

// PrintMessage writes every reply to w. It never alters the reply.
func PrintMessage(w io.Writer) Middleware {
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		reply, err := next(ctx, messages, opts)
		if err != nil {
			return reply, err
		}
		FormatMessage(w, reply)
		return reply, nil
	}
}

// FormatMessage renders m in the console transcript format.
func FormatMessage(w io.Writer, m types.Message) {
	from := m.From
	if from == "" {
		from = string(m.Role)
	}
	senderColor.Fprintf(w, "from: %s\n", from)
	if m.Content != "" {
		contentColor.Fprintln(w, m.Content)
	}
	for _, call := range m.ToolCalls {
		callColor.Fprintf(w, "call: %s(%s)\n", call.Name, string(call.Arguments))
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))
}

// LogMessage logs every reply at debug level. It never alters the reply.
func LogMessage(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, messages []types.Message, opts *ReplyOptions, next ReplyFunc) (types.Message, error) {
		reply, err := next(ctx, messages, opts)
		if err != nil {
			logger.Warn("reply failed", zap.Error(err), zap.Int("visible", len(messages)))
			return reply, err
		}
		logger.Debug("reply",
			zap.String("from", reply.From),
			zap.String("id", reply.ID),
			zap.Int("content_len", len(reply.Content)),
			zap.Int("tool_calls", len(reply.ToolCalls)),
			zap.Bool("terminate", reply.IsTerminate()))
		return reply, nil
	}
}
