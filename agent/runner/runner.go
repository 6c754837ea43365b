package runner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/types"
)

// CodeExecutor runs a block of code and returns its console output.
type CodeExecutor interface {
	Execute(ctx context.Context, language, code string) (string, error)
}

// ExecutorFunc adapts a function to CodeExecutor.
type ExecutorFunc func(ctx context.Context, language, code string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, language, code string) (string, error) {
	return f(ctx, language, code)
}

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+#-]*)[ \t]*\r?\n(.*?)```")

// CodeBlock is one fenced block found in a message.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns every fenced block in content, in order.
func ExtractCodeBlocks(content string) []CodeBlock {
	matches := fencePattern.FindAllStringSubmatch(content, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, CodeBlock{Language: strings.ToLower(m[1]), Code: m[2]})
	}
	return blocks
}

// ExtractCodeBlock returns the first block tagged with language.
func ExtractCodeBlock(content, language string) (string, bool) {
	language = strings.ToLower(language)
	for _, b := range ExtractCodeBlocks(content) {
		if b.Language == language {
			return b.Code, true
		}
	}
	return "", false
}

// Option configures CodeBlockExecution.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the execution logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// CodeBlockExecution runs the most recent code block of language found in
// the visible history and publishes its output. Without a block the turn is
// deferred to next.
func CodeBlockExecution(executor CodeExecutor, language string, opts ...Option) agent.Middleware {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(zap.String("component", "code_runner"), zap.String("language", language))

	return func(ctx context.Context, messages []types.Message, replyOpts *agent.ReplyOptions, next agent.ReplyFunc) (types.Message, error) {
		code, ok := lastCodeBlock(messages, language)
		if !ok {
			return next(ctx, messages, replyOpts)
		}
		if err := ctx.Err(); err != nil {
			return types.Message{}, types.NewError(types.ErrCancelled, "context done").
				WithStage("execute").
				WithCause(err)
		}

		output, err := executor.Execute(ctx, language, code)
		if err != nil {
			if ctx.Err() != nil {
				return types.Message{}, types.NewError(types.ErrCancelled, "execution cancelled").
					WithStage("execute").
					WithCause(ctx.Err())
			}
			logger.Info("code block failed", zap.Error(err))
			return types.NewAssistantMessage(formatFailure(output, err), ""), nil
		}

		logger.Debug("code block executed", zap.Int("output_len", len(output)))
		return types.NewAssistantMessage(output, ""), nil
	}
}

func lastCodeBlock(messages []types.Message, language string) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if code, ok := ExtractCodeBlock(messages[i].Content, language); ok {
			return code, true
		}
	}
	return "", false
}

func formatFailure(output string, err error) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Error: %v\n%s", err, output)
}
