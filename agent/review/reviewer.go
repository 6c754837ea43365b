package review

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/types"
)

// Options configures a reviewer agent.
type Options struct {
	Name         string
	Language     string
	SystemPrompt string
	Temperature  float32
	MaxAttempts  int
	Output       io.Writer
	Logger       *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithName sets the reviewer name. Default "reviewer".
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithLanguage sets the expected code language. Default "python".
func WithLanguage(language string) Option {
	return func(o *Options) { o.Language = language }
}

// WithSystemPrompt overrides the reviewer instruction.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) { o.SystemPrompt = prompt }
}

// WithTemperature sets the sampling temperature. Default 0.
func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = t }
}

// WithMaxAttempts bounds structured retries.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithOutput prints every review to w.
func WithOutput(w io.Writer) Option {
	return func(o *Options) { o.Output = w }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// NewReviewer assembles a reviewing agent: an LLM agent that must answer
// through ReviewCodeBlock, wrapped in a bounded retry whose verdict is
// rendered with Feedback.
func NewReviewer(provider llm.Provider, opts ...Option) *agent.MiddlewareAgent {
	o := Options{
		Name:        "reviewer",
		Language:    "python",
		MaxAttempts: agent.DefaultMaxAttempts,
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = fmt.Sprintf("You review %s code blocks from coder. Always answer by calling %s.", o.Language, FunctionName)
	}
	logger := o.Logger.With(zap.String("component", "reviewer"), zap.String("agent", o.Name))

	inner := agent.NewLLMAgent(o.Name, o.SystemPrompt, provider,
		agent.WithTemperature(o.Temperature),
		agent.WithFunction(ReviewCodeBlockFunction(o.Language), ReviewCodeBlockHandler),
		agent.WithLogger(o.Logger))

	language := o.Language
	reviewer := agent.NewMiddlewareAgent(inner, agent.RetryUntilValid(o.Name, agent.StructuredConfig[CodeReviewResult]{
		MaxAttempts:  o.MaxAttempts,
		FunctionName: FunctionName,
		Decode:       agent.DecodeFunctionCall[CodeReviewResult](FunctionName),
		Render: func(result CodeReviewResult) types.Message {
			return types.Message{Role: types.RoleAssistant, Content: Feedback(result, language)}
		},
		OnAttempt: func(at agent.Attempt[CodeReviewResult]) {
			logger.Debug("review attempt",
				zap.Int("attempt", at.Number),
				zap.Stringer("outcome", at.Outcome),
				zap.String("reason", at.Reason))
		},
	}))

	reviewer = reviewer.Use(agent.LogMessage(logger))
	if o.Output != nil {
		reviewer = reviewer.Use(agent.PrintMessage(o.Output))
	}
	return reviewer
}
