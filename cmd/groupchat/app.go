package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/groupchat/agent"
	"github.com/BaSui01/groupchat/agent/review"
	"github.com/BaSui01/groupchat/agent/runner"
	"github.com/BaSui01/groupchat/agent/transforms"
	"github.com/BaSui01/groupchat/config"
	"github.com/BaSui01/groupchat/groupchat"
	"github.com/BaSui01/groupchat/internal/metrics"
	"github.com/BaSui01/groupchat/internal/server"
	"github.com/BaSui01/groupchat/internal/telemetry"
	"github.com/BaSui01/groupchat/llm"
	"github.com/BaSui01/groupchat/llm/providers/openai"
	"github.com/BaSui01/groupchat/llm/retry"
	"github.com/BaSui01/groupchat/llm/tokenizer"
)

// shutdownTimeout bounds exporter flushes after the session ends.
const shutdownTimeout = 5 * time.Second

// app wires configuration into one runnable session. provider and executor
// are built from cfg unless set beforehand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	out      io.Writer
	registry *prometheus.Registry

	provider llm.Provider
	executor runner.CodeExecutor
}

func newApp(cfg *config.Config, logger *zap.Logger, out io.Writer) *app {
	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		registry: prometheus.NewRegistry(),
	}
}

// Run executes the configured session. The metrics endpoint, when enabled,
// lives exactly as long as the session.
func (a *app) Run(ctx context.Context) (*groupchat.Result, error) {
	otelProviders, err := telemetry.Init(a.cfg.Telemetry, a.logger, telemetry.WithSession(telemetry.SessionFromConfig(a.cfg)))
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector(a.cfg.Metrics.Namespace, a.registry, a.logger)
	recorders := []groupchat.MetricsRecorder{collector}
	if otelProviders.Enabled() {
		sessionMetrics, err := telemetry.NewSessionMetrics(otelProviders.Meter())
		if err != nil {
			a.logger.Warn("failed to create otel instruments", zap.Error(err))
		} else {
			recorders = append(recorders, sessionMetrics)
		}
	}

	provider := a.provider
	if provider == nil {
		provider = openai.New(openai.Config{
			APIKey:  a.cfg.LLM.APIKey,
			BaseURL: a.cfg.LLM.BaseURL,
			Model:   a.cfg.LLM.Model,
		}, a.logger)
	}
	provider = llm.Wrap(provider, a.providerChain(provider.Name(), collector))

	executor := a.executor
	if executor == nil {
		executor = runner.NewCommandExecutor(a.cfg.Agents.Runner.WorkDir, a.cfg.Agents.Runner.Timeout)
	}

	chat, selector, err := buildGroup(a.cfg, provider, executor, a.transcript(), a.logger)
	if err != nil {
		return nil, err
	}

	manager := groupchat.NewManager(chat,
		groupchat.WithSelector(selector),
		groupchat.WithLogger(a.logger),
		groupchat.WithMetrics(metrics.Fanout(recorders...)),
		groupchat.WithTracer(otelProviders.Tracer()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.cfg.Metrics.Enabled {
		srv := server.NewManager(server.MetricsHandler(a.registry), server.Config{
			Addr:            a.cfg.Metrics.Addr,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: shutdownTimeout,
		}, a.logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	var result *groupchat.Result
	g.Go(func() error {
		defer cancel()
		var err error
		result, err = manager.Initiate(gctx, a.cfg.Chat.Task, a.cfg.Chat.MaxRound)
		return err
	})

	err = g.Wait()
	return result, err
}

func (a *app) transcript() io.Writer {
	if a.cfg.Chat.PrintMessages {
		return a.out
	}
	return nil
}

// providerChain assembles the llm middleware stack. Recovery is outermost so
// a panicking backend surfaces as a transport error. Each retry attempt goes
// through metrics, the rate limiter and its own timeout.
func (a *app) providerChain(name string, collector llm.MetricsCollector) *llm.Chain {
	chain := llm.NewChain(
		llm.RecoveryMiddleware(func(r any) {
			a.logger.Error("provider panicked", zap.Any("panic", r))
		}),
		llm.LoggingMiddleware(a.logger),
	)
	if a.cfg.LLM.MaxRetries > 0 {
		policy := retry.DefaultPolicy()
		policy.MaxRetries = a.cfg.LLM.MaxRetries
		chain.Use(retry.Middleware(policy, a.logger))
	}
	chain.Use(llm.MetricsMiddleware(name, collector))
	if a.cfg.LLM.RateLimit > 0 {
		burst := a.cfg.LLM.Burst
		if burst < 1 {
			burst = 1
		}
		chain.Use(llm.RateLimitMiddleware(rate.NewLimiter(rate.Limit(a.cfg.LLM.RateLimit), burst)))
	}
	if a.cfg.LLM.Timeout > 0 {
		chain.Use(llm.TimeoutMiddleware(a.cfg.LLM.Timeout))
	}
	return chain
}

// =============================================================================
// 👥 成员组装
// =============================================================================

// buildGroup assembles admin, coder, reviewer and runner from cfg and picks
// the speaker selector. out may be nil to disable transcript printing.
func buildGroup(cfg *config.Config, provider llm.Provider, executor runner.CodeExecutor, out io.Writer, logger *zap.Logger) (*groupchat.GroupChat, groupchat.SpeakerSelector, error) {
	ac := cfg.Agents
	language := cfg.Chat.Language

	visible, err := historyTransforms(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	decorate := func(a *agent.MiddlewareAgent) *agent.MiddlewareAgent {
		a = a.Use(agent.LogMessage(logger))
		if out != nil {
			a = a.Use(agent.PrintMessage(out))
		}
		return a
	}

	newLLMAgent := func(c config.AgentConfig) *agent.LLMAgent {
		opts := []agent.LLMAgentOption{
			agent.WithTemperature(float32(c.Temperature)),
			agent.WithLogger(logger),
		}
		if c.Model != "" {
			opts = append(opts, agent.WithModel(c.Model))
		}
		return agent.NewLLMAgent(c.Name, c.SystemPrompt, provider, opts...)
	}
	llmAgent := func(c config.AgentConfig) *agent.MiddlewareAgent {
		a := agent.NewMiddlewareAgent(newLLMAgent(c))
		if len(visible) > 0 {
			a = a.Use(transforms.Middleware(visible...))
		}
		return a
	}

	admin := decorate(llmAgent(ac.Admin).Use(agent.TerminateOnKeyword("TERMINATE")))
	coder := decorate(llmAgent(ac.Coder))

	reviewerOpts := []review.Option{
		review.WithName(ac.Reviewer.Name),
		review.WithLanguage(language),
		review.WithTemperature(float32(ac.Reviewer.Temperature)),
		review.WithMaxAttempts(ac.Reviewer.MaxAttempts),
		review.WithLogger(logger),
	}
	if ac.Reviewer.SystemPrompt != "" {
		reviewerOpts = append(reviewerOpts, review.WithSystemPrompt(ac.Reviewer.SystemPrompt))
	}
	if out != nil {
		reviewerOpts = append(reviewerOpts, review.WithOutput(out))
	}
	reviewer := review.NewReviewer(provider, reviewerOpts...)

	codeRunner := decorate(agent.NewMiddlewareAgent(agent.NewDefaultReplyAgent(ac.Runner.Name, "No code available.")).
		Use(runner.CodeBlockExecution(executor, language, runner.WithLogger(logger))).
		RegisterPreProcess(agent.LastMessageFrom(ac.Coder.Name),
			fmt.Sprintf("No code available. %s please write code", ac.Coder.Name)))

	chat, err := groupchat.NewGroupChat(admin,
		[]agent.Agent{admin, coder, codeRunner, reviewer},
		groupchat.WithIntroduction(ac.Admin.Name, ac.Admin.Introduction),
		groupchat.WithIntroduction(ac.Coder.Name, ac.Coder.Introduction),
		groupchat.WithIntroduction(ac.Reviewer.Name, ac.Reviewer.Introduction),
		groupchat.WithIntroduction(ac.Runner.Name, ac.Runner.Introduction),
	)
	if err != nil {
		return nil, nil, err
	}

	// Speaker selection talks to a bare admin so that arbitration replies
	// never reach the transcript or the history limiters.
	arbiter := groupchat.NewAdminSelector(newLLMAgent(ac.Admin))

	var selector groupchat.SpeakerSelector
	switch cfg.Chat.Selector {
	case "admin":
		selector = arbiter
	case "round_robin":
		selector = groupchat.RoundRobinSelector{}
	default:
		wf := codingWorkflow(ac)
		if err := wf.Validate(chat); err != nil {
			return nil, nil, err
		}
		selector = groupchat.NewWorkflowSelector(wf, arbiter)
	}
	return chat, selector, nil
}

// codingWorkflow routes review verdicts; after a run the admin arbitrates
// between asking coder for a fix and closing the task.
func codingWorkflow(ac config.AgentsConfig) *groupchat.Workflow {
	approved := groupchat.LastMessageContains(review.ApprovalMarker)
	return groupchat.NewWorkflow(
		groupchat.Handoff(ac.Admin.Name, ac.Coder.Name),
		groupchat.Handoff(ac.Coder.Name, ac.Reviewer.Name),
		groupchat.When(ac.Reviewer.Name, ac.Runner.Name, approved),
		groupchat.When(ac.Reviewer.Name, ac.Coder.Name, groupchat.Not(approved)),
		groupchat.Handoff(ac.Runner.Name, ac.Coder.Name),
		groupchat.Handoff(ac.Runner.Name, ac.Admin.Name),
	)
}

// historyTransforms returns the limiters shared by the LLM-backed members.
func historyTransforms(cfg *config.Config, logger *zap.Logger) ([]transforms.Transform, error) {
	var out []transforms.Transform
	if cfg.Chat.HistoryLimit > 0 {
		l, err := transforms.NewMessageHistoryLimiter(cfg.Chat.HistoryLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if cfg.Chat.TokenLimit > 0 {
		tokenizer.RegisterOpenAITokenizers()
		l, err := transforms.NewMessageTokenLimiter(0, cfg.Chat.TokenLimit,
			tokenizer.GetTokenizerOrEstimator(cfg.LLM.Model), transforms.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
