// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the participants of a group chat and the middleware
pipeline that wraps their reply generation.

# Overview

An Agent is a named participant that turns an ordered history into exactly
one reply:

	type Agent interface {
	    Name() string
	    GenerateReply(ctx context.Context, messages []types.Message, opts *ReplyOptions) (types.Message, error)
	}

Two concrete agents are provided. LLMAgent asks an llm.Provider for the
reply and routes a single function call to a locally registered handler.
DefaultReplyAgent always answers a fixed text and is used as the base of
agents whose behaviour lives entirely in middleware.

# Pipeline

MiddlewareAgent wraps any Agent with an ordered stack of interceptors:

	┌───────────────────────────────────────────┐
	│ PrintMessage / LogMessage   (observation) │
	├───────────────────────────────────────────┤
	│ TerminateOnKeyword / PostProcess          │
	├───────────────────────────────────────────┤
	│ RetryUntilValid / Reply                   │
	├───────────────────────────────────────────┤
	│ PreProcess                                │
	├───────────────────────────────────────────┤
	│ inner Agent                               │
	└───────────────────────────────────────────┘

The last registered middleware runs first:

	runnerAgent := agent.NewMiddlewareAgent(agent.NewDefaultReplyAgent("runner", "..."))
	runnerAgent = runnerAgent.
	    RegisterPreProcess(agent.LastMessageFrom("coder"), "").
	    Use(runner.CodeBlockExecution(executor, "python")).
	    Use(agent.PrintMessage(os.Stdout))

# Structured output

RetryUntilValid re-asks an agent with a clarification prompt until its reply
decodes into the expected payload. The loop is bounded by MaxAttempts
(default 3); exhaustion yields a STRUCTURAL_VALIDATION error. Backend errors
and cancellation are never retried.
*/
package agent
