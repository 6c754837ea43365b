// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package groupchat orchestrates a fixed group of agents through sequential
rounds until the admin terminates the session or the round budget runs out.

# Overview

A GroupChat owns the membership, the admin and the shared history. The
history starts with one introduction per member, admin first. A Manager
drives the session:

	round 1        the task is published from the admin
	round 2..max   select speaker -> run its pipeline -> append -> check

The session succeeds only when the admin publishes a message containing
types.TerminateSentinel. The same sentinel from any other member is ignored.

# Speaker selection

  - RoundRobinSelector hands the turn to the member after the last speaker.
  - WorkflowSelector follows Transition hand-offs; several eligible
    candidates are arbitrated by the admin.
  - AdminSelector asks the admin every round.

# Errors

Every failure ends the session in StateFailed with a *types.Error naming
the round, the stage and the agent. Cancellation is reported with code
CANCELLED and reason "cancelled". A second concurrent Initiate on the same
chat fails with CHAT_BUSY.

# Example

	chat, err := groupchat.NewGroupChat(admin, []agent.Agent{admin, coder, runner, reviewer})
	if err != nil {
	    return err
	}
	wf := groupchat.NewWorkflow(
	    groupchat.Handoff("admin", "coder"),
	    groupchat.Handoff("coder", "reviewer"),
	    groupchat.Handoff("reviewer", "runner"),
	    groupchat.When("runner", "admin", groupchat.LastMessageContains("5")),
	)
	result, err := groupchat.Initiate(ctx, chat, "What's the 5th fibonacci number?", 10,
	    groupchat.WithSelector(groupchat.NewWorkflowSelector(wf, nil)))
*/
package groupchat
