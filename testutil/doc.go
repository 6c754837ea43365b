// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供群聊编排测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试与属性测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertMessagesEqual / AssertTranscript / AssertEventuallyTrue
  - 数据工具: Senders / Conversation，简化对话历史构造

# 子包

  - testutil/mocks: MockProvider（llm.Provider），支持 Builder 模式、
    按序脚本回复、调用计数与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithScript(
	    types.Message{Content: "```python\nprint(5)\n```"},
	)
	coder := agent.NewLLMAgent("coder", "write code", provider)
	reply, err := coder.GenerateReply(ctx, history, nil)
*/
package testutil
