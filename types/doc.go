// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 groupchat 框架的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、llm、groupchat
等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Message          ：对话消息（Role、Content、From、ToolCalls、Structured）
  - ToolCall         ：回复中请求的函数调用
  - FunctionSchema   ：可调用函数声明（name + description + JSON Schema）
  - FunctionResult   ：本地函数处理结果
  - Error / ErrorCode：结构化错误体系，记录 Agent、Stage、Round

# 主要能力

  - 终止标记：TerminateSentinel 通过子串包含判断（Message.IsTerminate）
  - 错误工具链：AsError / IsErrorCode / IsRetryable / IsCancellation
  - Context 传播：WithSessionID / WithRound / WithAgent
*/
package types
