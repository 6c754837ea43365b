// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供群聊程序入口。

# 概述

cmd/groupchat 从 YAML 与环境变量加载配置，组装 admin、coder、reviewer、
runner 四个成员，并运行一次会话直到 admin 宣布结束或达到轮数上限。

# 主要能力

  - 子命令：run（运行会话）、version、help
  - LLM 中间件链：Recovery、Logging、Metrics、RateLimit、Timeout
  - 发言人选择：workflow（默认，多候选时由 admin 仲裁）、admin、round_robin
  - 可见历史裁剪：按消息数或 Token 数限制 LLM 成员看到的历史
  - 指标：Prometheus /metrics 端点与会话同生命周期，由 errgroup 管理
  - 遥测：OTLP gRPC 导出会话与轮次 Span
  - 优雅退出：SIGINT/SIGTERM 取消会话
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
