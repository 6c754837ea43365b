// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的群聊指标采集能力，覆盖
会话、成员回复与 LLM 调用三个维度。

# 概述

Collector 通过 promauto.With 注册到调用方传入的 Registry，
测试中可使用独立 Registry 互不干扰。它同时满足
groupchat.MetricsRecorder 与 llm.MetricsCollector 两个接口，
由 cmd/groupchat 挂载到管理器与 LLM 中间件链上。

# 主要能力

  - 会话指标：按最终状态计数，记录耗时与轮数分布。
  - 成员回复指标：按成员与成败计数，记录回复耗时。
  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - Fanout：把会话指标同时分发到多个记录器，例如 Prometheus 与 OTel。
*/
package metrics
