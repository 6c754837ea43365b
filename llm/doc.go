// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义群聊成员与回复生成后端之间的边界。

# 概述

成员只依赖 [Provider] 接口：给定 [ChatRequest]，返回完整的 [ChatResponse]
或错误。本包不假设任何延迟特性，也不做流式输出。

# 核心类型

  - [Provider]：后端接口，提供 Name / Completion。
  - [ChatRequest] / [ChatResponse] / [ChatUsage]：请求与响应模型，
    Temperature 为指针以区分"未设置"与显式 0。
  - [Chain] / [Middleware] / [Handler]：洋葱式中间件链，[Wrap] 把链
    套在任意 Provider 外层。

# 内置中间件

  - [LoggingMiddleware]：记录模型、消息数、耗时，附带上下文中的成员与轮次。
  - [TimeoutMiddleware]：单次请求超时。
  - [RecoveryMiddleware]：把后端 panic 转成 TRANSPORT 错误。
  - [RateLimitMiddleware]：基于 golang.org/x/time/rate 的限流，等待可被取消。
  - [MetricsMiddleware]：向 [MetricsCollector] 上报请求与 Token 用量。

# 子包

  - providers/openai：基于 go-openai 的兼容实现。
  - retry：可重试传输错误的指数退避。
  - tokenizer：tiktoken 分词与估算器，供历史裁剪使用。
*/
package llm
