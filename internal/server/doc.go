// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理群聊进程附带的指标 HTTP 端点的生命周期。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 生命周期方法。
  - Config：监听地址、读写超时与优雅关闭超时。

# 主要能力

  - MetricsHandler：基于 promhttp 暴露 /metrics，并提供 /healthz。
  - Run：阻塞到 context 结束后优雅关闭，可直接放入 errgroup。
  - 错误传播：Errors() 返回异步错误通道。
*/
package server
