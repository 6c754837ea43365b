// Package retry 为 LLM 后端调用提供指数退避重试。
//
// 只有 types.Error 标记为 Retryable 的传输错误（如 429、5xx）才会重试；
// 取消与其他错误立即返回。Middleware 可直接挂到 llm.Chain 上。
package retry
