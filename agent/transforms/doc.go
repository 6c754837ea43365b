/*
Package transforms 提供对智能体可见历史的变换。

HistoryLimiter 只保留最近的 N 条消息；TokenLimiter 先按单条上限截断
每条消息，再从最新消息向前累计，超过总预算时丢弃该条及更早的消息。
两者都可以通过 Filter 作为 agent.PreProcess 的过滤函数使用，
也可以通过 Middleware 组合进管道。
*/
package transforms
