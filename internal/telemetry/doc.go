// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为群聊提供集中式的 TracerProvider 和 MeterProvider 配置，
// 并通过 SessionMetrics 以 OTel 指标记录会话与成员回复。
// Session（成员、选择器、轮次上限、模型）作为 Resource 属性附加到
// 本次运行的所有 span 与指标上。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
