// Package config 提供群聊程序的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，
// 环境变量键名由前缀与 env 标签逐级拼接，例如 GROUPCHAT_CHAT_MAX_ROUND、
// GROUPCHAT_AGENTS_CODER_TEMPERATURE。
package config
