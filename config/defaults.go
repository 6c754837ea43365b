// =============================================================================
// 📦 群聊默认配置
// =============================================================================
// 提供所有配置项的合理默认值，默认成员与斐波那契示例一致
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Chat:      DefaultChatConfig(),
		Agents:    DefaultAgentsConfig(),
		LLM:       DefaultLLMConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultChatConfig 返回默认会话配置
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Task:          "What's the 5th fibonacci number?",
		MaxRound:      10,
		Selector:      "workflow",
		Language:      "python",
		Timeout:       10 * time.Minute,
		PrintMessages: true,
	}
}

// DefaultAgentsConfig 返回默认成员配置
func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{
		Admin: AgentConfig{
			Name:         "admin",
			SystemPrompt: "You are group admin, terminate the group chat once task is completed by saying TERMINATE plus the final answer",
			Introduction: "Welcome to my group, work together to resolve my task",
			Temperature:  0,
		},
		Coder: AgentConfig{
			Name: "coder",
			SystemPrompt: `You act as python coder, you write python code to resolve task. Once you finish writing code, ask runner to run the code for you.

Here're some rules to follow on writing python code:
- put code between ` + "```python and ```" + `
- Use top level statements.
- Always print out the result to console. Don't write code that doesn't print out anything.

If your code is incorrect, runner will tell you the error message. Fix the error and send the code again.`,
			Introduction: "I will write python code to resolve task",
			Temperature:  0.4,
		},
		Reviewer: AgentConfig{
			Name:         "reviewer",
			SystemPrompt: "You review code block from coder",
			Introduction: "I will review python code",
			Temperature:  0,
			MaxAttempts:  3,
		},
		Runner: RunnerConfig{
			Name:         "runner",
			Introduction: "I will run python code once the review is done",
			Timeout:      30 * time.Second,
		},
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		Timeout:    60 * time.Second,
		RateLimit:  2,
		Burst:      4,
		MaxRetries: 2,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "groupchat",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "groupchat",
	}
}
