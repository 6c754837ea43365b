// =============================================================================
// 📦 群聊配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("groupchat.yaml").
//	    WithEnvPrefix("GROUPCHAT").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是群聊程序的完整配置结构
type Config struct {
	// Chat 会话配置
	Chat ChatConfig `yaml:"chat" env:"CHAT"`

	// Agents 成员配置
	Agents AgentsConfig `yaml:"agents" env:"AGENTS"`

	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ChatConfig 会话配置
type ChatConfig struct {
	// 任务描述
	Task string `yaml:"task" env:"TASK"`
	// 最大轮数（包含任务消息所在的第 1 轮）
	MaxRound int `yaml:"max_round" env:"MAX_ROUND"`
	// 发言人选择策略: workflow, admin, round_robin
	Selector string `yaml:"selector" env:"SELECTOR"`
	// 代码语言
	Language string `yaml:"language" env:"LANGUAGE"`
	// 会话超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每个 LLM 成员可见的最大消息数，0 表示不限制
	HistoryLimit int `yaml:"history_limit" env:"HISTORY_LIMIT"`
	// 每个 LLM 成员可见历史的 Token 上限，0 表示不限制
	TokenLimit int `yaml:"token_limit" env:"TOKEN_LIMIT"`
	// 是否在控制台打印对话
	PrintMessages bool `yaml:"print_messages" env:"PRINT_MESSAGES"`
}

// AgentsConfig 成员配置
type AgentsConfig struct {
	Admin    AgentConfig  `yaml:"admin" env:"ADMIN"`
	Coder    AgentConfig  `yaml:"coder" env:"CODER"`
	Reviewer AgentConfig  `yaml:"reviewer" env:"REVIEWER"`
	Runner   RunnerConfig `yaml:"runner" env:"RUNNER"`
}

// AgentConfig 单个 LLM 成员配置
type AgentConfig struct {
	// 名称（群内唯一）
	Name string `yaml:"name" env:"NAME"`
	// 系统提示词
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	// 自我介绍
	Introduction string `yaml:"introduction" env:"INTRODUCTION"`
	// 模型名称，为空时使用 LLM.Model
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 结构化输出最大尝试次数（仅 reviewer 使用）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
}

// RunnerConfig 代码执行成员配置
type RunnerConfig struct {
	// 名称（群内唯一）
	Name string `yaml:"name" env:"NAME"`
	// 自我介绍
	Introduction string `yaml:"introduction" env:"INTRODUCTION"`
	// 代码工作目录，为空时使用系统临时目录
	WorkDir string `yaml:"work_dir" env:"WORK_DIR"`
	// 单次执行超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider 名称，目前支持 openai
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选，兼容 OpenAI 协议的服务）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 默认模型
	Model string `yaml:"model" env:"MODEL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数上限，0 表示不限制
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 突发请求数
	Burst int `yaml:"burst" env:"BURST"`
	// 可重试错误（429、5xx）的最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用 /metrics 端点
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: "GROUPCHAT"}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段，键名为 前缀_标签 逐级拼接
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}

		key := prefix + "_" + tag
		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		if err := setFieldValue(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 按字段类型解析字符串
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

var (
	validSelectors = map[string]bool{"workflow": true, "admin": true, "round_robin": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Chat.MaxRound <= 0 {
		errs = append(errs, "chat.max_round must be positive")
	}
	if !validSelectors[c.Chat.Selector] {
		errs = append(errs, fmt.Sprintf("unknown chat.selector %q", c.Chat.Selector))
	}
	if c.Chat.HistoryLimit < 0 || c.Chat.TokenLimit < 0 {
		errs = append(errs, "chat history and token limits must not be negative")
	}

	names := map[string]bool{}
	for _, a := range []AgentConfig{c.Agents.Admin, c.Agents.Coder, c.Agents.Reviewer} {
		if a.Temperature < 0 || a.Temperature > 2 {
			errs = append(errs, fmt.Sprintf("agent %q temperature must be between 0 and 2", a.Name))
		}
		names[a.Name] = true
	}
	names[c.Agents.Runner.Name] = true
	if len(names) != 4 || names[""] {
		errs = append(errs, "agent names must be unique and non-empty")
	}
	if c.Agents.Reviewer.MaxAttempts <= 0 {
		errs = append(errs, "agents.reviewer.max_attempts must be positive")
	}

	if c.LLM.RateLimit < 0 {
		errs = append(errs, "llm.rate_limit must not be negative")
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, "llm.max_retries must not be negative")
	}
	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
