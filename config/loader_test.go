// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证会话默认值
	assert.Equal(t, 10, cfg.Chat.MaxRound)
	assert.Equal(t, "workflow", cfg.Chat.Selector)
	assert.Equal(t, "python", cfg.Chat.Language)
	assert.Equal(t, 0, cfg.Chat.HistoryLimit)

	// 验证成员默认值
	assert.Equal(t, "admin", cfg.Agents.Admin.Name)
	assert.Equal(t, "coder", cfg.Agents.Coder.Name)
	assert.Equal(t, "reviewer", cfg.Agents.Reviewer.Name)
	assert.Equal(t, "runner", cfg.Agents.Runner.Name)
	assert.Equal(t, 3, cfg.Agents.Reviewer.MaxAttempts)
	assert.Equal(t, 0.4, cfg.Agents.Coder.Temperature)
	assert.Contains(t, cfg.Agents.Coder.SystemPrompt, "```python")

	// 验证 LLM 默认值
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 10, cfg.Chat.MaxRound)
	assert.Equal(t, "admin", cfg.Agents.Admin.Name)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "groupchat.yaml")

	yamlContent := `
chat:
  task: "What's the 10th fibonacci number?"
  max_round: 20
  selector: admin
  timeout: 2m
  history_limit: 8

agents:
  coder:
    name: "dev"
    temperature: 0.2
  runner:
    work_dir: "/tmp/run"
    timeout: 5s

llm:
  model: "gpt-4o"
  rate_limit: 0.5

log:
  level: "debug"
  output_paths: ["stdout"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, "What's the 10th fibonacci number?", cfg.Chat.Task)
	assert.Equal(t, 20, cfg.Chat.MaxRound)
	assert.Equal(t, "admin", cfg.Chat.Selector)
	assert.Equal(t, 2*time.Minute, cfg.Chat.Timeout)
	assert.Equal(t, 8, cfg.Chat.HistoryLimit)

	assert.Equal(t, "dev", cfg.Agents.Coder.Name)
	assert.Equal(t, 0.2, cfg.Agents.Coder.Temperature)
	assert.Equal(t, "/tmp/run", cfg.Agents.Runner.WorkDir)
	assert.Equal(t, 5*time.Second, cfg.Agents.Runner.Timeout)

	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, "reviewer", cfg.Agents.Reviewer.Name)
	assert.Contains(t, cfg.Agents.Coder.SystemPrompt, "python coder")

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.5, cfg.LLM.RateLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("GROUPCHAT_CHAT_MAX_ROUND", "7")
	t.Setenv("GROUPCHAT_CHAT_TIMEOUT", "45s")
	t.Setenv("GROUPCHAT_CHAT_PRINT_MESSAGES", "false")
	t.Setenv("GROUPCHAT_AGENTS_CODER_TEMPERATURE", "0.9")
	t.Setenv("GROUPCHAT_AGENTS_REVIEWER_MAX_ATTEMPTS", "5")
	t.Setenv("GROUPCHAT_AGENTS_RUNNER_NAME", "executor")
	t.Setenv("GROUPCHAT_LLM_API_KEY", "sk-test")
	t.Setenv("GROUPCHAT_LOG_OUTPUT_PATHS", "stdout, /var/log/chat.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Chat.MaxRound)
	assert.Equal(t, 45*time.Second, cfg.Chat.Timeout)
	assert.False(t, cfg.Chat.PrintMessages)
	assert.Equal(t, 0.9, cfg.Agents.Coder.Temperature)
	assert.Equal(t, 5, cfg.Agents.Reviewer.MaxAttempts)
	assert.Equal(t, "executor", cfg.Agents.Runner.Name)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, []string{"stdout", "/var/log/chat.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "groupchat.yaml")

	yamlContent := `
chat:
  max_round: 20
llm:
  model: "yaml-model"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("GROUPCHAT_LLM_MODEL", "env-model")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Chat.MaxRound)
	assert.Equal(t, "env-model", cfg.LLM.Model)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYCHAT_CHAT_LANGUAGE", "go")
	t.Setenv("GROUPCHAT_CHAT_LANGUAGE", "sh")

	cfg, err := NewLoader().WithEnvPrefix("MYCHAT").Load()
	require.NoError(t, err)
	assert.Equal(t, "go", cfg.Chat.Language)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("GROUPCHAT_CHAT_MAX_ROUND", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROUPCHAT_CHAT_MAX_ROUND")
}

func TestLoader_WithValidator(t *testing.T) {
	cfg, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	t.Setenv("GROUPCHAT_CHAT_SELECTOR", "random")
	_, err = NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/groupchat.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Chat.MaxRound)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("chat: [max_round"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "zero max round", modify: func(c *Config) { c.Chat.MaxRound = 0 }, wantErr: true},
		{name: "unknown selector", modify: func(c *Config) { c.Chat.Selector = "random" }, wantErr: true},
		{name: "round robin selector", modify: func(c *Config) { c.Chat.Selector = "round_robin" }},
		{name: "negative token limit", modify: func(c *Config) { c.Chat.TokenLimit = -1 }, wantErr: true},
		{name: "temperature too high", modify: func(c *Config) { c.Agents.Coder.Temperature = 2.5 }, wantErr: true},
		{name: "duplicate agent names", modify: func(c *Config) { c.Agents.Runner.Name = "coder" }, wantErr: true},
		{name: "empty agent name", modify: func(c *Config) { c.Agents.Reviewer.Name = "" }, wantErr: true},
		{name: "zero review attempts", modify: func(c *Config) { c.Agents.Reviewer.MaxAttempts = 0 }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "trace" }, wantErr: true},
		{name: "metrics without addr", modify: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoad_Success(t *testing.T) {
	cfg := MustLoad("")
	assert.Equal(t, "workflow", cfg.Chat.Selector)
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{{"), 0644))

	assert.Panics(t, func() { MustLoad(configPath) })
}
