// =============================================================================
// GroupChat 主入口
// =============================================================================
// 运行一次多成员协作会话：admin 发布任务，coder 写代码，reviewer 审查，
// runner 执行，直到 admin 宣布结束或达到轮数上限。
//
// 使用方法:
//
//	groupchat run                                  # 使用默认配置运行
//	groupchat run --config groupchat.yaml          # 指定配置文件
//	groupchat run --task "..." --max-round 12      # 覆盖任务与轮数
//	groupchat version                              # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/groupchat/config"
	"github.com/BaSui01/groupchat/groupchat"
	"github.com/BaSui01/groupchat/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runChat(os.Args[2:]))
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 💬 run 命令
// =============================================================================

func runChat(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	task := fs.String("task", "", "Task for the group (overrides chat.task)")
	maxRound := fs.Int("max-round", 0, "Round limit (overrides chat.max_round)")
	_ = fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *task != "" {
		cfg.Chat.Task = *task
	}
	if *maxRound > 0 {
		cfg.Chat.MaxRound = *maxRound
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting GroupChat",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Chat.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Chat.Timeout)
		defer cancel()
	}

	result, err := newApp(cfg, logger, os.Stdout).Run(ctx)
	if result != nil {
		fmt.Printf("\nsession %s after %d rounds", result.State, result.Rounds)
		if result.Reason != "" {
			fmt.Printf(" (%s)", result.Reason)
		}
		fmt.Println()
	}
	if err != nil {
		if types.IsCancellation(err) {
			logger.Warn("group chat interrupted", zap.Error(err))
		} else {
			logger.Error("group chat failed", zap.Error(err))
		}
		return 1
	}
	if result.State != groupchat.StateSucceeded {
		return 2
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("GroupChat %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`GroupChat - multi-agent conversation runner

Usage:
  groupchat <command> [options]

Commands:
  run       Run one group chat session
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>     Path to configuration file (YAML)
  --task <text>       Task posted by the admin
  --max-round <n>     Round limit, the task counts as round 1

Environment:
  GROUPCHAT_LLM_API_KEY, GROUPCHAT_LLM_MODEL, GROUPCHAT_CHAT_SELECTOR, ...

Exit codes:
  0  admin terminated the session
  1  configuration or runtime failure
  2  round limit reached`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
