package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Command describes how to run a source file of one language.
type Command struct {
	Args      []string
	Extension string
}

// DefaultCommands maps languages to local interpreters.
var DefaultCommands = map[string]Command{
	"python": {Args: []string{"python3"}, Extension: ".py"},
	"sh":     {Args: []string{"sh"}, Extension: ".sh"},
	"bash":   {Args: []string{"bash"}, Extension: ".sh"},
	"go":     {Args: []string{"go", "run"}, Extension: ".go"},
}

// CommandExecutor runs code through a local interpreter. It offers no
// isolation and is meant for demos.
type CommandExecutor struct {
	WorkDir  string
	Timeout  time.Duration
	Commands map[string]Command
}

// NewCommandExecutor creates an executor writing sources into workDir.
func NewCommandExecutor(workDir string, timeout time.Duration) *CommandExecutor {
	return &CommandExecutor{WorkDir: workDir, Timeout: timeout, Commands: DefaultCommands}
}

// Execute writes code to a temporary file and runs it. Stdout and stderr are
// returned together.
func (e *CommandExecutor) Execute(ctx context.Context, language, code string) (string, error) {
	cmdSpec, ok := e.Commands[language]
	if !ok || len(cmdSpec.Args) == 0 {
		return "", fmt.Errorf("no interpreter configured for %q", language)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(e.WorkDir, "run-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "main"+cmdSpec.Extension)
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	args := append(append([]string(nil), cmdSpec.Args[1:]...), file)
	cmd := exec.CommandContext(ctx, cmdSpec.Args[0], args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s: %w", language, err)
	}
	return out.String(), nil
}
