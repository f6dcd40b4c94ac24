// Package shell provides the command executor adapter.
package shell

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// tailLimit bounds the captured diagnostic output attached to a failed command.
const tailLimit = 4096

var _ ports.CommandExecutor = (*Executor)(nil)

// Executor implements ports.CommandExecutor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Run executes the command with the specified environment.
// It merges environments with the following priority (low to high):
//  1. os.Environ() (system base)
//  2. env (hermetic environment, PATH prepended)
//  3. cmd.Env (stage-level overrides)
//
// Output streams to the vertex recorded in ctx when present, falling back to
// the logger; the stderr tail is attached to the returned error.
func (e *Executor) Run(ctx context.Context, command *domain.Command, env []string) error {
	if len(command.Argv) == 0 {
		return nil
	}

	name := command.Argv[0]
	args := command.Argv[1:]

	cmdEnv := resolveEnvironment(os.Environ(), env, command.Env)

	// Resolve the executable against the merged PATH so hermetic tools win.
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // stage-declared command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = command.Dir
	cmd.Env = cmdEnv

	stdout, stderr := e.outputWriters(ctx)
	tail := &tailBuffer{limit: tailLimit}
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}

		cmdErr := zerr.With(zerr.Wrap(err, "command failed"), "command", name)
		cmdErr = zerr.With(cmdErr, "exit_code", exitCode)
		return zerr.With(cmdErr, "stderr", tail.String())
	}

	return nil
}

// outputWriters picks the destination for command output: the stage's
// telemetry vertex when one is recorded in the context, otherwise the logger.
func (e *Executor) outputWriters(ctx context.Context) (io.Writer, io.Writer) {
	if vtx, ok := ports.VertexFromContext(ctx); ok {
		return vtx.Stdout(), vtx.Stderr()
	}
	info := &logWriter{logger: e.logger, level: "info"}
	errw := &logWriter{logger: e.logger, level: "error"}
	return info, errw
}

type logWriter struct {
	logger ports.Logger
	level  string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if w.level == "info" {
			w.logger.Info(line)
		} else {
			w.logger.Error(zerr.New(line))
		}
	}
	return len(p), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}

// resolveEnvironment merges environment variables with the defined priority.
func resolveEnvironment(sysEnv, hermeticEnv []string, cmdEnv map[string]string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			envMap[k] = v
		}
	}

	for _, entry := range hermeticEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath, exists := envMap["PATH"]; exists && sysPath != "" {
				envMap[k] = v + string(os.PathListSeparator) + sysPath
			} else {
				envMap[k] = v
			}
		} else {
			envMap[k] = v
		}
	}

	for k, v := range cmdEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env, mirroring exec.LookPath against a caller-supplied environment.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
