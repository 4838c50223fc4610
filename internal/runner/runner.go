package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Command is a single tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is the complete environment of the process. Name is resolved
	// against the PATH found here, not the PATH of the orchestrator.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Output captures the result of a command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, cmd Command) (*Output, error)

// Run calls f(ctx, cmd).
func (f Func) Run(ctx context.Context, cmd Command) (*Output, error) { return f(ctx, cmd) }

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Exec runs commands as child processes.
type Exec struct {
	// Stdout and Stderr receive a live copy of the output; defaults to io.Discard.
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts cmd and waits for it. A non-zero exit returns the captured
// output together with an *ExitError.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Output, error) {
	bin, err := LookPath(cmd.Name, cmd.Env)
	if err != nil {
		return nil, err
	}

	c := exec.CommandContext(ctx, bin, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	stdout := e.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = io.MultiWriter(stdout, &stdoutBuf)
	c.Stderr = io.MultiWriter(stderr, &stderrBuf)

	err = c.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			output.ExitCode = exitErr.ExitCode()
			return output, &ExitError{Command: cmd.Name, ExitCode: output.ExitCode, Stderr: output.Stderr}
		}
		if ctx.Err() != nil {
			return output, fmt.Errorf("running %s: %w", cmd.Name, ctx.Err())
		}
		return output, fmt.Errorf("running %s: %w", cmd.Name, err)
	}

	return output, nil
}

// LookPath resolves name against the PATH entry of env. Names containing a
// path separator are only checked for existence.
func LookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}

	for _, dir := range filepath.SplitList(Getenv(env, "PATH")) {
		if dir == "" {
			dir = "."
		}
		for _, candidate := range candidates(filepath.Join(dir, name)) {
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s not found in job search path: %w", name, exec.ErrNotFound)
}

func candidates(path string) []string {
	if runtime.GOOS != "windows" || filepath.Ext(path) != "" {
		return []string{path}
	}
	return []string{path + ".exe", path + ".cmd", path + ".bat", path}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
