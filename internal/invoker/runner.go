package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// stderrTailBytes caps how much of a failed command's stderr is kept for reporting.
	stderrTailBytes = 4 * 1024
	// waitDelay bounds how long output pipes may stay open after the process is killed.
	waitDelay = 2 * time.Second
)

// Command is an external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for messages and logs.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t\"") {
			parts[i] = fmt.Sprintf("%q", p)
		}
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of one attempt.
type Result struct {
	Succeeded bool
	ExitInfo  string
	TimedOut  bool
	Stderr    string
}

// Runner runs a command once within timeout.
type Runner interface {
	Run(ctx context.Context, cmd Command, timeout time.Duration) Result
}

// ExecRunner runs commands with os/exec. Stdout is streamed to Stdout when set.
// Stderr is streamed to Stderr when set; otherwise its tail is kept in the
// Result for failure reports.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, cmd Command, timeout time.Duration) Result {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(cctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	tail := &tailBuffer{limit: stderrTailBytes}
	c.Stdout = r.Stdout
	c.Stderr = tail
	if r.Stderr != nil {
		c.Stderr = r.Stderr
	}

	logrus.Debugf("exec: %s", cmd)
	err := c.Run()
	switch {
	case err == nil:
		return Result{Succeeded: true}
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return Result{TimedOut: true, ExitInfo: fmt.Sprintf("timed out after %s", timeout), Stderr: tail.String()}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitInfo: fmt.Sprintf("exit status %d", exitErr.ExitCode()), Stderr: tail.String()}
		}
		return Result{ExitInfo: err.Error(), Stderr: tail.String()}
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
