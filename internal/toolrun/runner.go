// Package toolrun invokes external diagnostic programs under a hard timeout
// and hands their raw output back as text.
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the child was
// killed on timeout.
const waitDelay = 2 * time.Second

// Result is the raw outcome of one external program invocation.
type Result struct {
	Stdout   string
	Stderr   string
	Started  bool // the program was launched
	Success  bool // exited with status 0
	TimedOut bool // killed because the timeout elapsed
	Err      error
}

// Combined returns stdout followed by stderr. Tracers write to either
// stream, so parsers are always fed both.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ErrorText describes a failed invocation for a sub-result error field.
// Stderr is preferred because it is what the tool itself reported.
func (r Result) ErrorText() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "command failed"
}

// Runner runs an external program. A zero timeout means no cap beyond ctx.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, argv ...string) Result
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes argv[0] with the remaining arguments. When the timeout fires
// the program's whole process group is killed and the result is marked
// TimedOut; whatever the program wrote before that is still returned.
func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, argv ...string) Result {
	if len(argv) == 0 {
		return Result{Err: errors.New("empty command")}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	//nolint:gosec // This is a diagnostic tool - launching inspection programs is its purpose
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = waitDelay
	isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Started: cmd.Process != nil,
	}

	switch {
	case err == nil:
		res.Success = true
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		reap(cmd)
		res.TimedOut = true
		res.Err = ctx.Err()
	default:
		res.Err = err
	}

	return res
}
