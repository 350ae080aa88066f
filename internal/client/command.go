package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// Runner executes an external status command and returns its standard output
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// ExecutionKind classifies why a command execution failed
type ExecutionKind int

const (
	// ExecutionFailed means the process could not be spawned
	ExecutionFailed ExecutionKind = iota
	// NonZeroExit means the process exited with a nonzero status
	NonZeroExit
	// TerminatedBySignal means the process was killed by a signal
	TerminatedBySignal
	// InvalidOutput means stdout was not valid UTF-8 text
	InvalidOutput
)

func (k ExecutionKind) String() string {
	switch k {
	case ExecutionFailed:
		return "execution failed"
	case NonZeroExit:
		return "nonzero exit"
	case TerminatedBySignal:
		return "terminated by signal"
	case InvalidOutput:
		return "invalid output"
	default:
		return fmt.Sprintf("ExecutionKind(%d)", int(k))
	}
}

// ExecutionError is returned by CommandRunner when the command does not produce usable output
type ExecutionError struct {
	Kind     ExecutionKind
	Command  string
	ExitCode int // valid for NonZeroExit
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Command, e.Kind)
	if e.Kind == NonZeroExit {
		msg = fmt.Sprintf("%s (code %d)", msg, e.ExitCode)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s, stderr: %s", msg, e.Stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is matches another *ExecutionError by Kind, so errors.Is(err, &ExecutionError{Kind: NonZeroExit}) works
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Command == "" || t.Command == e.Command)
}

// Sentinels for errors.Is
var (
	ErrExecutionFailed    = &ExecutionError{Kind: ExecutionFailed}
	ErrNonZeroExit        = &ExecutionError{Kind: NonZeroExit}
	ErrTerminatedBySignal = &ExecutionError{Kind: TerminatedBySignal}
	ErrInvalidOutput      = &ExecutionError{Kind: InvalidOutput}
)

// CommandRunner runs a fixed executable with fixed arguments. Arguments are passed
// straight to the process, never through a shell.
type CommandRunner struct {
	command string
	args    []string
	timeout time.Duration
}

// NewCommandRunner creates a runner for command with args. A zero timeout means the
// command may run for as long as the caller's context allows.
func NewCommandRunner(command string, args []string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{
		command: command,
		args:    append([]string(nil), args...),
		timeout: timeout,
	}
}

// NewVcgencmdRunner creates a runner for `<vcgencmd> get_throttled`
func NewVcgencmdRunner(vcgencmd string, timeout time.Duration) *CommandRunner {
	return NewCommandRunner(vcgencmd, []string{"get_throttled"}, timeout)
}

// String returns the command line for logging
func (r *CommandRunner) String() string {
	return strings.Join(append([]string{r.command}, r.args...), " ")
}

// Run spawns the command once and returns its stdout
func (r *CommandRunner) Run(ctx context.Context) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", &ExecutionError{Kind: ExecutionFailed, Command: r.command, Err: err}
		}

		// ExitCode is -1 when the process was terminated by a signal
		if code := exitErr.ExitCode(); code != -1 {
			return "", &ExecutionError{
				Kind:     NonZeroExit,
				Command:  r.command,
				ExitCode: code,
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", &ExecutionError{
			Kind:    TerminatedBySignal,
			Command: r.command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", &ExecutionError{Kind: InvalidOutput, Command: r.command}
	}

	return stdout.String(), nil
}
