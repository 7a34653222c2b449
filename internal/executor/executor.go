// Package executor runs privileged shell commands and returns
// structured results. It is the only package that touches the
// privileged subsystem; every failure is captured into the result,
// never returned as a Go error.
package executor

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Result is the outcome of one privileged execution. Ownership
// transfers fully to the caller.
type Result struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Error   string `json:"error,omitempty"`
}

// Runner executes a single-line command within the given context's
// deadline.
type Runner interface {
	Execute(ctx context.Context, command string) Result
}

// DefaultTimeout applies when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// previewLen caps how much of a command appears in diagnostic logs so
// embedded secrets never land there in full.
const previewLen = 80

// PowerShell runs commands through a PowerShell binary.
type PowerShell struct {
	bin  string
	args []string
}

// NewPowerShell creates a runner for the given binary. With no
// arguments it defaults to pwsh with a non-interactive profile-less
// invocation.
func NewPowerShell(bin string, args ...string) *PowerShell {
	if bin == "" {
		bin = "pwsh"
	}
	if len(args) == 0 {
		args = []string{"-NoProfile", "-NonInteractive", "-Command"}
	}
	return &PowerShell{bin: bin, args: args}
}

// Execute runs command and captures its output. The command is
// normalized to a single line before it reaches the shell. On timeout
// or failure the partial output is preserved in the result.
func (p *PowerShell) Execute(ctx context.Context, command string) Result {
	command = Normalize(command)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.args...), command)
	cmd := exec.CommandContext(ctx, p.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.Error = "execution timed out"
	case err != nil:
		result.Error = err.Error()
	default:
		result.Success = true
	}

	log.Printf("[executor] %s | ok=%v | %v", Preview(command), result.Success, elapsed.Round(time.Millisecond))
	return result
}

// Normalize collapses line endings so the command is a single line
// suitable for -Command embedding.
func Normalize(command string) string {
	command = strings.ReplaceAll(command, "\r\n", "\n")
	command = strings.ReplaceAll(command, "\r", "\n")
	command = strings.ReplaceAll(command, "\n", "; ")
	return strings.TrimSpace(command)
}

// Quote wraps s in PowerShell single quotes, doubling embedded quotes
// so user-supplied names cannot break out of the literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Preview truncates a command for diagnostic logging.
func Preview(command string) string {
	runes := []rune(command)
	if len(runes) <= previewLen {
		return command
	}
	return string(runes[:previewLen]) + "..."
}
