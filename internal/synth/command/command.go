// Package command runs the external executables behind the local synthesis
// engines.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrCommandFailed is returned when the executable exits unsuccessfully.
var ErrCommandFailed = errors.New("command failed")

const (
	// maxOutputInError caps how much of the combined output ends up in an error.
	maxOutputInError = 2048
	// waitDelay bounds how long Wait blocks on output pipes after the process
	// was killed by the context.
	waitDelay = 5 * time.Second
)

// Command describes one invocation of an external executable.
type Command struct {
	Path  string
	Args  []string
	Stdin string
	// Env entries are appended to the current process environment.
	Env []string
}

// Runner executes commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// LookPathFunc has the signature of exec.LookPath.
type LookPathFunc func(file string) (string, error)

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts the command, feeds Stdin, waits for it and returns the combined
// stdout and stderr.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	// #nosec G204 -- the executable comes from configuration, arguments are passed without a shell
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = waitDelay

	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("%s: %w", c.Path, ctxErr)
		}

		return output, fmt.Errorf("%w: %s: %w - output: %s",
			ErrCommandFailed, c.Path, err, truncate(output))
	}

	return output, nil
}

func truncate(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > maxOutputInError {
		return "..." + s[len(s)-maxOutputInError:]
	}

	return s
}
