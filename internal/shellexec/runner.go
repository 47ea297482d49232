// Package shellexec runs scripts through the user's login shell.
//
// The desktop backend shells out for anything that must see the user's real
// PATH and profile (the Paseo CLI lives wherever the user's shell config
// put it), so scripts run via `$SHELL -lc` rather than a bare exec.
package shellexec

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultShell is used when $SHELL is unset or empty.
const DefaultShell = "/bin/zsh"

// Result is the outcome of a shell command. Spawn failures are reported
// in-band (ExitCode -1, message in Stderr) so callers never have to
// distinguish "could not start" from "started and failed".
type Result struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Runner executes scripts through a login shell.
type Runner struct {
	Shell string
}

// NewRunner creates a runner for the given shell. An empty shell falls back
// to the user's login shell.
func NewRunner(shell string) *Runner {
	if shell == "" {
		shell = ResolveLoginShell()
	}
	return &Runner{Shell: shell}
}

// ResolveLoginShell returns the user's login shell from $SHELL, trimmed,
// falling back to DefaultShell.
func ResolveLoginShell() string {
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell == "" {
		return DefaultShell
	}
	return shell
}

// Run executes script via `<shell> -lc <script>` and blocks until it exits.
func (r *Runner) Run(script string) Result {
	cmd := exec.Command(r.Shell, "-lc", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The shell never started; report in-band.
			result.ExitCode = -1
			result.Stderr = "failed to run command: " + err.Error()
		}
	}

	log.Debug().Str("shell", r.Shell).Int("exit_code", result.ExitCode).
		Msg("login shell command finished")
	return result
}
