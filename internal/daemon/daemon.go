// Package daemon wraps the locally installed Paseo CLI for version checks
// and self-updates. The CLI is resolved through the user's login shell so
// PATH additions from shell profiles are honored.
package daemon

import (
	"fmt"
	"strings"

	"github.com/paseo-app/desktopd/internal/shellexec"
)

// versionScript probes for the paseo binary before invoking it so a missing
// install produces a clear message and exit code 127 instead of a shell
// "command not found" line.
const versionScript = `if command -v paseo >/dev/null 2>&1; then
  paseo --version
else
  echo "paseo command not found in PATH" >&2
  exit 127
fi`

const updateScript = `if command -v paseo >/dev/null 2>&1; then
  paseo daemon update
else
  echo "paseo command not found in PATH. Ensure Paseo CLI is installed for this user." >&2
  exit 127
fi`

// VersionResult reports the locally installed daemon version, or why it
// could not be determined. Exactly one of Version and Error is set.
type VersionResult struct {
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Version runs `paseo --version` through the login shell and returns the
// trimmed output. Failures are reported in the result, never as a Go error:
// a missing CLI is an answer, not a fault.
func Version(runner *shellexec.Runner) VersionResult {
	result := runner.Run(versionScript)

	if result.ExitCode != 0 {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("paseo --version exited with code %d", result.ExitCode)
		}
		return VersionResult{Error: msg}
	}

	version := strings.TrimSpace(result.Stdout)
	if version == "" {
		return VersionResult{Error: "paseo --version returned empty output"}
	}
	return VersionResult{Version: version}
}

// Update runs `paseo daemon update` through the login shell and returns the
// raw command result so the UI can surface the CLI's own output.
func Update(runner *shellexec.Runner) shellexec.Result {
	return runner.Run(updateScript)
}
