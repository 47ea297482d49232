package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paseo-app/desktopd/internal/shellexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRunner returns a runner backed by a non-login /bin/sh wrapper (so
// the host's /etc/profile cannot reset PATH) and, when script is non-empty,
// installs a fake paseo executable with the given body on PATH.
func newTestRunner(t *testing.T, script string) *shellexec.Runner {
	t.Helper()

	shell := filepath.Join(t.TempDir(), "fakeshell")
	require.NoError(t, os.WriteFile(shell,
		[]byte("#!/bin/sh\nshift\nexec /bin/sh -c \"$1\"\n"), 0755))

	binDir := t.TempDir()
	if script != "" {
		fake := filepath.Join(binDir, "paseo")
		require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	return shellexec.NewRunner(shell)
}

func TestVersion(t *testing.T) {
	runner := newTestRunner(t, `echo "paseo 1.4.2"`)

	result := Version(runner)
	assert.Empty(t, result.Error)
	assert.Equal(t, "paseo 1.4.2", result.Version)
}

func TestVersionEmptyOutput(t *testing.T) {
	runner := newTestRunner(t, "true")

	result := Version(runner)
	assert.Empty(t, result.Version)
	assert.Equal(t, "paseo --version returned empty output", result.Error)
}

func TestVersionFailureUsesStderr(t *testing.T) {
	runner := newTestRunner(t, `echo "daemon not running" >&2; exit 3`)

	result := Version(runner)
	assert.Empty(t, result.Version)
	assert.Equal(t, "daemon not running", result.Error)
}

func TestVersionMissingCLI(t *testing.T) {
	runner := newTestRunner(t, "")
	// Restrict PATH so an installed paseo cannot leak into the test.
	t.Setenv("PATH", t.TempDir())

	result := Version(runner)
	assert.Empty(t, result.Version)
	assert.Contains(t, result.Error, "paseo command not found in PATH")
}

func TestUpdate(t *testing.T) {
	runner := newTestRunner(t, `if [ "$1" = "daemon" ] && [ "$2" = "update" ]; then echo "updated"; else exit 9; fi`)

	result := Update(runner)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "updated\n", result.Stdout)
}

func TestUpdateMissingCLI(t *testing.T) {
	runner := newTestRunner(t, "")
	t.Setenv("PATH", t.TempDir())

	result := Update(runner)
	assert.Equal(t, 127, result.ExitCode)
	assert.Contains(t, result.Stderr, "Ensure Paseo CLI is installed")
}
