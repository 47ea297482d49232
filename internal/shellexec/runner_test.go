package shellexec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoginShell writes a shell that accepts the `-lc <script>` calling
// convention but skips profile sourcing, so tests are not affected by the
// host's /etc/profile.
func fakeLoginShell(t *testing.T) string {
	t.Helper()
	shell := filepath.Join(t.TempDir(), "fakeshell")
	script := "#!/bin/sh\nshift\nexec /bin/sh -c \"$1\"\n"
	require.NoError(t, os.WriteFile(shell, []byte(script), 0755))
	return shell
}

func TestResolveLoginShell(t *testing.T) {
	t.Setenv("SHELL", "/bin/bash")
	assert.Equal(t, "/bin/bash", ResolveLoginShell())

	t.Setenv("SHELL", "  /usr/bin/fish  ")
	assert.Equal(t, "/usr/bin/fish", ResolveLoginShell())

	t.Setenv("SHELL", "")
	assert.Equal(t, DefaultShell, ResolveLoginShell())

	t.Setenv("SHELL", "   ")
	assert.Equal(t, DefaultShell, ResolveLoginShell())
}

func TestNewRunnerFallsBackToLoginShell(t *testing.T) {
	t.Setenv("SHELL", "/bin/bash")
	assert.Equal(t, "/bin/bash", NewRunner("").Shell)
	assert.Equal(t, "/bin/sh", NewRunner("/bin/sh").Shell)
}

func TestRunCapturesOutput(t *testing.T) {
	r := NewRunner(fakeLoginShell(t))

	result := r.Run("echo out; echo err >&2")
	require.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestRunReportsExitCode(t *testing.T) {
	r := NewRunner(fakeLoginShell(t))

	result := r.Run("exit 127")
	assert.Equal(t, 127, result.ExitCode)
}

func TestRunSpawnFailureIsInBand(t *testing.T) {
	r := &Runner{Shell: "/nonexistent/shell"}

	result := r.Run("echo hi")
	assert.Equal(t, -1, result.ExitCode)
	assert.Empty(t, result.Stdout)
	assert.Contains(t, result.Stderr, "failed to run command")
}
