package control

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paseo-app/desktopd/internal/attachments"
	"github.com/paseo-app/desktopd/internal/shellexec"
	"github.com/paseo-app/desktopd/internal/update"
	"github.com/paseo-app/desktopd/internal/zoom"
)

// fakeShell returns a shell whose -lc invocation runs the script with plain
// /bin/sh, keeping host login profiles out of the tests.
func fakeShell(t *testing.T) string {
	t.Helper()
	shell := filepath.Join(t.TempDir(), "fake-shell")
	script := "#!/bin/sh\nshift\nexec /bin/sh -c \"$1\"\n"
	require.NoError(t, os.WriteFile(shell, []byte(script), 0755))
	return shell
}

type testEnv struct {
	server *Server
	client *Client
	store  *attachments.Store
	zoom   *zoom.Controller
}

func newTestEnv(t *testing.T, updater *update.Updater) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store := attachments.NewStore(filepath.Join(dir, "attachments"))
	runner := shellexec.NewRunner(fakeShell(t))
	zoomCtl := zoom.NewController(nil)

	socketPath := filepath.Join(dir, "control.sock")
	server := NewServer(socketPath, store, runner, zoomCtl, updater)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })

	// Give the accept loop a moment to come up.
	time.Sleep(10 * time.Millisecond)

	return &testEnv{
		server: server,
		client: NewClient(socketPath),
		store:  store,
		zoom:   zoomCtl,
	}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestSocketPermissions(t *testing.T) {
	env := newTestEnv(t, nil)

	info, err := os.Stat(env.server.SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAttachmentRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)

	info, err := env.client.WriteAttachment("note-1", b64("hello"), "txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.ByteSize)
	assert.Equal(t, "note-1.txt", filepath.Base(info.Path))

	payload, err := env.client.ReadAttachment(info.Path)
	require.NoError(t, err)
	assert.Equal(t, b64("hello"), payload)

	deleted, err := env.client.DeleteAttachment(info.Path)
	require.NoError(t, err)
	assert.True(t, deleted)

	// A second delete has nothing to do and says so without failing.
	deleted, err = env.client.DeleteAttachment(info.Path)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAttachmentWriteErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.client.WriteAttachment("bad.id", b64("x"), "")
	assert.ErrorContains(t, err, "invalid characters")

	_, err = env.client.WriteAttachment("ok", "not base64!!", "")
	assert.ErrorContains(t, err, "payload")
}

func TestAttachmentCopy(t *testing.T) {
	env := newTestEnv(t, nil)

	source := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(source, []byte("png-bytes"), 0644))

	info, err := env.client.CopyAttachment("pic-1", source, "")
	require.NoError(t, err)
	assert.Equal(t, "pic-1.png", filepath.Base(info.Path))
	assert.Equal(t, int64(9), info.ByteSize)

	_, err = env.client.CopyAttachment("pic-2", filepath.Join(t.TempDir(), "missing"), "")
	assert.ErrorContains(t, err, "does not exist")
}

func TestAttachmentDeleteOutsideStore(t *testing.T) {
	env := newTestEnv(t, nil)

	outside := filepath.Join(t.TempDir(), "stray.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0644))

	deleted, err := env.client.DeleteAttachment(outside)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The file is untouched.
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestAttachmentGC(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, id := range []string{"a", "b", "c"} {
		_, err := env.client.WriteAttachment(id, b64("data"), "bin")
		require.NoError(t, err)
	}

	collected, err := env.client.CollectAttachments([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, collected)

	collected, err = env.client.CollectAttachments([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, collected)
}

func TestDaemonVersion(t *testing.T) {
	env := newTestEnv(t, nil)

	// No paseo CLI on PATH in the restricted fake shell run.
	t.Setenv("PATH", t.TempDir())

	result, err := env.client.DaemonVersion()
	require.NoError(t, err)
	assert.Empty(t, result.Version)
	assert.Contains(t, result.Error, "paseo command not found")
}

func TestZoomCommands(t *testing.T) {
	env := newTestEnv(t, nil)

	factor, err := env.client.ZoomGet()
	require.NoError(t, err)
	assert.InDelta(t, zoom.DefaultFactor, factor, 1e-9)

	factor, err = env.client.ZoomIn()
	require.NoError(t, err)
	assert.InDelta(t, 1.1, factor, 1e-9)

	factor, err = env.client.ZoomSet(99)
	require.NoError(t, err)
	assert.InDelta(t, zoom.MaxFactor, factor, 1e-9)

	factor, err = env.client.ZoomOut()
	require.NoError(t, err)
	assert.InDelta(t, zoom.MaxFactor-zoom.Step, factor, 1e-9)

	factor, err = env.client.ZoomReset()
	require.NoError(t, err)
	assert.InDelta(t, zoom.DefaultFactor, factor, 1e-9)
}

func TestUpdateCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/paseo-app/paseo-desktop/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tag_name": "v9.9.9", "body": "big release"})
	})
	releases := httptest.NewServer(mux)
	t.Cleanup(releases.Close)

	updater := update.NewUpdater(update.Config{
		Owner:          "paseo-app",
		Repo:           "paseo-desktop",
		CurrentVersion: "v1.0.0",
		BaseURL:        releases.URL,
	})
	env := newTestEnv(t, updater)

	info, err := env.client.UpdateCheck()
	require.NoError(t, err)
	assert.True(t, info.HasUpdate)
	assert.Equal(t, "v9.9.9", info.LatestVersion)
}

func TestUpdateNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.client.UpdateCheck()
	assert.ErrorContains(t, err, "self-update is not configured")

	_, err = env.client.UpdateInstall()
	assert.ErrorContains(t, err, "self-update is not configured")
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.client.Send(Request{Command: "nonsense"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestMalformedRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.client.Send(Request{Command: CmdAttachmentsWrite, Payload: json.RawMessage(`"not an object"`)})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid payload")
}
