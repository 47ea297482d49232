package update

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelease serves a GitHub-style latest-release endpoint plus asset
// downloads from the same test server.
func fakeRelease(t *testing.T, tag, notes string, assets map[string][]byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	mux.HandleFunc("/repos/paseo-app/paseo-desktop/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		release := Release{TagName: tag, Body: notes, PublishedAt: published}
		for name := range assets {
			release.Assets = append(release.Assets, Asset{
				Name:        name,
				Size:        int64(len(assets[name])),
				DownloadURL: server.URL + "/assets/" + name,
			})
		}
		_ = json.NewEncoder(w).Encode(release)
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[len("/assets/"):]
		data, ok := assets[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})
	return server
}

func newTestUpdater(serverURL, currentVersion string) *Updater {
	return NewUpdater(Config{
		Owner:          "paseo-app",
		Repo:           "paseo-desktop",
		CurrentVersion: currentVersion,
		BaseURL:        serverURL,
	})
}

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestCheckUpdateAvailable(t *testing.T) {
	server := fakeRelease(t, "v1.1.0", "Fixes and polish.", nil)
	u := newTestUpdater(server.URL, "v1.0.0")

	info, err := u.Check()
	require.NoError(t, err)
	assert.True(t, info.HasUpdate)
	assert.Equal(t, "v1.0.0", info.CurrentVersion)
	assert.Equal(t, "v1.1.0", info.LatestVersion)
	assert.Equal(t, "Fixes and polish.", info.ReleaseNotes)
	require.NotNil(t, info.Date)
	assert.Equal(t, 2026, info.Date.Year())
}

func TestCheckAlreadyCurrent(t *testing.T) {
	server := fakeRelease(t, "v1.0.0", "", nil)
	u := newTestUpdater(server.URL, "v1.0.0")

	info, err := u.Check()
	require.NoError(t, err)
	assert.False(t, info.HasUpdate)
	assert.Empty(t, info.LatestVersion)
	assert.Nil(t, info.Date)
}

func TestCheckDevBuildAlwaysUpdates(t *testing.T) {
	server := fakeRelease(t, "v0.0.1", "", nil)
	u := newTestUpdater(server.URL, "dev")

	info, err := u.Check()
	require.NoError(t, err)
	assert.True(t, info.HasUpdate)
}

func TestCheckNoRelease(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := newTestUpdater(server.URL, "v1.0.0")
	_, err := u.Check()
	assert.ErrorContains(t, err, "no release found")
}

func TestFindAsset(t *testing.T) {
	u := newTestUpdater("http://unused", "v1.0.0")
	release := &Release{
		TagName: "v1.1.0",
		Assets: []Asset{
			{Name: "paseo-desktopd-linux-amd64"},
			{Name: "paseo-desktopd-darwin-arm64.gz"},
			{Name: "checksums.txt"},
		},
	}

	asset, err := u.FindAsset(release, "linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "paseo-desktopd-linux-amd64", asset.Name)

	// Compressed fallback.
	asset, err = u.FindAsset(release, "darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "paseo-desktopd-darwin-arm64.gz", asset.Name)

	_, err = u.FindAsset(release, "windows", "amd64")
	assert.Error(t, err)
}

func TestDownloadAndVerify(t *testing.T) {
	binary := []byte("fake binary contents")
	checksums := fmt.Sprintf("%s  paseo-desktopd-linux-amd64\n", sha256hex(binary))

	server := fakeRelease(t, "v1.1.0", "", map[string][]byte{
		"paseo-desktopd-linux-amd64": binary,
		"checksums.txt":              []byte(checksums),
	})
	u := newTestUpdater(server.URL, "v1.0.0")

	release, err := u.Latest()
	require.NoError(t, err)
	asset, err := u.FindAsset(release, "linux", "amd64")
	require.NoError(t, err)

	var sawProgress bool
	path, err := u.Download(asset, func(downloaded, total int64) { sawProgress = true })
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, binary, data)
	assert.True(t, sawProgress)

	assert.NoError(t, u.VerifyDownload(path, asset.Name, release))
}

func TestDownloadGzipAsset(t *testing.T) {
	binary := []byte("fake binary contents")
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(binary)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	// The checksum covers the decompressed binary under its plain name.
	checksums := fmt.Sprintf("%s  paseo-desktopd-linux-amd64\n", sha256hex(binary))

	server := fakeRelease(t, "v1.1.0", "", map[string][]byte{
		"paseo-desktopd-linux-amd64.gz": compressed.Bytes(),
		"checksums.txt":                 []byte(checksums),
	})
	u := newTestUpdater(server.URL, "v1.0.0")

	release, err := u.Latest()
	require.NoError(t, err)
	asset, err := u.FindAsset(release, "linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "paseo-desktopd-linux-amd64.gz", asset.Name)

	path, err := u.Download(asset, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, binary, data)

	assert.NoError(t, u.VerifyDownload(path, asset.Name, release))
}

func TestVerifyDownloadMismatch(t *testing.T) {
	binary := []byte("fake binary contents")
	checksums := fmt.Sprintf("%s  paseo-desktopd-linux-amd64\n", sha256hex([]byte("other")))

	server := fakeRelease(t, "v1.1.0", "", map[string][]byte{
		"paseo-desktopd-linux-amd64": binary,
		"checksums.txt":              []byte(checksums),
	})
	u := newTestUpdater(server.URL, "v1.0.0")

	release, err := u.Latest()
	require.NoError(t, err)
	asset, err := u.FindAsset(release, "linux", "amd64")
	require.NoError(t, err)

	path, err := u.Download(asset, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	assert.ErrorContains(t, u.VerifyDownload(path, asset.Name, release), "checksum mismatch")
}

func TestParseChecksums(t *testing.T) {
	content := `
abc123  file-one

def456  file-two
not-a-checksum-line
`
	checksums, err := ParseChecksums(content)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"file-one": "abc123",
		"file-two": "def456",
	}, checksums)
}

func TestAssetName(t *testing.T) {
	u := NewUpdater(Config{Owner: "o", Repo: "r"})
	assert.Equal(t, "paseo-desktopd-linux-amd64", u.AssetName("linux", "amd64"))
	assert.Equal(t, "paseo-desktopd-windows-amd64.exe", u.AssetName("windows", "amd64"))
}
