// Package update implements the application self-update flow: checking
// GitHub releases for a newer Paseo Desktop build, downloading and
// verifying the platform asset, and swapping the running binary.
package update

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the updater.
type Config struct {
	Owner          string        // GitHub repository owner
	Repo           string        // GitHub repository name
	CurrentVersion string        // Version of the running binary
	BinaryName     string        // Asset base name (defaults to "paseo-desktopd")
	Timeout        time.Duration // HTTP timeout (defaults to 30s)
	BaseURL        string        // API base URL (defaults to GitHub, overridable in tests)
}

// Asset is a release asset (binary or checksums file).
type Asset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"browser_download_url"`
}

// Release is the subset of the GitHub release payload the updater needs.
type Release struct {
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Info is the result of an update check.
type Info struct {
	HasUpdate      bool       `json:"hasUpdate"`
	CurrentVersion string     `json:"currentVersion"`
	LatestVersion  string     `json:"latestVersion,omitempty"`
	ReleaseNotes   string     `json:"releaseNotes,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
}

// InstallResult is the outcome of an install attempt.
type InstallResult struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Message   string `json:"message"`
}

// ProgressFunc is called during download with progress information.
type ProgressFunc func(downloaded, total int64)

// Updater checks for and installs application updates.
type Updater struct {
	cfg    Config
	client *http.Client
}

// NewUpdater creates an Updater with the given configuration.
func NewUpdater(cfg Config) *Updater {
	if cfg.BinaryName == "" {
		cfg.BinaryName = "paseo-desktopd"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	return &Updater{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Check fetches the latest release and compares it with the running
// version. A release that is not newer yields Info with HasUpdate false and
// no latest-version details, mirroring the "no update available" answer the
// UI expects.
func (u *Updater) Check() (*Info, error) {
	release, err := u.Latest()
	if err != nil {
		return nil, err
	}

	current, err := ParseVersion(u.cfg.CurrentVersion)
	if err != nil {
		current = &Version{Raw: u.cfg.CurrentVersion}
	}
	latest, err := ParseVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("parse release version %q: %w", release.TagName, err)
	}

	info := &Info{CurrentVersion: u.cfg.CurrentVersion}
	if !current.NeedsUpdate(latest) {
		return info, nil
	}

	date := release.PublishedAt
	info.HasUpdate = true
	info.LatestVersion = release.TagName
	info.ReleaseNotes = release.Body
	if !date.IsZero() {
		info.Date = &date
	}
	return info, nil
}

// Latest fetches the latest release information.
func (u *Updater) Latest() (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", u.cfg.BaseURL, u.cfg.Owner, u.cfg.Repo)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "paseo-desktopd-updater")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no release found for %s/%s", u.cfg.Owner, u.cfg.Repo)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching release", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &release, nil
}

// Install downloads, verifies, and installs the latest release over the
// running executable. When no newer release exists, it returns an
// InstallResult with Installed false rather than an error.
func (u *Updater) Install(progress ProgressFunc) (*InstallResult, error) {
	info, err := u.Check()
	if err != nil {
		return nil, err
	}
	if !info.HasUpdate {
		return &InstallResult{
			Installed: false,
			Message:   "No update is currently available.",
		}, nil
	}

	release, err := u.Latest()
	if err != nil {
		return nil, err
	}

	asset, err := u.FindAsset(release, runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	downloadPath, err := u.Download(asset, progress)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(downloadPath) }()

	if err := u.VerifyDownload(downloadPath, asset.Name, release); err != nil {
		return nil, fmt.Errorf("verify download: %w", err)
	}

	execPath, err := ExecutablePath()
	if err != nil {
		return nil, err
	}
	backupPath, err := ReplaceExecutable(execPath, downloadPath)
	if err != nil {
		return nil, fmt.Errorf("replace executable: %w", err)
	}
	CleanupBackup(backupPath)

	log.Info().Str("version", release.TagName).Msg("application update installed")
	return &InstallResult{
		Installed: true,
		Version:   release.TagName,
		Message:   "Update installed. Restart Paseo to finish applying it.",
	}, nil
}

// AssetName returns the expected asset name for an OS/arch pair.
func (u *Updater) AssetName(goos, goarch string) string {
	name := fmt.Sprintf("%s-%s-%s", u.cfg.BinaryName, goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// FindAsset locates the binary asset for the given OS and architecture.
// Gzip-compressed assets (`<name>.gz`) are matched as a fallback; Download
// decompresses them transparently.
func (u *Updater) FindAsset(release *Release, goos, goarch string) (*Asset, error) {
	want := u.AssetName(goos, goarch)
	for _, name := range []string{want, want + ".gz"} {
		for i := range release.Assets {
			if release.Assets[i].Name == name {
				return &release.Assets[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no asset %q in release %s", want, release.TagName)
}

// Download fetches an asset into a temporary file and returns its path.
// Assets ending in .gz are decompressed on the fly, so the temp file always
// holds the raw binary.
func (u *Updater) Download(asset *Asset, progress ProgressFunc) (string, error) {
	req, err := http.NewRequest(http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "paseo-desktopd-updater")

	// Downloads get a much longer budget than API calls.
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "paseo-desktopd-update-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = asset.Size
	}

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{reader: resp.Body, total: total, progress: progress}
	}
	if strings.HasSuffix(asset.Name, ".gz") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
			return "", fmt.Errorf("open gzip stream: %w", err)
		}
		reader = gz
	}

	if _, err := io.Copy(tmpFile, reader); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpFile.Name(), nil
}

// progressReader wraps a reader to report download progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	progress   ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.downloaded += int64(n)
	r.progress(r.downloaded, r.total)
	return n, err
}

// VerifyDownload checks the downloaded file against the sha256 recorded in
// the release's checksums.txt. For gzip assets the recorded checksum covers
// the decompressed binary under the uncompressed asset name.
func (u *Updater) VerifyDownload(filePath, assetName string, release *Release) error {
	checksums, err := u.fetchChecksums(release)
	if err != nil {
		return err
	}

	lookup := strings.TrimSuffix(assetName, ".gz")
	expected, ok := checksums[lookup]
	if !ok {
		return fmt.Errorf("no checksum recorded for %q", lookup)
	}
	return VerifyChecksum(filePath, expected)
}

func (u *Updater) fetchChecksums(release *Release) (map[string]string, error) {
	var checksumAsset *Asset
	for i := range release.Assets {
		if release.Assets[i].Name == "checksums.txt" {
			checksumAsset = &release.Assets[i]
			break
		}
	}
	if checksumAsset == nil {
		return nil, fmt.Errorf("checksums.txt not found in release %s", release.TagName)
	}

	req, err := http.NewRequest(http.MethodGet, checksumAsset.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "paseo-desktopd-updater")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download checksums: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download checksums failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}
	return ParseChecksums(string(body))
}

// ParseChecksums parses checksums.txt content: one "<sha256>  <filename>"
// entry per line.
func ParseChecksums(content string) (map[string]string, error) {
	checksums := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		checksums[fields[1]] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan checksums: %w", err)
	}
	return checksums, nil
}

// VerifyChecksum verifies that a file matches the expected sha256 hash.
func VerifyChecksum(filePath, expected string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
