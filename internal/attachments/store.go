// Package attachments implements the managed attachment file store for the
// Paseo desktop backend.
//
// The store keeps exactly one file per logical attachment identifier in a
// single flat directory under the per-user application data root. There is
// no manifest: the directory listing is authoritative, and filenames carry
// the full index (`<id>` or `<id>.<ext>`). Reads and deletes are confined to
// the managed directory via canonicalize-then-prefix checking; garbage
// collection reconciles the directory against a caller-supplied set of
// still-referenced identifiers.
package attachments

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultDirName is the managed directory name under the user's
// application data root.
const DefaultDirName = "paseo-desktop-attachments"

// FileInfo describes a written attachment file.
type FileInfo struct {
	Path     string `json:"path"`
	ByteSize int64  `json:"byteSize"`
}

// Store is the managed attachment file store. It holds no mutable state
// beyond the directory path, so all operations are safe to run concurrently.
// Concurrent writes for the same identifier interleave their
// sweep-then-write sequences and resolve to last-writer-wins; callers that
// need stronger ordering must serialize per identifier themselves.
type Store struct {
	dir     string
	metrics *storeMetrics
}

// DefaultDir returns the default managed directory path under the platform
// application data root. The directory is not created.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, DefaultDirName), nil
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir, metrics: initStoreMetrics(nil)}
}

// Dir returns the managed directory path.
func (s *Store) Dir() string {
	return s.dir
}

// resolveDir creates the managed directory (and parents) if missing and
// returns its path. Every public operation goes through this first; a
// failure here is fatal to the operation.
func (s *Store) resolveDir() (string, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("create attachment directory: %w", err)
	}
	return s.dir, nil
}

// sweep removes every regular file belonging to id: the bare `<id>` file and
// any `<id>.<ext>` variant. Non-file entries are skipped. The first removal
// failure aborts the sweep; files already removed stay removed.
func (s *Store) sweep(dir, id string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan attachment directory: %w", err)
	}

	prefix := id + "."
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if name != id && !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove prior attachment file: %w", err)
		}
	}
	return nil
}

// attachmentPath builds the destination path for an identifier and an
// already-normalized extension suffix.
func attachmentPath(dir, id, extension string) string {
	return filepath.Join(dir, id+extension)
}

// WriteBase64 decodes a standard-base64 payload and writes it as the single
// attachment file for id. Any prior files for id are removed first; a
// failure between the sweep and the write can leave the identifier with no
// file at all (sweep-then-write is intentionally not atomic).
func (s *Store) WriteBase64(id, payload, extension string) (*FileInfo, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	dir, err := s.resolveDir()
	if err != nil {
		return nil, err
	}
	if err := s.sweep(dir, id); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	path := attachmentPath(dir, id, NormalizeExtension(extension))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write attachment file: %w", err)
	}

	s.metrics.Writes.Inc()
	s.metrics.BytesWritten.Add(float64(len(data)))
	log.Debug().Str("id", id).Str("path", path).Int("bytes", len(data)).
		Msg("wrote inline attachment")

	return &FileInfo{Path: path, ByteSize: int64(len(data))}, nil
}

// CopyFile copies the file at sourcePath into the store as the single
// attachment file for id. When extension is empty it is derived from the
// source path. The source path is trusted caller input (an OS file picker
// result) and is deliberately not subject to directory confinement.
func (s *Store) CopyFile(id, sourcePath, extension string) (*FileInfo, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return nil, fmt.Errorf("stat source file: %w", err)
	}

	if extension == "" {
		extension = filepath.Ext(sourcePath)
	}

	dir, err := s.resolveDir()
	if err != nil {
		return nil, err
	}
	if err := s.sweep(dir, id); err != nil {
		return nil, err
	}

	path := attachmentPath(dir, id, NormalizeExtension(extension))
	written, err := copyFileContents(sourcePath, path)
	if err != nil {
		return nil, fmt.Errorf("copy attachment file: %w", err)
	}

	s.metrics.Copies.Inc()
	s.metrics.BytesWritten.Add(float64(written))
	log.Debug().Str("id", id).Str("source", sourcePath).Str("path", path).
		Int64("bytes", written).Msg("copied attachment")

	return &FileInfo{Path: path, ByteSize: written}, nil
}

// ReadBase64 reads a confined attachment file and returns its content as
// standard base64, so a round trip through WriteBase64 and ReadBase64
// reproduces the original payload exactly.
func (s *Store) ReadBase64(path string) (string, error) {
	dir, err := s.resolveDir()
	if err != nil {
		return "", err
	}
	confined, err := s.confine(dir, path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(confined)
	if err != nil {
		return "", fmt.Errorf("read attachment file: %w", err)
	}

	s.metrics.Reads.Inc()
	return base64.StdEncoding.EncodeToString(data), nil
}

// Delete removes a confined attachment file. A missing path, a path that
// fails resolution, or a path outside the managed directory all return
// (false, nil): the caller treats "nothing to delete" and "refused outside
// the boundary" identically. Only a removal failure after the confinement
// check passes is surfaced as an error.
func (s *Store) Delete(path string) (bool, error) {
	dir, err := s.resolveDir()
	if err != nil {
		return false, err
	}
	confined, err := s.confine(dir, path)
	if err != nil {
		return false, nil
	}

	if err := os.Remove(confined); err != nil {
		return false, fmt.Errorf("delete attachment file: %w", err)
	}

	s.metrics.Deletes.Inc()
	log.Debug().Str("path", confined).Msg("deleted attachment")
	return true, nil
}

// Collect deletes every attachment file whose identifier is not in
// referencedIDs and returns the number of files deleted. The identifier of
// a file is the filename prefix before the first dot (the whole name when
// there is no dot); files with an empty derived identifier are left alone.
// The first removal failure aborts the pass; the returned count reflects
// the deletions already performed.
func (s *Store) Collect(referencedIDs []string) (int, error) {
	dir, err := s.resolveDir()
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan attachment directory: %w", err)
	}

	referenced := make(map[string]struct{}, len(referencedIDs))
	for _, id := range referencedIDs {
		referenced[id] = struct{}{}
	}

	deleted := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, _, _ := strings.Cut(entry.Name(), ".")
		if id == "" {
			continue
		}
		if _, ok := referenced[id]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return deleted, fmt.Errorf("delete stale attachment file: %w", err)
		}
		deleted++
	}

	s.metrics.GCRuns.Inc()
	s.metrics.GCCollected.Add(float64(deleted))
	log.Info().Int("deleted", deleted).Int("referenced", len(referencedIDs)).
		Msg("attachment garbage collection complete")
	return deleted, nil
}

// confine resolves path and verifies it lies at or under the managed
// directory. Both sides of the comparison are canonicalized with symlinks
// resolved, so a symlink inside the directory pointing elsewhere is
// rejected. The existence check runs first: a missing path is a not-found
// failure, not a confinement failure.
func (s *Store) confine(dir, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("stat attachment path: %w", err)
	}

	candidate, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolve attachment path: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("resolve attachment directory: %w", err)
	}

	rel, err := filepath.Rel(canonicalDir, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideManagedDir, path)
	}
	return candidate, nil
}

// copyFileContents copies src to dst verbatim and returns the number of
// bytes written.
func copyFileContents(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, err
	}

	written, err := out.ReadFrom(in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, err
	}
	return written, nil
}
