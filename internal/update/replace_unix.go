//go:build !windows

package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReplaceExecutable swaps the file at currentPath for the one at newPath,
// keeping a `.backup` copy of the original, and returns the backup path.
// On Unix the running process keeps its open file descriptor, so replacing
// the binary under a live process is safe; the new binary takes effect on
// the next start. On failure the original is restored.
func ReplaceExecutable(currentPath, newPath string) (string, error) {
	info, err := os.Stat(currentPath)
	if err != nil {
		return "", fmt.Errorf("stat current executable: %w", err)
	}

	backupPath := currentPath + ".backup"
	_ = os.Remove(backupPath)
	if err := copyRegularFile(currentPath, backupPath, info.Mode()); err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}

	// Rename is atomic on the same filesystem; fall back to a copy when the
	// temp download lives on a different one.
	if err := os.Rename(newPath, currentPath); err != nil {
		if err := copyRegularFile(newPath, currentPath, info.Mode()); err != nil {
			_ = os.Rename(backupPath, currentPath)
			return "", fmt.Errorf("install new executable: %w", err)
		}
		_ = os.Remove(newPath)
	}
	_ = os.Chmod(currentPath, info.Mode())

	return backupPath, nil
}

// Rollback restores the executable from its backup.
func Rollback(currentPath, backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("no backup path")
	}
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}

	_ = os.Remove(currentPath)
	if err := os.Rename(backupPath, currentPath); err != nil {
		if err := copyRegularFile(backupPath, currentPath, 0755); err != nil {
			return fmt.Errorf("restore backup: %w", err)
		}
	}
	_ = os.Chmod(currentPath, 0755)
	return nil
}

// CleanupBackup removes the backup left by ReplaceExecutable.
func CleanupBackup(backupPath string) {
	if backupPath != "" {
		_ = os.Remove(backupPath)
	}
}

// ExecutablePath returns the resolved path of the running executable.
func ExecutablePath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("get executable: %w", err)
	}
	if realPath, err := filepath.EvalSymlinks(exePath); err == nil {
		return realPath, nil
	}
	return exePath, nil
}

func copyRegularFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
