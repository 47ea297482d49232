//go:build windows

package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReplaceExecutable swaps the file at currentPath for the one at newPath,
// keeping a `.backup` copy, and returns the backup path. Windows refuses to
// delete a running executable but allows renaming it, so the live binary is
// moved aside first and the new one takes its place.
func ReplaceExecutable(currentPath, newPath string) (string, error) {
	info, err := os.Stat(currentPath)
	if err != nil {
		return "", fmt.Errorf("stat current executable: %w", err)
	}

	backupPath := currentPath + ".backup"
	_ = os.Remove(backupPath)

	// Move the running binary out of the way; it stays mapped while running.
	if err := os.Rename(currentPath, backupPath); err != nil {
		return "", fmt.Errorf("move current executable aside: %w", err)
	}

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
		return fmt.Errorf("restore backup: %w", err)
	}
	return nil
}

// CleanupBackup removes the backup left by ReplaceExecutable. On Windows
// the rename may still be pending while the old process runs; removal
// failures are ignored and the file is cleaned up on a later update.
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
