package files

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oukeidos/transpop/internal/logger"
)

// AtomicWrite writes data to a temp file and renames it into place.
func AtomicWrite(path string, data []byte, perms os.FileMode) error {
	if err := RejectSymlinkPath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".transpop-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanup := true
	defer func() {
		if cleanup {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(perms); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := replaceFile(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to destination: %w", err)
	}
	if err := syncDir(dir); err != nil {
		logger.Warn("Directory fsync failed (safe to ignore on some platforms)", "path", dir, "error", err)
	}

	cleanup = false
	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		logger.Info("Directory fsync not supported on Windows; skipping", "path", dir)
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
