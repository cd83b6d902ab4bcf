package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Package-level seams so tests can simulate write and move failures.
var (
	renameFile = os.Rename
	syncFile   = func(f *os.File) error { return f.Sync() }
)

// writeAtomic writes data to a temp file next to path, verifies it, restricts
// it to 0600 and renames it over path. The temp file never outlives a
// failure.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = syncFile(tmp); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("verifying temp file: %w", err)
	}
	if !bytes.Equal(written, data) {
		return fmt.Errorf("verifying temp file: wrote %d bytes, read back %d", len(data), len(written))
	}

	if err = os.Chmod(tmpPath, fileMode); err != nil {
		return fmt.Errorf("restricting permissions: %w", err)
	}
	if err = renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies src to dst (mode 0600), replacing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, fileMode)
}
