package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteArtifact writes data to path, creating parent directories as needed.
//
// The file is closed before returning and a close failure is reported. On any
// failure the partially written file is removed.
func WriteArtifact(path string, data []byte) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return WriteTo(f, data)
}

// WriteTo writes data to w in full.
func WriteTo(w io.Writer, data []byte) error {
	n, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("write: %w", io.ErrShortWrite)
	}
	return nil
}
