// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fsutil provides small filesystem helpers shared by the DICOM and
// bibliography pipelines: existence checks, predicate-driven directory
// listings, and durable writes.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CheckFile reports whether path names a regular file the process can read
// and write. Opening the file is the only portable way to test both.
func CheckFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// CheckDir reports whether path names a directory that can be opened and
// listed. Write access is not probed here; writes fail loudly on their own.
func CheckDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_, err = f.Readdirnames(1)
	_ = f.Close()
	// An empty directory returns io.EOF, which is still a readable directory.
	return err == nil || errors.Is(err, io.EOF)
}

// ListFiles returns the absolute paths of all files under dirPath accepted by
// the accept predicate. A nil predicate accepts everything. When dirPath
// itself names an accepted file, it is returned as a single-element list.
// With recursive set, subdirectories are walked depth-first in lexical order.
func ListFiles(dirPath string, recursive bool, accept func(string) bool) ([]string, error) {
	if accept == nil {
		accept = func(string) bool { return true }
	}

	abs, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", dirPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.Mode().IsRegular() {
		if accept(abs) {
			return []string{abs}, nil
		}
		return nil, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is neither a file nor a directory", abs)
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if d.Type().IsRegular() && accept(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", abs, err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", abs, err)
	}
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(abs, e.Name())
		if accept(p) {
			files = append(files, p)
		}
	}
	return files, nil
}

// SplitPath breaks a path into its containing directory, base name, and
// extension (with leading dot, empty when absent).
func SplitPath(path string) (dir, name, ext string) {
	dir = filepath.Dir(path)
	name = filepath.Base(path)
	ext = filepath.Ext(name)
	return dir, name, ext
}

// EnsureDir creates the directory and any missing parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// WriteAtomic writes data to path through a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".gobro-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil // Prevent double close in defer

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
