// Package fsutil holds the small filesystem helpers shared by every pass.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var dateName = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)

// ListDirs returns the names of the immediate sub-directories of path, sorted
func ListDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ListFiles returns the names of the regular files directly inside path, sorted
func ListFiles(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// EnsureDir creates path if it is missing. Concurrent creators are tolerated.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create dir: %w", err)
	}
	return nil
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDateName reports whether name looks like YYYY-M-D or YYYY-MM-DD, with an
// optional .txt extension
func IsDateName(name string) bool {
	return dateName.MatchString(strings.TrimSuffix(name, ".txt"))
}

// CopyFile copies src to dst, replacing dst
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}

// CopyIfExists copies src to dst when src exists and reports whether it did
func CopyIfExists(src, dst string) (bool, error) {
	if !Exists(src) {
		return false, nil
	}
	if err := CopyFile(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

// WriteLines writes lines joined by newlines, without a trailing newline
func WriteLines(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
