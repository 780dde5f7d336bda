// Package fsync provides the low-level file primitives the applicator
// delegates to: filtered recursive copy, template rendering and directory
// listing.
package fsync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/rios0rios0/reposync/domain"
)

// Syncer implements domain.FileSyncer on the local filesystem.
type Syncer struct{}

// NewSyncer creates a filesystem syncer.
func NewSyncer() *Syncer {
	return &Syncer{}
}

// Exists reports whether path exists.
func (s *Syncer) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory.
func (s *Syncer) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Copy copies src to dst. Directories are copied recursively with the rule's
// excludes applied; a single file is copied as-is.
func (s *Syncer) Copy(src, dst string, rule domain.FileRule) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source %q: %w", src, err)
	}

	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}

	return filepath.Walk(src, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if fi.IsDir() && fi.Name() == ".git" {
			return filepath.SkipDir
		}
		if rule.Excluded(rel) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, filepath.FromSlash(rel))
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode())
		}
		return copyFile(path, target, fi.Mode())
	})
}

// Render renders the template file at src into dst with data.
func (s *Syncer) Render(src, dst string, data any) error {
	tpl, err := template.ParseFiles(src)
	if err != nil {
		return fmt.Errorf("failed to parse template %q: %w", src, err)
	}

	if mkErr := os.MkdirAll(filepath.Dir(dst), 0o755); mkErr != nil {
		return fmt.Errorf("failed to create directory for %q: %w", dst, mkErr)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}
	defer func() { _ = out.Close() }()

	if execErr := tpl.Execute(out, data); execErr != nil {
		return fmt.Errorf("failed to render template %q: %w", src, execErr)
	}
	return nil
}

// ListFiles returns the sorted file paths under root, relative to root and
// slash-separated, with the rule's excludes and any ".git" directory skipped.
func (s *Syncer) ListFiles(root string, rule domain.FileRule) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if fi.IsDir() {
			if fi.Name() == ".git" || rule.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if rule.Excluded(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %q: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Remove deletes a file or directory tree.
func (s *Syncer) Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}

	if _, copyErr := io.Copy(out, in); copyErr != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %q: %w", src, copyErr)
	}
	if closeErr := out.Close(); closeErr != nil {
		return fmt.Errorf("failed to close %q: %w", dst, closeErr)
	}
	return nil
}
