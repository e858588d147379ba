// Package local implements a Filesystem backed by the local disk.
//
// The local backend is mostly used as a destination (drop folders, test
// fixtures) but is a full implementation and can equally act as a source.
// All paths are relative to the configured base directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eonx-com/ferry/pkg/filesystem"
)

// Filesystem stores files under a base directory on the local disk.
type Filesystem struct {
	basePath string
}

// New creates a local filesystem rooted at basePath, creating the directory
// if it does not exist.
func New(basePath string) (*Filesystem, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local filesystem: base path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Filesystem{basePath: basePath}, nil
}

func (l *Filesystem) Kind() filesystem.Kind {
	return filesystem.KindLocal
}

// fullPath resolves a backend-relative path below the base directory.
func (l *Filesystem) fullPath(path string) string {
	path = l.SanitizePath(path)
	return filepath.Join(l.basePath, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

// relPath converts an absolute on-disk path back to a backend-relative one.
func (l *Filesystem) relPath(full string) string {
	rel, err := filepath.Rel(l.basePath, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}

// List walks the directory tree with an explicit work stack rather than
// recursion so partial listings and deep trees behave predictably.
func (l *Filesystem) List(ctx context.Context, path string, recursive bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := l.fullPath(path)

	var files []string
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && dir == root {
				// Listing a missing folder yields no files, same as an
				// empty prefix on an object store.
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if recursive {
					stack = append(stack, full)
				}
				continue
			}
			files = append(files, l.relPath(full))
		}
	}

	sort.Strings(files)
	return files, nil
}

func (l *Filesystem) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(l.fullPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return !info.IsDir(), nil
}

func (l *Filesystem) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(l.fullPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	return nil
}

func (l *Filesystem) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return copyFile(l.fullPath(remotePath), localPath, true)
}

func (l *Filesystem) Upload(ctx context.Context, localPath, remotePath string, allowOverwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return copyFile(localPath, l.fullPath(remotePath), allowOverwrite)
}

func (l *Filesystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src := l.fullPath(oldPath)
	dst := l.fullPath(newPath)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", newPath, err)
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rename %s: %w", oldPath, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to rename %s: %w", oldPath, err)
	}

	return nil
}

func (l *Filesystem) SanitizePath(path string) string {
	return filesystem.SanitizeAbsolutePath(path)
}

func copyFile(src, dst string, allowOverwrite bool) error {
	if !allowOverwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("copy to %s: %w", dst, filesystem.ErrAlreadyExists)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("copy %s: %w", src, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}

	return out.Close()
}

var _ filesystem.Filesystem = (*Filesystem)(nil)
