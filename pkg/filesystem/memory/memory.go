// Package memory implements an in-memory Filesystem.
//
// The memory backend exists for tests and local experimentation: it keeps
// file contents and tags in maps guarded by a mutex, which makes rename and
// tag operations atomic and therefore suitable for exercising the staking
// protocol without a real object store.
package memory

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/eonx-com/ferry/pkg/filesystem"
)

// Filesystem is an in-memory filesystem.Filesystem with tag support.
// It is safe for concurrent use.
type Filesystem struct {
	mu    sync.Mutex
	files map[string][]byte
	tags  map[string]map[string]string
}

// New creates an empty in-memory filesystem.
func New() *Filesystem {
	return &Filesystem{
		files: make(map[string][]byte),
		tags:  make(map[string]map[string]string),
	}
}

// Put seeds a file directly. Test helper.
func (m *Filesystem) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.SanitizePath(path)] = data
}

// Get returns a file's content and whether it exists. Test helper.
func (m *Filesystem) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[m.SanitizePath(path)]
	return data, ok
}

// Len returns the number of stored files. Test helper.
func (m *Filesystem) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *Filesystem) Kind() filesystem.Kind {
	return filesystem.KindMemory
}

func (m *Filesystem) List(ctx context.Context, listPath string, recursive bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listPath = m.SanitizePath(listPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for name := range m.files {
		if listPath != "" && !strings.HasPrefix(name, listPath+"/") && name != listPath {
			continue
		}
		if !recursive && path.Dir(name) != dirOf(listPath) {
			continue
		}
		out = append(out, name)
	}

	sort.Strings(out)
	return out, nil
}

// dirOf maps a listing path to the directory value path.Dir produces for
// files directly inside it ("" lists the root, whose files have dir ".").
func dirOf(listPath string) string {
	if listPath == "" {
		return "."
	}
	return listPath
}

func (m *Filesystem) Exists(ctx context.Context, filePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[m.SanitizePath(filePath)]
	return ok, nil
}

func (m *Filesystem) Delete(ctx context.Context, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.SanitizePath(filePath)
	delete(m.files, filePath)
	delete(m.tags, filePath)
	return nil
}

func (m *Filesystem) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	data, ok := m.files[m.SanitizePath(remotePath)]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("download %s: %w", remotePath, filesystem.ErrNotFound)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}

	return os.WriteFile(localPath, data, 0644)
}

func (m *Filesystem) Upload(ctx context.Context, localPath, remotePath string, allowOverwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file: %w", err)
	}

	remotePath = m.SanitizePath(remotePath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[remotePath]; ok && !allowOverwrite {
		return fmt.Errorf("upload %s: %w", remotePath, filesystem.ErrAlreadyExists)
	}

	m.files[remotePath] = data
	return nil
}

// Rename is atomic: the check for the source and the move happen under one
// lock, so two concurrent claimants can never both succeed.
func (m *Filesystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	oldPath = m.SanitizePath(oldPath)
	newPath = m.SanitizePath(newPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[oldPath]
	if !ok {
		return fmt.Errorf("rename %s: %w", oldPath, filesystem.ErrNotFound)
	}

	m.files[newPath] = data
	delete(m.files, oldPath)

	if t, ok := m.tags[oldPath]; ok {
		m.tags[newPath] = t
		delete(m.tags, oldPath)
	}

	return nil
}

func (m *Filesystem) SanitizePath(path string) string {
	return filesystem.SanitizeObjectPath(path)
}

// WriteTag implements filesystem.Tagger.
func (m *Filesystem) WriteTag(ctx context.Context, filePath, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath = m.SanitizePath(filePath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[filePath]; !ok {
		return fmt.Errorf("tag %s: %w", filePath, filesystem.ErrNotFound)
	}

	if m.tags[filePath] == nil {
		m.tags[filePath] = make(map[string]string)
	}
	m.tags[filePath][key] = value
	return nil
}

// ReadTag implements filesystem.Tagger.
func (m *Filesystem) ReadTag(ctx context.Context, filePath, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filePath = m.SanitizePath(filePath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[filePath]; !ok {
		return "", fmt.Errorf("tag %s: %w", filePath, filesystem.ErrNotFound)
	}

	return m.tags[filePath][key], nil
}

var (
	_ filesystem.Filesystem = (*Filesystem)(nil)
	_ filesystem.Tagger     = (*Filesystem)(nil)
)
