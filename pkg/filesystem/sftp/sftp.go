// Package sftp implements a Filesystem backed by an SFTP server.
//
// Unlike the object-store backends, SFTP carries a long-lived connection:
// the owner must call Connect before use and Close when done (Connector
// capability). Recursive listing walks the remote tree with an explicit
// work stack. The backend has no tag support, so the property staking
// strategy is unavailable on SFTP sources.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eonx-com/ferry/pkg/filesystem"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Config contains the settings for an SFTP filesystem.
type Config struct {
	// Address is the server hostname or IP.
	Address string

	// Port is the server port (default 22).
	Port int

	// Username authenticates the connection.
	Username string

	// Password authenticates with a password when set.
	Password string

	// PrivateKey authenticates with a PEM-encoded private key when set.
	PrivateKey string

	// HostKeyFingerprint is the expected SHA256 host key fingerprint
	// (the "SHA256:..." form). Required unless ValidateHostKey is false.
	HostKeyFingerprint string

	// ValidateHostKey disables host key verification when false. Only for
	// test environments.
	ValidateHostKey bool

	// BasePath is prepended to every path handed to the filesystem.
	BasePath string
}

// Filesystem is an SFTP-backed filesystem.Filesystem.
//
// Thread Safety:
// A single SFTP session serializes requests; share one Filesystem across
// goroutines only if the underlying workload tolerates that serialization.
type Filesystem struct {
	cfg      Config
	basePath string
	conn     *ssh.Client
	client   *sftp.Client
}

// New creates an SFTP filesystem. The connection is not opened until
// Connect is called.
func New(cfg Config) (*Filesystem, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("sftp filesystem: address is required")
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("sftp filesystem: username is required")
	}

	if cfg.Password == "" && cfg.PrivateKey == "" {
		return nil, fmt.Errorf("sftp filesystem: password or private key is required")
	}

	if cfg.ValidateHostKey && cfg.HostKeyFingerprint == "" {
		return nil, fmt.Errorf("sftp filesystem: host key fingerprint is required when validation is enabled")
	}

	if cfg.Port == 0 {
		cfg.Port = 22
	}

	return &Filesystem{
		cfg:      cfg,
		basePath: filesystem.SanitizeAbsolutePath(cfg.BasePath),
	}, nil
}

// Connect opens the SSH connection and SFTP session.
func (s *Filesystem) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.client != nil {
		return nil
	}

	auth, err := s.authMethods()
	if err != nil {
		return err
	}

	sshCfg := &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auth,
		HostKeyCallback: s.hostKeyCallback(),
	}

	addr := s.cfg.Address + ":" + strconv.Itoa(s.cfg.Port)

	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start sftp session: %w", err)
	}

	s.conn = conn
	s.client = client
	return nil
}

// Close shuts down the SFTP session and SSH connection. Idempotent.
func (s *Filesystem) Close() error {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Filesystem) authMethods() ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod

	if s.cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(s.cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}

	return auth, nil
}

func (s *Filesystem) hostKeyCallback() ssh.HostKeyCallback {
	if !s.cfg.ValidateHostKey {
		//nolint:gosec // explicit opt-out, test environments only
		return ssh.InsecureIgnoreHostKey()
	}

	expected := s.cfg.HostKeyFingerprint
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if got := ssh.FingerprintSHA256(key); got != expected {
			return fmt.Errorf("host key mismatch for %s: got %s", hostname, got)
		}
		return nil
	}
}

func (s *Filesystem) Kind() filesystem.Kind {
	return filesystem.KindSftp
}

// fullPath resolves a backend-relative path below the base path.
func (s *Filesystem) fullPath(p string) string {
	p = s.SanitizePath(p)
	if s.basePath == "" || s.basePath == "/" {
		return p
	}
	return filesystem.SanitizeAbsolutePath(s.basePath + "/" + strings.TrimPrefix(p, "/"))
}

// relPath converts a full remote path back to a backend-relative one.
func (s *Filesystem) relPath(full string) string {
	if s.basePath == "" || s.basePath == "/" {
		return full
	}
	rel, found := strings.CutPrefix(full, s.basePath)
	if !found {
		return full
	}
	return strings.TrimPrefix(rel, "/")
}

// List walks the remote tree with an explicit work stack.
func (s *Filesystem) List(ctx context.Context, listPath string, recursive bool) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	root := s.fullPath(listPath)
	if root == "" {
		root = "."
	}

	var files []string
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := s.client.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && dir == root {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}

		for _, entry := range entries {
			full := path.Join(dir, entry.Name())
			if entry.IsDir() {
				if recursive {
					stack = append(stack, full)
				}
				continue
			}
			files = append(files, s.relPath(full))
		}
	}

	return files, nil
}

func (s *Filesystem) Exists(ctx context.Context, filePath string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}

	info, err := s.client.Stat(s.fullPath(filePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	return !info.IsDir(), nil
}

func (s *Filesystem) Delete(ctx context.Context, filePath string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	if err := s.client.Remove(s.fullPath(filePath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}

	return nil
}

func (s *Filesystem) Download(ctx context.Context, remotePath, localPath string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	in, err := s.client.Open(s.fullPath(remotePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("download %s: %w", remotePath, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to open %s: %w", remotePath, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write local file: %w", err)
	}

	return out.Close()
}

func (s *Filesystem) Upload(ctx context.Context, localPath, remotePath string, allowOverwrite bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	if !allowOverwrite {
		exists, err := s.Exists(ctx, remotePath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("upload %s: %w", remotePath, filesystem.ErrAlreadyExists)
		}
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer in.Close()

	target := s.fullPath(remotePath)

	if dir := path.Dir(target); dir != "." && dir != "/" {
		if err := s.client.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	out, err := s.client.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", remotePath, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", remotePath, err)
	}

	return out.Close()
}

// Rename uses POSIX rename, which is atomic on compliant servers: when two
// claimants race, exactly one rename succeeds.
func (s *Filesystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	if err := s.client.PosixRename(s.fullPath(oldPath), s.fullPath(newPath)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rename %s: %w", oldPath, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to rename %s: %w", oldPath, err)
	}

	return nil
}

func (s *Filesystem) SanitizePath(path string) string {
	return filesystem.SanitizeAbsolutePath(path)
}

func (s *Filesystem) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.client == nil {
		return filesystem.ErrNotConnected
	}
	return nil
}

var (
	_ filesystem.Filesystem = (*Filesystem)(nil)
	_ filesystem.Connector  = (*Filesystem)(nil)
)
