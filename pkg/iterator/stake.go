package iterator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/eonx-com/ferry/pkg/filesystem"
)

const (
	// stakedSuffix marks remote files claimed with the rename strategy.
	stakedSuffix = ".staked"

	// claimTagKey is the metadata key used by the property strategy.
	claimTagKey = "ferry-claimant"
)

// Stake is a successfully claimed file: a reference to the remote file plus
// the local staged copy.
//
// A Stake owns its local staged copy. The engine consumes each Stake exactly
// once (callback, routing) and then destroys it with Discard; callers that
// create stakes directly carry the same obligation.
type Stake struct {
	// FS is the source filesystem the file was claimed from.
	FS filesystem.Filesystem

	// RemotePath is the file's original path on the source.
	RemotePath string

	// ClaimedPath is the path the file lives at while claimed. Equal to
	// RemotePath except under the rename strategy.
	ClaimedPath string

	// LocalPath is the staged local copy of the file.
	LocalPath string

	// Strategy is the strategy that produced the claim.
	Strategy Strategy
}

// Discard removes the local staged copy. Idempotent.
func (s *Stake) Discard() error {
	if s.LocalPath == "" {
		return nil
	}
	// The staged copy sits alone in a unique temp directory.
	return os.RemoveAll(filepath.Dir(s.LocalPath))
}

// claim attempts to take exclusive ownership of remotePath using the given
// strategy.
//
// Returns ErrStakeConflict (wrapped) when another claimant won the race;
// any other error is an unexpected backend failure. Side effects are
// confined to the single file being staked.
func claim(ctx context.Context, fs filesystem.Filesystem, remotePath string, strategy Strategy, claimantID string) (*Stake, error) {
	remotePath = fs.SanitizePath(remotePath)

	switch strategy {
	case StrategyIgnore:
		return claimIgnore(ctx, fs, remotePath)
	case StrategyRename:
		return claimRename(ctx, fs, remotePath, claimantID)
	case StrategyProperty:
		return claimProperty(ctx, fs, remotePath, claimantID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// claimIgnore downloads the file; the download is the claim. Exclusivity is
// assumed to be guaranteed elsewhere (single-consumer feeds).
func claimIgnore(ctx context.Context, fs filesystem.Filesystem, remotePath string) (*Stake, error) {
	local, err := stageDownload(ctx, fs, remotePath)
	if err != nil {
		return nil, err
	}

	return &Stake{
		FS:          fs,
		RemotePath:  remotePath,
		ClaimedPath: remotePath,
		LocalPath:   local,
		Strategy:    StrategyIgnore,
	}, nil
}

// claimRename renames the remote file to a claimant-unique name and
// verifies the rename took effect before downloading.
func claimRename(ctx context.Context, fs filesystem.Filesystem, remotePath, claimantID string) (*Stake, error) {
	// A ".staked" suffix means some claimant (possibly a dead one) already
	// owns the file; leave it alone.
	if strings.Contains(path.Base(remotePath), stakedSuffix) {
		return nil, fmt.Errorf("%s: %w", remotePath, ErrStakeConflict)
	}

	claimedPath := remotePath + "." + claimantID + stakedSuffix

	if err := fs.Rename(ctx, remotePath, claimedPath); err != nil {
		if errors.Is(err, filesystem.ErrNotFound) {
			// Original gone: another claimant renamed it between listing
			// and now.
			return nil, fmt.Errorf("%s: %w", remotePath, ErrStakeConflict)
		}
		return nil, fmt.Errorf("failed to rename %s for staking: %w", remotePath, err)
	}

	// Verify the claim: our claimed name must exist and the original must
	// be gone, otherwise the rename raced and we did not win.
	exists, err := fs.Exists(ctx, claimedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to verify staked file %s: %w", claimedPath, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", remotePath, ErrStakeConflict)
	}

	originalExists, err := fs.Exists(ctx, remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to verify original file %s: %w", remotePath, err)
	}
	if originalExists {
		return nil, fmt.Errorf("%s: %w", remotePath, ErrStakeConflict)
	}

	local, err := stageDownload(ctx, fs, claimedPath)
	if err != nil {
		return nil, err
	}

	return &Stake{
		FS:          fs,
		RemotePath:  remotePath,
		ClaimedPath: claimedPath,
		LocalPath:   local,
		Strategy:    StrategyRename,
	}, nil
}

// claimProperty writes the claimant id into the file's metadata and holds
// the claim only if the value reads back as our own.
func claimProperty(ctx context.Context, fs filesystem.Filesystem, remotePath, claimantID string) (*Stake, error) {
	tagger, ok := fs.(filesystem.Tagger)
	if !ok {
		return nil, fmt.Errorf("property staking on %s backend: %w", fs.Kind(), filesystem.ErrNotSupported)
	}

	if err := tagger.WriteTag(ctx, remotePath, claimTagKey, claimantID); err != nil {
		return nil, fmt.Errorf("failed to write claim tag on %s: %w", remotePath, err)
	}

	value, err := tagger.ReadTag(ctx, remotePath, claimTagKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read back claim tag on %s: %w", remotePath, err)
	}

	if value != claimantID {
		return nil, fmt.Errorf("%s claimed by %s: %w", remotePath, value, ErrStakeConflict)
	}

	local, err := stageDownload(ctx, fs, remotePath)
	if err != nil {
		return nil, err
	}

	return &Stake{
		FS:          fs,
		RemotePath:  remotePath,
		ClaimedPath: remotePath,
		LocalPath:   local,
		Strategy:    StrategyProperty,
	}, nil
}

// stageDownload copies the remote file into a fresh unique temp directory
// and returns the local path.
func stageDownload(ctx context.Context, fs filesystem.Filesystem, remotePath string) (string, error) {
	dir, err := os.MkdirTemp("", "ferry-stake-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	local := filepath.Join(dir, path.Base(remotePath))

	if err := fs.Download(ctx, remotePath, local); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to stage %s: %w", remotePath, err)
	}

	return local, nil
}
