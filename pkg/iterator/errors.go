package iterator

import "errors"

var (
	// ErrStakeConflict indicates another claimant reached the file first.
	// Conflicts are expected under concurrent invocations: the file is
	// skipped for this run, never retried within it.
	ErrStakeConflict = errors.New("file is staked by another claimant")

	// ErrNoSources indicates an Iterator was constructed without sources.
	ErrNoSources = errors.New("at least one source is required")

	// ErrUnknownStrategy indicates an unrecognised staking strategy name.
	ErrUnknownStrategy = errors.New("unknown staking strategy")
)
