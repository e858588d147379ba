package iterator

import (
	"fmt"
	"strings"
)

// Strategy selects how a source file is claimed before processing.
//
// Staking is optimistic, cross-process concurrency control: several
// independent runs may iterate the same listing, and the strategy decides
// which single run owns each file. Losing the race is normal and surfaces
// as ErrStakeConflict, not a failure.
type Strategy string

const (
	// StrategyIgnore performs no remote mutation: downloading the file is
	// the claim. Only safe for sources with a single consumer.
	StrategyIgnore Strategy = "ignore"

	// StrategyRename renames the remote file to
	// "<name>.<claimant-id>.staked". The rename either succeeds for
	// exactly one claimant or fails, making the claim exclusive on
	// backends with atomic rename.
	StrategyRename Strategy = "rename"

	// StrategyProperty writes the claimant id into backend metadata
	// (object tags) and reads it back; the claim holds only if the
	// read-back value is our own. Requires the Tagger capability.
	StrategyProperty Strategy = "property"
)

// ParseStrategy converts a configuration string into a Strategy. The empty
// string defaults to StrategyIgnore.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrategyIgnore:
		return StrategyIgnore, nil
	case StrategyRename:
		return StrategyRename, nil
	case StrategyProperty:
		return StrategyProperty, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}
