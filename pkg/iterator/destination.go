package iterator

import (
	"context"
	"fmt"
	"time"

	"github.com/eonx-com/ferry/pkg/filesystem"
)

// Destination is a target filesystem plus delivery policy. Immutable after
// construction; one Destination may be shared by several sources.
type Destination struct {
	// FS is the filesystem files are delivered to.
	FS filesystem.Filesystem

	// TimestampFolder places delivered files under a folder named with the
	// iteration-start timestamp (one folder per run, not per file).
	TimestampFolder bool

	// WriteRunlog uploads the run's log to this destination after the run
	// completes.
	WriteRunlog bool

	// AllowOverwrite permits replacing an existing file at the target
	// path. When false, delivery onto an existing file fails and the
	// source file is left in place for manual intervention.
	AllowOverwrite bool
}

// Deliver uploads the staged local file under the given name.
//
// The name is the file's original source path, so destinations mirror the
// source layout. stamp is the iteration-start time used for the timestamp
// folder. A disallowed overwrite returns filesystem.ErrAlreadyExists
// (wrapped); the caller treats any error as a routing failure.
func (d *Destination) Deliver(ctx context.Context, localPath, name string, stamp time.Time) error {
	target := d.targetPath(name, stamp)

	if !d.AllowOverwrite {
		exists, err := d.FS.Exists(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to check destination for %s: %w", target, err)
		}
		if exists {
			return fmt.Errorf("deliver %s: %w", target, filesystem.ErrAlreadyExists)
		}
	}

	if err := d.FS.Upload(ctx, localPath, target, d.AllowOverwrite); err != nil {
		return fmt.Errorf("failed to deliver %s: %w", target, err)
	}

	return nil
}

// targetPath computes the destination-relative path for a delivery.
func (d *Destination) targetPath(name string, stamp time.Time) string {
	name = d.FS.SanitizePath(name)
	if d.TimestampFolder {
		name = stamp.UTC().Format(time.RFC3339) + "/" + name
	}
	return d.FS.SanitizePath(name)
}
