package iterator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eonx-com/ferry/internal/logger"
)

// runLog accumulates a human-readable record of a run for delivery to
// destinations that requested one. The iterator is single-threaded so no
// locking is needed.
type runLog struct {
	lines []string
}

// record appends a timestamped line to the run log.
func (r *runLog) record(format string, v ...any) {
	line := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, v...)
	r.lines = append(r.lines, line)
}

// empty reports whether nothing was recorded.
func (r *runLog) empty() bool {
	return len(r.lines) == 0
}

// write stages the run log as a local file and returns its path. The caller
// removes the containing directory when done.
func (r *runLog) write() (string, error) {
	dir, err := os.MkdirTemp("", "ferry-runlog-")
	if err != nil {
		return "", fmt.Errorf("failed to create run log directory: %w", err)
	}

	local := filepath.Join(dir, "runlog")
	content := strings.Join(r.lines, "\n") + "\n"

	if err := os.WriteFile(local, []byte(content), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write run log: %w", err)
	}

	return local, nil
}

// deliverRunLogs uploads the run log to every distinct destination that
// requested one. Delivery failures are logged and never fail the run.
func deliverRunLogs(ctx context.Context, log *runLog, destinations []*Destination, claimantID string, stamp time.Time) {
	if log.empty() {
		return
	}

	local, err := log.write()
	if err != nil {
		logger.Warn("run log not delivered: %v", err)
		return
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(local)) }()

	name := "runlog-" + claimantID + ".log"

	seen := make(map[*Destination]bool)
	for _, dest := range destinations {
		if !dest.WriteRunlog || seen[dest] {
			continue
		}
		seen[dest] = true

		// Run logs always overwrite: a retried run with the same
		// claimant id replaces its own log.
		overwrite := &Destination{
			FS:              dest.FS,
			TimestampFolder: dest.TimestampFolder,
			AllowOverwrite:  true,
		}
		if err := overwrite.Deliver(ctx, local, name, stamp); err != nil {
			logger.Warn("run log not delivered to %s destination: %v", dest.FS.Kind(), err)
		}
	}
}
