package iterator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eonx-com/ferry/internal/logger"
	"github.com/eonx-com/ferry/pkg/filesystem"
)

// Source is a remote location files are claimed from, plus the policy for
// what happens to each file afterwards.
type Source struct {
	// FS is the filesystem files are listed and claimed on.
	FS filesystem.Filesystem

	// Path is the folder listed for candidate files.
	Path string

	// Strategy selects how exclusive ownership is taken.
	Strategy Strategy

	// Recursive lists the folder tree instead of the single folder.
	Recursive bool

	// DeleteOnSuccess removes the remote file after a successful callback,
	// provided every delivery succeeded.
	DeleteOnSuccess bool

	// DeleteOnFailure removes the remote file after a failed callback,
	// provided every failure delivery succeeded.
	DeleteOnFailure bool

	// SuccessDestinations receive files whose callback succeeded.
	SuccessDestinations []*Destination

	// FailureDestinations receive files whose callback failed or panicked.
	FailureDestinations []*Destination
}

// iterate lists the source and processes claimed files until the listing or
// the shared quota is exhausted. Always returns a report; only a listing
// failure aborts the source.
func (s *Source) iterate(ctx context.Context, cb Callback, q *quota, claimantID string, stamp time.Time, log *runLog) Report {
	report := Report{Source: s.Path}

	files, err := s.FS.List(ctx, s.Path, s.Recursive)
	if err != nil {
		report.ListingErr = fmt.Errorf("failed to list %s: %w", s.Path, err)
		log.record("listing failed for %s: %v", s.Path, err)
		return report
	}

	logger.Debug("listed %d candidate files in %s", len(files), s.Path)

	for _, remotePath := range files {
		if ctx.Err() != nil {
			report.CleanupErrs = append(report.CleanupErrs, ctx.Err())
			return report
		}
		if !q.take() {
			logger.Info("file quota reached, leaving %s", s.Path)
			return report
		}
		report.Attempted++

		stake, err := claim(ctx, s.FS, remotePath, s.Strategy, claimantID)
		if err != nil {
			if errors.Is(err, ErrStakeConflict) {
				report.Conflicted++
				logger.Debug("skipping %s: %v", remotePath, err)
				continue
			}
			logger.Error("failed to stake %s: %v", remotePath, err)
			log.record("stake failed for %s: %v", remotePath, err)
			continue
		}

		s.process(ctx, stake, cb, &report, stamp, log)
	}

	return report
}

// process runs the callback on a claimed file and routes the file to the
// matching destinations. The staged local copy is always destroyed, whatever
// else fails.
func (s *Source) process(ctx context.Context, stake *Stake, cb Callback, report *Report, stamp time.Time, log *runLog) {
	outcome, cbErr := invoke(ctx, cb, stake)

	destinations := s.SuccessDestinations
	remove := s.DeleteOnSuccess
	if cbErr != nil {
		destinations = s.FailureDestinations
		remove = s.DeleteOnFailure
		report.Failed++
		logger.Error("processing failed for %s: %v", stake.RemotePath, cbErr)
		log.record("failed %s: %v", stake.RemotePath, cbErr)
	} else {
		report.Succeeded++
		if outcome.Next != "" {
			log.record("succeeded %s (next: %s)", stake.RemotePath, outcome.Next)
		} else {
			log.record("succeeded %s", stake.RemotePath)
		}
	}

	routeErr := deliverAll(ctx, destinations, stake, stamp)
	if routeErr != nil {
		report.CleanupErrs = append(report.CleanupErrs, routeErr)
		logger.Error("delivery failed for %s: %v", stake.RemotePath, routeErr)
		log.record("delivery failed for %s: %v", stake.RemotePath, routeErr)
	}

	// The remote file is only removed once every delivery landed; a
	// partially routed file must stay on the source for retry.
	if remove && routeErr == nil {
		if err := stake.FS.Delete(ctx, stake.ClaimedPath); err != nil {
			report.CleanupErrs = append(report.CleanupErrs, fmt.Errorf("failed to delete %s: %w", stake.ClaimedPath, err))
			logger.Warn("failed to delete %s after routing: %v", stake.ClaimedPath, err)
		}
	}

	if err := stake.Discard(); err != nil {
		report.CleanupErrs = append(report.CleanupErrs, fmt.Errorf("failed to discard staged copy of %s: %w", stake.RemotePath, err))
	}
}

// invoke runs the callback, converting a panic into an error so one bad file
// cannot take down the run.
func invoke(ctx context.Context, cb Callback, stake *Stake) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panic on %s: %v", stake.RemotePath, r)
		}
	}()

	return cb(ctx, stake)
}

// deliverAll uploads the staged copy to every destination, joining failures
// so one bad destination does not hide another.
func deliverAll(ctx context.Context, destinations []*Destination, stake *Stake, stamp time.Time) error {
	var errs []error
	for _, dest := range destinations {
		if err := dest.Deliver(ctx, stake.LocalPath, stake.RemotePath, stamp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
