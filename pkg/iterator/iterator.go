// Package iterator implements claim-process-route pipelines over remote
// filesystems.
//
// An Iterator walks one or more sources, takes exclusive ownership of each
// file with the source's staking strategy, stages a local copy, hands it to
// a user callback, and routes the file to success or failure destinations.
// Competing iterators may run against the same source concurrently; the
// staking strategies guarantee each file is processed by at most one of
// them.
package iterator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eonx-com/ferry/internal/logger"
)

// Outcome is the result of a successful callback. A non-empty Next names a
// follow-up task for the file; it is informational and counts as success.
type Outcome struct {
	Next string
}

// Callback processes one staked file. The stake's local copy is only valid
// for the duration of the call. Returning an error (or panicking) routes the
// file to the source's failure destinations.
type Callback func(ctx context.Context, stake *Stake) (Outcome, error)

// quota is the run-wide budget of stake attempts, shared by all sources in
// order. A non-positive limit means unbounded.
type quota struct {
	limit int
	used  int
}

// take consumes one attempt, reporting whether the budget allowed it.
func (q *quota) take() bool {
	if q.limit > 0 && q.used >= q.limit {
		return false
	}
	q.used++
	return true
}

// Iterator drives claim-process-route runs over a fixed set of sources.
type Iterator struct {
	sources    []*Source
	claimantID string
}

// New builds an Iterator over the given sources.
//
// Each source must carry a known staking strategy; an empty strategy
// defaults to ignore. Construction fails rather than letting a bad source
// surface mid-run.
func New(sources ...*Source) (*Iterator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	for _, src := range sources {
		strategy, err := ParseStrategy(string(src.Strategy))
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Path, err)
		}
		src.Strategy = strategy
	}

	return &Iterator{
		sources:    sources,
		claimantID: uuid.NewString(),
	}, nil
}

// ClaimantID returns the unique identity this iterator stakes files under.
func (i *Iterator) ClaimantID() string {
	return i.claimantID
}

// Run iterates every source in order, processing at most maxFiles stake
// attempts across all of them; maxFiles <= 0 means unbounded.
//
// Sources are independent: a source that fails to list is reported and its
// siblings still run. Run returns one Report per source, in source order.
func (i *Iterator) Run(ctx context.Context, cb Callback, maxFiles int) []Report {
	stamp := time.Now().UTC()
	q := &quota{limit: maxFiles}
	log := &runLog{}

	logger.Info("run %s starting over %d sources (max files: %d)", i.claimantID, len(i.sources), maxFiles)
	log.record("run %s started", i.claimantID)

	reports := make([]Report, 0, len(i.sources))
	for _, src := range i.sources {
		reports = append(reports, src.iterate(ctx, cb, q, i.claimantID, stamp, log))
	}

	totals := Sum(reports)
	log.record("run %s finished: %d attempted, %d succeeded, %d failed, %d conflicted",
		i.claimantID, totals.Attempted, totals.Succeeded, totals.Failed, totals.Conflicted)
	logger.Info("run %s finished: %d attempted, %d succeeded, %d failed, %d conflicted",
		i.claimantID, totals.Attempted, totals.Succeeded, totals.Failed, totals.Conflicted)

	deliverRunLogs(ctx, log, i.runlogDestinations(), i.claimantID, stamp)

	return reports
}

// runlogDestinations collects every destination across all sources; the run
// log writer deduplicates and filters for WriteRunlog itself.
func (i *Iterator) runlogDestinations() []*Destination {
	var all []*Destination
	for _, src := range i.sources {
		all = append(all, src.SuccessDestinations...)
		all = append(all, src.FailureDestinations...)
	}
	return all
}
