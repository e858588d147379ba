package iterator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eonx-com/ferry/pkg/filesystem"
	"github.com/eonx-com/ferry/pkg/filesystem/memory"
)

func passThrough(ctx context.Context, stake *Stake) (Outcome, error) {
	return Outcome{}, nil
}

func seedIncoming(fs *memory.Filesystem, n int) {
	for i := 0; i < n; i++ {
		fs.Put(fmt.Sprintf("incoming/file-%d.csv", i), []byte(fmt.Sprintf("content-%d", i)))
	}
}

// Five files, a quota of two: exactly two are staked, delivered and removed
// from the source; the other three are untouched.
func TestSourceQuotaLimitsAttempts(t *testing.T) {
	src := memory.New()
	seedIncoming(src, 5)
	dst := memory.New()

	source := &Source{
		FS:                  src,
		Path:                "incoming",
		Strategy:            StrategyIgnore,
		DeleteOnSuccess:     true,
		SuccessDestinations: []*Destination{{FS: dst}},
	}

	report := source.iterate(context.Background(), passThrough, &quota{limit: 2}, "claimant-1", time.Now().UTC(), &runLog{})

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.CleanupErrs)

	assert.Equal(t, 2, dst.Len(), "two files delivered")
	assert.Equal(t, 3, src.Len(), "three files left on the source")
}

// A delivery refused by the destination's overwrite policy must leave the
// remote file in place, still under its renamed staked name.
func TestSourceFailedDeliveryBlocksRemoteDelete(t *testing.T) {
	src := memory.New()
	src.Put("incoming/a.csv", []byte("new"))

	dst := memory.New()
	dst.Put("incoming/a.csv", []byte("existing"))

	source := &Source{
		FS:                  src,
		Path:                "incoming",
		Strategy:            StrategyRename,
		DeleteOnSuccess:     true,
		SuccessDestinations: []*Destination{{FS: dst}},
	}

	report := source.iterate(context.Background(), passThrough, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	assert.Equal(t, 1, report.Succeeded, "the callback itself succeeded")
	require.Len(t, report.CleanupErrs, 1)
	assert.ErrorIs(t, report.CleanupErrs[0], filesystem.ErrAlreadyExists)

	// Destination keeps its original content, source keeps the staked copy.
	data, _ := dst.Get("incoming/a.csv")
	assert.Equal(t, []byte("existing"), data)
	_, ok := src.Get("incoming/a.csv.claimant-1.staked")
	assert.True(t, ok, "remote copy must remain under its staked name")
}

// A failing callback routes the file to the failure destinations while its
// sibling still reaches the success destinations; the run itself completes.
func TestSourceRoutesByCallbackOutcome(t *testing.T) {
	src := memory.New()
	src.Put("incoming/bad.csv", []byte("x"))
	src.Put("incoming/good.csv", []byte("y"))

	success := memory.New()
	failure := memory.New()

	source := &Source{
		FS:                  src,
		Path:                "incoming",
		Strategy:            StrategyIgnore,
		SuccessDestinations: []*Destination{{FS: success}},
		FailureDestinations: []*Destination{{FS: failure}},
	}

	cb := func(ctx context.Context, stake *Stake) (Outcome, error) {
		if stake.RemotePath == "incoming/bad.csv" {
			panic("corrupt record")
		}
		return Outcome{}, nil
	}

	report := source.iterate(context.Background(), cb, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	_, ok := success.Get("incoming/good.csv")
	assert.True(t, ok)
	_, ok = failure.Get("incoming/bad.csv")
	assert.True(t, ok)
}

// Staged local copies are destroyed whatever the outcome.
func TestSourceCleansUpStagedCopies(t *testing.T) {
	src := memory.New()
	src.Put("incoming/bad.csv", []byte("x"))
	src.Put("incoming/good.csv", []byte("y"))

	var staged []string
	cb := func(ctx context.Context, stake *Stake) (Outcome, error) {
		staged = append(staged, stake.LocalPath)
		if stake.RemotePath == "incoming/bad.csv" {
			return Outcome{}, errors.New("boom")
		}
		return Outcome{}, nil
	}

	source := &Source{FS: src, Path: "incoming", Strategy: StrategyIgnore}
	source.iterate(context.Background(), cb, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	require.Len(t, staged, 2)
	for _, local := range staged {
		_, err := os.Stat(local)
		assert.True(t, errors.Is(err, os.ErrNotExist), "staged copy %s should be gone", local)
	}
}

func TestSourceDeleteOnFailure(t *testing.T) {
	src := memory.New()
	src.Put("incoming/bad.csv", []byte("x"))

	failure := memory.New()

	source := &Source{
		FS:                  src,
		Path:                "incoming",
		Strategy:            StrategyIgnore,
		DeleteOnFailure:     true,
		FailureDestinations: []*Destination{{FS: failure}},
	}

	cb := func(ctx context.Context, stake *Stake) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	}

	report := source.iterate(context.Background(), cb, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, src.Len(), "failed file removed from the source")
	_, ok := failure.Get("incoming/bad.csv")
	assert.True(t, ok, "failed file delivered to the failure destination")
}

// Conflicted claims are counted, consume quota and never reach the callback.
func TestSourceCountsConflicts(t *testing.T) {
	src := memory.New()
	src.Put("incoming/a.csv.other.staked", []byte("x"))
	src.Put("incoming/b.csv", []byte("y"))

	var processed int
	cb := func(ctx context.Context, stake *Stake) (Outcome, error) {
		processed++
		return Outcome{}, nil
	}

	source := &Source{FS: src, Path: "incoming", Strategy: StrategyRename}
	report := source.iterate(context.Background(), cb, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Conflicted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, processed)
}

func TestSourceListingFailure(t *testing.T) {
	src := &listFails{Filesystem: memory.New()}

	source := &Source{FS: src, Path: "incoming", Strategy: StrategyIgnore}
	report := source.iterate(context.Background(), passThrough, &quota{}, "claimant-1", time.Now().UTC(), &runLog{})

	require.Error(t, report.ListingErr)
	assert.Equal(t, 0, report.Attempted)
}

// listFails wraps a filesystem whose listings always fail.
type listFails struct {
	filesystem.Filesystem
}

func (l *listFails) List(ctx context.Context, path string, recursive bool) ([]string, error) {
	return nil, errors.New("connection reset")
}
