package iterator

// Report summarises the outcome of iterating a single source.
type Report struct {
	// Source is the listing path of the source this report covers.
	Source string

	// Attempted counts stake attempts, including ones lost to a
	// competing claimant. Each attempt consumes quota.
	Attempted int

	// Succeeded counts files whose callback completed without error.
	Succeeded int

	// Failed counts files whose callback returned an error or panicked.
	Failed int

	// Conflicted counts stake attempts lost to another claimant.
	Conflicted int

	// ListingErr is set when the source could not be listed; no files
	// were attempted for this source.
	ListingErr error

	// CleanupErrs holds per-file delivery and remote-delete failures.
	// They do not abort the run but are surfaced for operators.
	CleanupErrs []error
}

// Totals aggregates a slice of per-source reports.
type Totals struct {
	Attempted  int
	Succeeded  int
	Failed     int
	Conflicted int
}

// Sum computes run-wide totals across reports.
func Sum(reports []Report) Totals {
	var t Totals
	for _, r := range reports {
		t.Attempted += r.Attempted
		t.Succeeded += r.Succeeded
		t.Failed += r.Failed
		t.Conflicted += r.Conflicted
	}
	return t
}
