package domain

import "time"

// Failure is one recorded handling failure for a message.
type Failure struct {
	Time time.Time
	Err  error
}

// FailureRecord is an immutable snapshot of the failure history for one
// message. Every transition (append, mark final) builds a new record; the
// stored value is never edited in place. Whole-value replacement is what
// makes the tracker's compare-and-swap update loop correct.
type FailureRecord struct {
	final     bool
	createdAt time.Time
	failures  []Failure
}

// NewFailureRecord returns an empty, non-final record created at the given
// time. The creation time is the activity fallback for records that carry
// no failures, which happens when a message is marked final before any
// error was registered.
func NewFailureRecord(createdAt time.Time) *FailureRecord {
	return &FailureRecord{createdAt: createdAt}
}

// WithFailure returns a copy of the record with the failure appended.
func (r *FailureRecord) WithFailure(f Failure) *FailureRecord {
	failures := make([]Failure, len(r.failures)+1)
	copy(failures, r.failures)
	failures[len(failures)-1] = f

	return &FailureRecord{
		final:     r.final,
		createdAt: r.createdAt,
		failures:  failures,
	}
}

// AsFinal returns a copy of the record with the final flag set. The flag is
// sticky: no transition ever clears it.
func (r *FailureRecord) AsFinal() *FailureRecord {
	return &FailureRecord{
		final:     true,
		createdAt: r.createdAt,
		failures:  r.failures,
	}
}

// Final reports whether the message should be treated as permanently
// failed regardless of its failure count.
func (r *FailureRecord) Final() bool {
	return r.final
}

// Count returns the number of recorded failures.
func (r *FailureRecord) Count() int {
	return len(r.failures)
}

// Failures returns the recorded failures in registration order.
func (r *FailureRecord) Failures() []Failure {
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// LastActivity returns the time of the most recent failure, or the record's
// creation time when no failure was ever registered.
func (r *FailureRecord) LastActivity() time.Time {
	if len(r.failures) == 0 {
		return r.createdAt
	}
	return r.failures[len(r.failures)-1].Time
}
