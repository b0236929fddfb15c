package tracking

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/dispatch/internal/core/domain"
	"github.com/vietddude/dispatch/internal/metrics"
)

// ErrorTracker records the failure history of in-flight messages and
// decides when a message has failed too many times to keep retrying.
//
// The store maps message id -> *domain.FailureRecord. Records are immutable
// snapshots; every update installs a replacement through an optimistic
// load/compare-and-swap loop, so callers for distinct ids never contend and
// concurrent callers for the same id are serialized by CAS success order.
// No successful call's effect is lost: a losing attempt retries against the
// latest snapshot.
type ErrorTracker struct {
	maxDeliveryAttempts int
	records             sync.Map // message id -> *domain.FailureRecord
	now                 func() time.Time
	log                 *slog.Logger
}

// Option configures an ErrorTracker.
type Option func(*ErrorTracker)

// WithClock overrides the time source. Used by tests and by hosts with
// their own clock discipline.
func WithClock(now func() time.Time) Option {
	return func(t *ErrorTracker) { t.now = now }
}

// WithLogger overrides the logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *ErrorTracker) { t.log = log }
}

// New creates an ErrorTracker. maxDeliveryAttempts is the failure count at
// which HasFailedTooManyTimes trips.
func New(maxDeliveryAttempts int, opts ...Option) (*ErrorTracker, error) {
	t := &ErrorTracker{
		maxDeliveryAttempts: maxDeliveryAttempts,
		now:                 time.Now,
		log:                 slog.Default().With("component", "tracking"),
	}
	for _, opt := range opts {
		opt(t)
	}

	if maxDeliveryAttempts <= 0 {
		return nil, fmt.Errorf("max delivery attempts must be positive, got %d", maxDeliveryAttempts)
	}
	if t.now == nil {
		return nil, fmt.Errorf("clock must not be nil")
	}
	if t.log == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return t, nil
}

// MarkAsFinal flags the message as permanently failed. The history is kept;
// a never-seen id gets an empty final record. Idempotent.
func (t *ErrorTracker) MarkAsFinal(id string) {
	for {
		cur, ok := t.records.Load(id)
		if !ok {
			fresh := domain.NewFailureRecord(t.now()).AsFinal()
			if _, raced := t.records.LoadOrStore(id, fresh); !raced {
				return
			}
			continue
		}

		prev := cur.(*domain.FailureRecord)
		if prev.Final() {
			return
		}
		if t.records.CompareAndSwap(id, prev, prev.AsFinal()) {
			return
		}
	}
}

// RegisterError appends a failure to the message's record, creating the
// record if this is the first failure seen for the id. A record already
// marked final keeps accumulating failures; the flag only stops retries,
// not bookkeeping.
func (t *ErrorTracker) RegisterError(id string, cause error) {
	failure := domain.Failure{Time: t.now(), Err: cause}

	var rec *domain.FailureRecord
	for {
		cur, ok := t.records.Load(id)
		if !ok {
			fresh := domain.NewFailureRecord(failure.Time).WithFailure(failure)
			if _, raced := t.records.LoadOrStore(id, fresh); raced {
				continue
			}
			rec = fresh
			break
		}

		prev := cur.(*domain.FailureRecord)
		next := prev.WithFailure(failure)
		if t.records.CompareAndSwap(id, prev, next) {
			rec = next
			break
		}
	}

	metrics.ErrorsRegistered.WithLabelValues(strconv.FormatBool(rec.Final())).Inc()

	if rec.Final() {
		t.log.Warn("Error while handling message marked as final",
			"message_id", id, "error_count", rec.Count(), "error", cause)
		return
	}
	t.log.Warn("Error while handling message",
		"message_id", id, "error_count", rec.Count(), "error", cause)
}

// HasFailedTooManyTimes reports whether the message should stop being
// retried: it is marked final, or its failure count reached the configured
// maximum. An untracked id has not failed at all.
func (t *ErrorTracker) HasFailedTooManyTimes(id string) bool {
	cur, ok := t.records.Load(id)
	if !ok {
		return false
	}
	rec := cur.(*domain.FailureRecord)
	return rec.Final() || rec.Count() >= t.maxDeliveryAttempts
}

// FullErrorDescription renders the message's failure history for humans:
// the count, then each failure's timestamp and detail in registration
// order. The second return is false for an untracked id.
func (t *ErrorTracker) FullErrorDescription(id string) (string, bool) {
	cur, ok := t.records.Load(id)
	if !ok {
		return "", false
	}
	rec := cur.(*domain.FailureRecord)

	var b strings.Builder
	fmt.Fprintf(&b, "%d handling failure(s)", rec.Count())
	for _, f := range rec.Failures() {
		fmt.Fprintf(&b, "\n%s: %v", f.Time.Format(time.RFC3339Nano), f.Err)
	}
	return b.String(), true
}

// Errors returns the recorded failure causes in registration order, nil for
// an untracked id.
func (t *ErrorTracker) Errors(id string) []error {
	cur, ok := t.records.Load(id)
	if !ok {
		return nil
	}
	rec := cur.(*domain.FailureRecord)

	errs := make([]error, 0, rec.Count())
	for _, f := range rec.Failures() {
		errs = append(errs, f.Err)
	}
	return errs
}

// CleanUp removes the message's record unconditionally. Removing an
// untracked id is a no-op.
func (t *ErrorTracker) CleanUp(id string) {
	t.records.Delete(id)
}

// TrackedIDs returns a snapshot of the ids currently tracked.
func (t *ErrorTracker) TrackedIDs() []string {
	var ids []string
	t.records.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	return ids
}

// Len returns the number of records currently tracked.
func (t *ErrorTracker) Len() int {
	n := 0
	t.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
