package tracking

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/dispatch/internal/core/domain"
	"github.com/vietddude/dispatch/internal/metrics"
)

// Sweeper reclaims memory for messages with no recent failure activity.
// A sweep pass holds no lock across the scan: it collects stale ids from a
// range over the store, then evicts each one through the same unconditional
// remove path as CleanUp, so concurrent registrations on other ids never
// block.
type Sweeper struct {
	tracker *ErrorTracker
	maxAge  time.Duration
	log     *slog.Logger
}

// NewSweeper creates a Sweeper evicting records whose last activity is
// older than maxAge.
func NewSweeper(tracker *ErrorTracker, maxAge time.Duration) (*Sweeper, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("max age must be positive, got %v", maxAge)
	}

	return &Sweeper{
		tracker: tracker,
		maxAge:  maxAge,
		log:     tracker.log.With("component", "sweeper"),
	}, nil
}

// Sweep runs one scan-and-evict pass. Invoked on a fixed interval by the
// periodic task runner.
func (s *Sweeper) Sweep() {
	started := time.Now()
	now := s.tracker.now()

	var stale []string
	s.tracker.records.Range(func(k, v any) bool {
		rec := v.(*domain.FailureRecord)
		if now.Sub(rec.LastActivity()) > s.maxAge {
			stale = append(stale, k.(string))
		}
		return true
	})

	for _, id := range stale {
		s.tracker.CleanUp(id)
		s.log.Debug("Evicted stale failure record", "message_id", id)
	}

	metrics.RecordsSwept.Add(float64(len(stale)))
	metrics.TrackedRecords.Set(float64(s.tracker.Len()))
	metrics.SweepDuration.Observe(time.Since(started).Seconds())

	if len(stale) > 0 {
		s.log.Info("Removed stale failure records", "count", len(stale), "max_age", s.maxAge)
	}
}
