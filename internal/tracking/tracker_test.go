package tracking

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestTracker(t *testing.T, maxAttempts int, opts ...Option) *ErrorTracker {
	t.Helper()
	tracker, err := New(maxAttempts, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tracker
}

func TestNew_RejectsInvalidArguments(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for zero max delivery attempts")
	}
	if _, err := New(-1); err == nil {
		t.Error("expected error for negative max delivery attempts")
	}
	if _, err := New(5, WithClock(nil)); err == nil {
		t.Error("expected error for nil clock")
	}
	if _, err := New(5, WithLogger(nil)); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestUntrackedID_IsEmptyNotError(t *testing.T) {
	tracker := newTestTracker(t, 5)

	if tracker.HasFailedTooManyTimes("never-seen") {
		t.Error("untracked id reported as failed too many times")
	}
	if errs := tracker.Errors("never-seen"); len(errs) != 0 {
		t.Errorf("expected no errors for untracked id, got %d", len(errs))
	}
	if desc, ok := tracker.FullErrorDescription("never-seen"); ok {
		t.Errorf("expected no description for untracked id, got %q", desc)
	}
}

func TestHasFailedTooManyTimes_ThresholdBoundary(t *testing.T) {
	tracker := newTestTracker(t, 5)

	for i := 0; i < 4; i++ {
		tracker.RegisterError("A", fmt.Errorf("attempt %d", i+1))
	}
	if tracker.HasFailedTooManyTimes("A") {
		t.Error("tripped after 4 of 5 attempts")
	}

	tracker.RegisterError("A", errors.New("attempt 5"))
	if !tracker.HasFailedTooManyTimes("A") {
		t.Error("did not trip after 5 of 5 attempts")
	}
}

func TestMarkAsFinal_UnseenID(t *testing.T) {
	tracker := newTestTracker(t, 5)

	tracker.MarkAsFinal("B")

	if !tracker.HasFailedTooManyTimes("B") {
		t.Error("final message not reported as failed too many times")
	}
	if errs := tracker.Errors("B"); len(errs) != 0 {
		t.Errorf("expected empty history for final unseen id, got %d errors", len(errs))
	}

	// Idempotent
	tracker.MarkAsFinal("B")
	if !tracker.HasFailedTooManyTimes("B") {
		t.Error("second MarkAsFinal changed the outcome")
	}
}

func TestRegisterError_AfterMarkAsFinal(t *testing.T) {
	tracker := newTestTracker(t, 5)

	tracker.MarkAsFinal("C")
	tracker.RegisterError("C", errors.New("late failure"))

	// The final flag does not suppress history accumulation.
	if got := len(tracker.Errors("C")); got != 1 {
		t.Errorf("expected the late failure to be recorded, got %d errors", got)
	}
	if !tracker.HasFailedTooManyTimes("C") {
		t.Error("registering an error cleared the final flag")
	}
}

func TestErrors_PreserveRegistrationOrder(t *testing.T) {
	tracker := newTestTracker(t, 100)

	for i := 0; i < 10; i++ {
		tracker.RegisterError("D", fmt.Errorf("failure %d", i))
	}

	errs := tracker.Errors("D")
	if len(errs) != 10 {
		t.Fatalf("expected 10 errors, got %d", len(errs))
	}
	for i, err := range errs {
		if want := fmt.Sprintf("failure %d", i); err.Error() != want {
			t.Errorf("error %d = %q, want %q", i, err.Error(), want)
		}
	}
}

func TestFullErrorDescription(t *testing.T) {
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	current := base
	tracker := newTestTracker(t, 5, WithClock(func() time.Time { return current }))

	tracker.RegisterError("E", errors.New("first boom"))
	current = base.Add(time.Minute)
	tracker.RegisterError("E", errors.New("second boom"))

	desc, ok := tracker.FullErrorDescription("E")
	if !ok {
		t.Fatal("expected a description")
	}
	if !strings.HasPrefix(desc, "2 handling failure(s)") {
		t.Errorf("description does not report the count: %q", desc)
	}
	for _, want := range []string{"first boom", "second boom", base.Format(time.RFC3339Nano)} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q: %q", want, desc)
		}
	}
	if strings.Index(desc, "first boom") > strings.Index(desc, "second boom") {
		t.Errorf("failures out of order in description: %q", desc)
	}
}

func TestCleanUp_BehavesAsNeverSeen(t *testing.T) {
	tracker := newTestTracker(t, 2)

	tracker.RegisterError("F", errors.New("boom"))
	tracker.RegisterError("F", errors.New("boom again"))
	tracker.MarkAsFinal("F")

	tracker.CleanUp("F")

	if tracker.HasFailedTooManyTimes("F") {
		t.Error("cleaned-up id still reported as failed")
	}
	if errs := tracker.Errors("F"); len(errs) != 0 {
		t.Errorf("cleaned-up id still has %d errors", len(errs))
	}
	if _, ok := tracker.FullErrorDescription("F"); ok {
		t.Error("cleaned-up id still has a description")
	}

	// Removing an absent key is a no-op.
	tracker.CleanUp("F")
}

func TestTrackedIDs(t *testing.T) {
	tracker := newTestTracker(t, 5)

	tracker.RegisterError("one", errors.New("boom"))
	tracker.MarkAsFinal("two")

	ids := tracker.TrackedIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 tracked ids, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["one"] || !seen["two"] {
		t.Errorf("unexpected tracked ids: %v", ids)
	}
	if tracker.Len() != 2 {
		t.Errorf("Len = %d, want 2", tracker.Len())
	}
}

func TestRegisterError_ConcurrentSameID_NoLostUpdates(t *testing.T) {
	const n = 200
	tracker := newTestTracker(t, n+1)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(marker int) {
			defer wg.Done()
			tracker.RegisterError("contended", fmt.Errorf("marker-%d", marker))
		}(i)
	}
	wg.Wait()

	errs := tracker.Errors("contended")
	if len(errs) != n {
		t.Fatalf("lost updates: got %d errors, want %d", len(errs), n)
	}

	seen := make(map[string]bool, n)
	for _, err := range errs {
		if seen[err.Error()] {
			t.Errorf("duplicated failure %q", err.Error())
		}
		seen[err.Error()] = true
	}
	for i := 0; i < n; i++ {
		if !seen[fmt.Sprintf("marker-%d", i)] {
			t.Errorf("missing marker-%d", i)
		}
	}
}

func TestConcurrent_MixedOperationsDistinctIDs(t *testing.T) {
	tracker := newTestTracker(t, 3)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("msg-%d", i)
			tracker.RegisterError(id, errors.New("boom"))
			tracker.MarkAsFinal(id)
			if !tracker.HasFailedTooManyTimes(id) {
				t.Errorf("%s not final after MarkAsFinal", id)
			}
			tracker.CleanUp(id)
		}(i)
	}
	wg.Wait()

	if got := tracker.Len(); got != 0 {
		t.Errorf("expected empty tracker, %d records left", got)
	}
}
