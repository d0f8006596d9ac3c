package usecases

import "sync"

// RequestSlot orders requests for one logical slot (an estimation form, a chat box).
// Each Begin issues a monotonically increasing token; only the latest token may commit,
// so a slow stale response cannot overwrite a newer one.
type RequestSlot struct {
	mu      sync.Mutex
	latest  uint64
	pending bool
}

// Begin starts a request and returns its token.
func (s *RequestSlot) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.pending = true
	return s.latest
}

// TryBegin starts a request only when none is pending.
func (s *RequestSlot) TryBegin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return 0, false
	}
	s.latest++
	s.pending = true
	return s.latest, true
}

// Commit runs apply if token is still the latest request, and reports whether it ran.
// A stale token is dropped without running apply.
func (s *RequestSlot) Commit(token uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.latest {
		return false
	}
	s.pending = false
	if apply != nil {
		apply()
	}
	return true
}

// Pending reports whether the latest request has not committed yet.
func (s *RequestSlot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Cancel invalidates any in-flight request, so its Commit is dropped,
// and frees the slot for the next TryBegin.
func (s *RequestSlot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.pending = false
}
