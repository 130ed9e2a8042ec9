package api

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// SyncKind selects which backend queue a trigger kicks.
type SyncKind string

const (
	// SyncSourceIngestion re-ingests task sources.
	SyncSourceIngestion SyncKind = "source-ingestion"
	// SyncRICURecalculation recomputes priority scores.
	SyncRICURecalculation SyncKind = "ricu-recalculation"
)

// DefaultSyncCooldown suppresses duplicate server-side work.
const DefaultSyncCooldown = 5 * time.Minute

// SyncTrigger throttles one-shot sync requests: per-kind cooldown plus a
// single in-flight flag so only one sync cycle runs at a time per process.
type SyncTrigger struct {
	client   *Client
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inflight bool
	last     map[SyncKind]time.Time
}

// SyncOption configures a SyncTrigger.
type SyncOption func(*SyncTrigger)

// WithCooldown overrides the suppression window.
func WithCooldown(d time.Duration) SyncOption {
	return func(s *SyncTrigger) { s.cooldown = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncTrigger) { s.now = now }
}

// NewSyncTrigger wraps a client with trigger throttling.
func NewSyncTrigger(client *Client, opts ...SyncOption) *SyncTrigger {
	s := &SyncTrigger{
		client:   client,
		cooldown: DefaultSyncCooldown,
		now:      time.Now,
		last:     make(map[SyncKind]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger requests one sync cycle. It reports whether a request was actually
// sent: a call inside the cooldown window or while another trigger is
// in flight is a coalesced no-op. Force bypasses the cooldown but not the
// in-flight coalescing.
func (s *SyncTrigger) Trigger(ctx context.Context, kind SyncKind, force bool) (bool, error) {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return false, nil
	}
	if !force {
		if at, ok := s.last[kind]; ok && s.now().Sub(at) < s.cooldown {
			s.mu.Unlock()
			return false, nil
		}
	}
	s.inflight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight = false
		s.mu.Unlock()
	}()

	body := map[string]bool{"force": force}
	if err := s.client.doAuthed(ctx, http.MethodPost, s.path(kind), body, nil); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.last[kind] = s.now()
	s.mu.Unlock()
	return true, nil
}

func (s *SyncTrigger) path(kind SyncKind) string {
	if kind == SyncSourceIngestion {
		return "/api/queues/source-ingestion/trigger-all"
	}
	return "/api/queues/ricu-recalculation/trigger"
}
