package venue

import (
	"sync"

	"hldesk/internal/models"
)

// HealthTracker counts consecutive fetch failures per venue, in the style of
// internal/bot/recovery.go's notion of per-exchange state
// recovered after a restart, simplified here to the single signal the
// aggregator actually needs: whether a venue is currently misbehaving.
type HealthTracker struct {
	mu               sync.Mutex
	consecutiveFails map[models.Venue]int
}

// unhealthyAfter consecutive failures marks a venue unhealthy.
const unhealthyAfter = 3

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{consecutiveFails: make(map[models.Venue]int)}
}

func (h *HealthTracker) Record(venueName models.Venue, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.consecutiveFails[venueName]++
	} else {
		h.consecutiveFails[venueName] = 0
	}
}

func (h *HealthTracker) Healthy(venueName models.Venue) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFails[venueName] < unhealthyAfter
}

// Snapshot returns a venue->healthy map for every venue seen so far.
func (h *HealthTracker) Snapshot() map[models.Venue]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[models.Venue]bool, len(h.consecutiveFails))
	for v, fails := range h.consecutiveFails {
		out[v] = fails < unhealthyAfter
	}
	return out
}
