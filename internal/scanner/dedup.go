package scanner

import (
	"sync"
	"time"
)

// DefaultScanCooldown is the suppression window for repeat detections of the
// same code.
const DefaultScanCooldown = 2 * time.Second

// Deduplicator drops rapid repeat detections of the same scan code. The map
// is process-local, unbounded for the session lifetime and cleared on
// teardown.
type Deduplicator struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	cooldown time.Duration
}

func NewDeduplicator(cooldown time.Duration) *Deduplicator {
	if cooldown <= 0 {
		cooldown = DefaultScanCooldown
	}
	return &Deduplicator{
		lastSeen: make(map[string]time.Time),
		cooldown: cooldown,
	}
}

// ShouldProcess reports whether a detection of code at now should enter the
// pipeline. On acceptance it records now immediately, before the caller
// starts validating against the remote store, so a duplicate frame arriving
// mid-validation is already gated.
func (d *Deduplicator) ShouldProcess(code string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSeen[code]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.lastSeen[code] = now
	return true
}

// Reset discards the cache. Called on scanner shutdown.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeen = make(map[string]time.Time)
}
