package metrics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// EventKind classifies a diagnostic event.
type EventKind string

const (
	EventAttempt EventKind = "attempt"
	EventSuccess EventKind = "success"
	EventError   EventKind = "error"
	EventFlicker EventKind = "flicker"
	EventRestart EventKind = "restart"
)

// Event is one timestamped diagnostic record.
type Event struct {
	Kind   EventKind `json:"kind"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// ringSize bounds the retained event history; oldest entries are evicted
// first. Never persisted across sessions.
const ringSize = 100

// Snapshot is the metrics view exposed to the UI shell.
type Snapshot struct {
	Attempts         uint64  `json:"attempts"`
	Successes        uint64  `json:"successes"`
	Errors           uint64  `json:"errors"`
	FlickerEvents    uint64  `json:"flicker_events"`
	CameraRestarts   uint64  `json:"camera_restarts"`
	SuccessRate      float64 `json:"success_rate"`
	FPS              float64 `json:"fps"`
	LastProcessingMS int64   `json:"last_processing_ms"`
}

// Monitor passively observes the scan pipeline: monotonically increasing
// counters plus a bounded ring of recent events. Process-local only.
type Monitor struct {
	mu sync.Mutex

	attempts  uint64
	successes uint64
	errors    uint64
	flickers  uint64
	restarts  uint64

	events []Event // ring, oldest first

	lastProcessing time.Duration

	frameCount  int
	frameWindow time.Time
	fps         float64

	now func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

func (m *Monitor) record(kind EventKind, detail string) {
	ev := Event{Kind: kind, At: m.now(), Detail: detail}
	m.events = append(m.events, ev)
	if len(m.events) > ringSize {
		m.events = m.events[len(m.events)-ringSize:]
	}
}

func (m *Monitor) RecordAttempt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	m.record(EventAttempt, "")
}

func (m *Monitor) RecordSuccess(processing time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
	m.lastProcessing = processing
	m.record(EventSuccess, fmt.Sprintf("%dms", processing.Milliseconds()))
}

func (m *Monitor) RecordError(detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
	m.record(EventError, detail)
}

func (m *Monitor) RecordFlicker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flickers++
	m.record(EventFlicker, "")
}

func (m *Monitor) RecordRestart(detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts++
	m.record(EventRestart, detail)
}

// RecordFrame feeds the fps estimate; called from the capture loop.
func (m *Monitor) RecordFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if m.frameWindow.IsZero() {
		m.frameWindow = now
	}
	m.frameCount++
	if elapsed := now.Sub(m.frameWindow); elapsed >= 2*time.Second {
		m.fps = float64(m.frameCount) / elapsed.Seconds()
		m.frameCount = 0
		m.frameWindow = now
	}
}

// SuccessRate is successes/attempts, 1.0 when nothing was attempted yet.
func (m *Monitor) SuccessRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successRateLocked()
}

func (m *Monitor) successRateLocked() float64 {
	if m.attempts == 0 {
		return 1.0
	}
	return float64(m.successes) / float64(m.attempts)
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Attempts:         m.attempts,
		Successes:        m.successes,
		Errors:           m.errors,
		FlickerEvents:    m.flickers,
		CameraRestarts:   m.restarts,
		SuccessRate:      m.successRateLocked(),
		FPS:              m.fps,
		LastProcessingMS: m.lastProcessing.Milliseconds(),
	}
}

// Events returns a copy of the retained event ring, oldest first.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Report renders a human-readable summary.
func (m *Monitor) Report() string {
	s := m.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "scan attempts: %d\n", s.Attempts)
	fmt.Fprintf(&b, "successes:     %d\n", s.Successes)
	fmt.Fprintf(&b, "errors:        %d\n", s.Errors)
	fmt.Fprintf(&b, "flicker:       %d\n", s.FlickerEvents)
	fmt.Fprintf(&b, "restarts:      %d\n", s.CameraRestarts)
	fmt.Fprintf(&b, "success rate:  %.1f%%\n", s.SuccessRate*100)
	fmt.Fprintf(&b, "fps:           %.1f\n", s.FPS)
	fmt.Fprintf(&b, "last scan:     %dms", s.LastProcessingMS)
	return b.String()
}

// Recommendations derives tuning hints from the counters.
func (m *Monitor) Recommendations() []string {
	s := m.Snapshot()
	var recs []string
	if s.Attempts >= 5 && s.SuccessRate < 0.8 {
		recs = append(recs, "Success rate below 80%: improve lighting or raise the capture resolution tier.")
	}
	if s.FlickerEvents > 3 {
		recs = append(recs, "Frequent flicker events: keep the torch off during adaptation and check ambient light stability.")
	}
	if s.CameraRestarts > 2 {
		recs = append(recs, "Repeated camera restarts: the device may be busy in another app or underpowered for the selected tier.")
	}
	if s.LastProcessingMS > 1500 {
		recs = append(recs, "Slow scan processing: check attendance store latency.")
	}
	return recs
}

// Run logs a periodic report until ctx is cancelled. Independent of the scan
// event stream.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			log.Printf("[Monitor] attempts=%d successes=%d errors=%d rate=%.1f%% fps=%.1f",
				s.Attempts, s.Successes, s.Errors, s.SuccessRate*100, s.FPS)
		}
	}
}
