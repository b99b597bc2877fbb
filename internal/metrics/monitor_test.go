package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCountersAndRate(t *testing.T) {
	m := NewMonitor()

	// Nothing attempted yet: rate reads as perfect
	assert.Equal(t, 1.0, m.SuccessRate())

	for i := 0; i < 10; i++ {
		m.RecordAttempt()
	}
	for i := 0; i < 8; i++ {
		m.RecordSuccess(50 * time.Millisecond)
	}
	m.RecordError("validation: scan code not found")
	m.RecordError("transient: connection refused")

	s := m.Snapshot()
	assert.Equal(t, uint64(10), s.Attempts)
	assert.Equal(t, uint64(8), s.Successes)
	assert.Equal(t, uint64(2), s.Errors)
	assert.InDelta(t, 0.8, s.SuccessRate, 0.001)
	assert.Equal(t, int64(50), s.LastProcessingMS)
}

func TestMonitorRingBufferEvictsOldest(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 105; i++ {
		m.RecordError(fmt.Sprintf("err-%d", i))
	}

	events := m.Events()
	require.Len(t, events, 100)
	assert.Equal(t, "err-5", events[0].Detail)
	assert.Equal(t, "err-104", events[99].Detail)
}

func TestMonitorRecommendations(t *testing.T) {
	m := NewMonitor()

	// Healthy pipeline: nothing to recommend
	for i := 0; i < 10; i++ {
		m.RecordAttempt()
		m.RecordSuccess(20 * time.Millisecond)
	}
	assert.Empty(t, m.Recommendations())

	// Low success rate triggers the lighting/resolution hint
	low := NewMonitor()
	for i := 0; i < 10; i++ {
		low.RecordAttempt()
	}
	low.RecordSuccess(20 * time.Millisecond)
	recs := low.Recommendations()
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "80%")

	// Flicker and restart counters surface their own hints
	noisy := NewMonitor()
	for i := 0; i < 5; i++ {
		noisy.RecordFlicker()
	}
	for i := 0; i < 3; i++ {
		noisy.RecordRestart("device busy")
	}
	recs = noisy.Recommendations()
	assert.Len(t, recs, 2)
}

func TestMonitorReport(t *testing.T) {
	m := NewMonitor()
	m.RecordAttempt()
	m.RecordSuccess(120 * time.Millisecond)

	report := m.Report()
	assert.Contains(t, report, "scan attempts: 1")
	assert.Contains(t, report, "success rate:  100.0%")
	assert.Contains(t, report, "120ms")
}

func TestMonitorFPS(t *testing.T) {
	m := NewMonitor()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	current := base
	m.now = func() time.Time { return current }

	// 40 frames over 2 seconds -> 20 fps once the window closes
	for i := 0; i < 41; i++ {
		current = base.Add(time.Duration(i) * 50 * time.Millisecond)
		m.RecordFrame()
	}
	assert.InDelta(t, 20.0, m.Snapshot().FPS, 1.0)
}

func TestBuildWorkbook(t *testing.T) {
	m := NewMonitor()
	m.RecordAttempt()
	m.RecordSuccess(30 * time.Millisecond)
	m.RecordError("validation: scan code not found")

	f, err := BuildWorkbook(m)
	require.NoError(t, err)

	kind, err := f.GetCellValue("Events", "B2")
	require.NoError(t, err)
	assert.Equal(t, "attempt", kind)

	label, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Attempts", label)
}
