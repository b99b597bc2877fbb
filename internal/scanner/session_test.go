package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/boscod/scanpresence/internal/capture"
	"github.com/boscod/scanpresence/internal/feedback"
	"github.com/boscod/scanpresence/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, device capture.Device, fs *fakeStore) *Session {
	t.Helper()
	dispatcher := feedback.NewDispatcher(nil, nil, nil, nil, time.Millisecond)
	session := NewSession(device, NopDecoder{}, newTestSequencer(fs), dispatcher, metrics.NewMonitor(), SessionConfig{
		ScanCooldown:        2 * time.Second,
		LightSampleInterval: 10 * time.Millisecond,
		PreferredTier:       capture.TierMedium,
	})
	return session
}

func TestSessionScanPipeline(t *testing.T) {
	fs := newFakeStore()
	fs.addEmployee("EMP-001", "Alvin", true)
	session := newTestSession(t, nil, fs)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Equal(t, StatusReady, session.Status())

	result, err := session.HandleScan(context.Background(), "EMP-001")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, ActionFirstIn, result.Action)

	// Same code straight after: suppressed by the dedup gate, no error
	result, err = session.HandleScan(context.Background(), "EMP-001")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSessionScanErrorResetsToReady(t *testing.T) {
	fs := newFakeStore()
	session := newTestSession(t, nil, fs)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	_, err := session.HandleScan(context.Background(), "UNKNOWN")
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, KindValidation, scanErr.Kind)
	assert.Equal(t, StatusReady, session.Status())
}

func TestSessionTeardown(t *testing.T) {
	fs := newFakeStore()
	fs.addEmployee("EMP-001", "Alvin", true)
	device := capture.NewSimulatedDevice(capture.Capabilities{
		CameraCount:      2,
		AdvancedControls: true,
		MaxWidth:         1920,
		MaxFrameRate:     30,
	}, 90)
	session := newTestSession(t, device, fs)
	require.NoError(t, session.Start(context.Background()))

	statusCh := session.Subscribe()

	// Dedup cache is populated before teardown
	result, err := session.HandleScan(context.Background(), "EMP-001")
	require.NoError(t, err)
	require.NotNil(t, result)

	session.Stop()
	assert.True(t, device.Closed())

	// Subscribers are closed once teardown finishes
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-statusCh:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)

	// Stop is idempotent
	session.Stop()
}

func TestSessionDoubleStart(t *testing.T) {
	fs := newFakeStore()
	session := newTestSession(t, nil, fs)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	require.Error(t, session.Start(context.Background()))
}

func TestManagerSingleActiveSession(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(func() *Session { return newTestSession(t, nil, fs) })

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	_, err = m.Start(context.Background())
	require.Error(t, err)

	require.NoError(t, m.Stop())
	require.Error(t, m.Stop())

	// A fresh session can start after the previous one stopped
	_, err = m.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Stop())
}

// deadDevice fails every frame sample, like a camera unplugged mid-session.
type deadDevice struct {
	*capture.SimulatedDevice
}

func (d *deadDevice) SampleFrame(ctx context.Context) (capture.Frame, error) {
	return capture.Frame{}, fmt.Errorf("device disconnected")
}

func TestSessionCaptureFailureEndsSession(t *testing.T) {
	fs := newFakeStore()
	device := &deadDevice{SimulatedDevice: capture.NewSimulatedDevice(capture.Capabilities{
		CameraCount:      2,
		AdvancedControls: true,
		MaxWidth:         1920,
		MaxFrameRate:     30,
	}, 90)}
	monitor := metrics.NewMonitor()
	dispatcher := feedback.NewDispatcher(nil, nil, nil, nil, time.Millisecond)
	session := NewSession(device, NopDecoder{}, newTestSequencer(fs), dispatcher, monitor, SessionConfig{
		ScanCooldown:        2 * time.Second,
		LightSampleInterval: 10 * time.Millisecond,
		PreferredTier:       capture.TierMedium,
	})
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	// Consecutive frame failures end the session instead of spinning forever
	require.Eventually(t, func() bool {
		return session.Status() == StatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	failure := session.Failure()
	require.NotNil(t, failure)
	assert.Equal(t, KindCapture, failure.Kind)
	assert.Contains(t, failure.Message, "restart the session")
	assert.Equal(t, uint64(1), monitor.Snapshot().CameraRestarts)

	// Teardown ran and released the device
	require.Eventually(t, func() bool { return device.Closed() }, time.Second, 10*time.Millisecond)
}
