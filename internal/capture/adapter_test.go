package capture

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectSettingsLowTierForBasicDevices(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
	}{
		{"single camera", Profile{CameraCount: 1, AdvancedControls: true, HighRes: true}},
		{"no advanced controls", Profile{CameraCount: 2, AdvancedControls: false, HighRes: true}},
		{"fallback profile", fallbackProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SelectSettings(tt.profile, TierHigh)
			assert.Equal(t, 640, s.Width)
			assert.Equal(t, 10, s.FrameRate)
			assert.Empty(t, s.FocusMode)
			assert.Empty(t, s.WhiteBalance)
			assert.False(t, s.Torch)
		})
	}
}

func TestSelectSettingsHonorsPreferenceOnCapableDevices(t *testing.T) {
	profile := Profile{CameraCount: 2, AdvancedControls: true, HighRes: true}

	s := SelectSettings(profile, TierHigh)
	assert.Equal(t, 1920, s.Width)
	assert.Equal(t, 30, s.FrameRate)
	assert.Equal(t, "continuous", s.FocusMode)
	assert.Equal(t, "continuous", s.ExposureMode)
	assert.Equal(t, "manual-warm", s.WhiteBalance)

	// Default preference is medium
	s = SelectSettings(profile, "")
	assert.Equal(t, 1280, s.Width)
	assert.Equal(t, 20, s.FrameRate)
}

func TestSelectSettingsCapsHighAtMediumWithoutHighRes(t *testing.T) {
	profile := Profile{CameraCount: 2, AdvancedControls: true, HighRes: false}

	s := SelectSettings(profile, TierHigh)
	assert.Equal(t, 1280, s.Width)
	assert.Equal(t, 20, s.FrameRate)
}

func TestSelectSettingsTorchAlwaysOff(t *testing.T) {
	// Adaptation must never turn the torch on; only the lighting adviser does
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		s := SelectSettings(Profile{CameraCount: 2, AdvancedControls: true, HighRes: true, Torch: true}, tier)
		assert.False(t, s.Torch)
	}
}

// countingDevice counts capability probes and can be made to fail them.
type countingDevice struct {
	*SimulatedDevice
	probes   int
	probeErr error
}

func (d *countingDevice) Capabilities() (Capabilities, error) {
	d.probes++
	if d.probeErr != nil {
		return Capabilities{}, d.probeErr
	}
	return d.SimulatedDevice.Capabilities()
}

func TestProberCachesProbe(t *testing.T) {
	dev := &countingDevice{SimulatedDevice: NewSimulatedDevice(Capabilities{
		CameraCount:      2,
		AdvancedControls: true,
		MaxWidth:         1920,
		MaxFrameRate:     30,
	}, 90)}

	var p Prober
	first := p.Profile(dev)
	second := p.Profile(dev)

	assert.Equal(t, 1, dev.probes)
	assert.Equal(t, first, second)
	assert.True(t, first.HighRes)
	assert.True(t, first.AdvancedControls)
}

func TestProberFallsBackOnProbeFailure(t *testing.T) {
	dev := &countingDevice{probeErr: fmt.Errorf("NotAllowedError")}

	var p Prober
	profile := p.Profile(dev)
	require.Equal(t, fallbackProfile, profile)

	// The caller still gets usable conservative settings
	s := SelectSettings(profile, TierHigh)
	assert.Equal(t, 640, s.Width)
	assert.Equal(t, 10, s.FrameRate)
}

func TestSimulatedDeviceFrame(t *testing.T) {
	dev := NewSimulatedDevice(Capabilities{CameraCount: 1}, 42)
	require.NoError(t, dev.Apply(Settings{Width: 100, Height: 80}))

	frame, err := dev.SampleFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, frame.Width)
	assert.Equal(t, 80, frame.Height)
	assert.Len(t, frame.Pixels, 100*80*4)
}
