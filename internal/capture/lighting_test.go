package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformFrame(w, h int, r, g, b uint8) Frame {
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = r
		pixels[i+1] = g
		pixels[i+2] = b
		pixels[i+3] = 255
	}
	return Frame{Width: w, Height: h, Pixels: pixels}
}

func TestAnalyzeFrameUniform(t *testing.T) {
	// Gray frame: luma equals the channel value
	assert.InDelta(t, 128, AnalyzeFrame(uniformFrame(320, 240, 128, 128, 128)), 0.01)

	// Pure colors follow the Rec.601 weights
	assert.InDelta(t, 0.299*255, AnalyzeFrame(uniformFrame(320, 240, 255, 0, 0)), 0.01)
	assert.InDelta(t, 0.587*255, AnalyzeFrame(uniformFrame(320, 240, 0, 255, 0)), 0.01)
	assert.InDelta(t, 0.114*255, AnalyzeFrame(uniformFrame(320, 240, 0, 0, 255)), 0.01)
}

func TestAnalyzeFrameEmpty(t *testing.T) {
	assert.Zero(t, AnalyzeFrame(Frame{}))
	assert.Zero(t, AnalyzeFrame(Frame{Width: 10, Height: 10}))
}

func TestClassifyBrightnessBands(t *testing.T) {
	tests := []struct {
		brightness float64
		wantLevel  LightLevel
		wantAid    bool
	}{
		{0, LightCritical, true},
		{4.9, LightCritical, true},
		{5, LightLow, true},
		{29.9, LightLow, true},
		{30, LightGood, false},
		{150, LightGood, false},
		{150.1, LightBright, false},
		{255, LightBright, false},
	}

	for _, tt := range tests {
		advice := ClassifyBrightness(tt.brightness)
		assert.Equal(t, tt.wantLevel, advice.Level, "brightness %.1f", tt.brightness)
		assert.Equal(t, tt.wantAid, advice.NeedsIllumination, "brightness %.1f", tt.brightness)
		assert.NotEmpty(t, advice.Message)
	}
}

// torchCountingDevice records every SetTorch call.
type torchCountingDevice struct {
	*SimulatedDevice
	torchCalls []bool
}

func (d *torchCountingDevice) SetTorch(on bool) error {
	d.torchCalls = append(d.torchCalls, on)
	return d.SimulatedDevice.SetTorch(on)
}

func TestLightingAdviserTorchOnlyOnStateChange(t *testing.T) {
	dev := &torchCountingDevice{SimulatedDevice: NewSimulatedDevice(Capabilities{Torch: true}, 0)}
	adviser := NewLightingAdviser(dev, 0, nil)
	ctx := context.Background()

	// Critical light: torch goes on exactly once, no re-toggling per sample
	adviser.sample(ctx)
	adviser.sample(ctx)
	adviser.sample(ctx)
	require.Equal(t, []bool{true}, dev.torchCalls)
	assert.Equal(t, LightCritical, adviser.Current().Level)
	assert.True(t, adviser.Current().NeedsIllumination)

	// Light recovers: torch goes off once
	dev.SetBrightness(120)
	adviser.sample(ctx)
	adviser.sample(ctx)
	require.Equal(t, []bool{true, false}, dev.torchCalls)
	assert.Equal(t, LightGood, adviser.Current().Level)
}

// flickerCounter counts recorded flicker events.
type flickerCounter struct {
	count int
}

func (c *flickerCounter) RecordFlicker() { c.count++ }

func TestLightingAdviserRecordsFlickerPerToggle(t *testing.T) {
	dev := &torchCountingDevice{SimulatedDevice: NewSimulatedDevice(Capabilities{Torch: true}, 0)}
	recorder := &flickerCounter{}
	adviser := NewLightingAdviser(dev, 0, recorder)
	ctx := context.Background()

	// Torch on under critical light: one flicker event, not one per sample
	adviser.sample(ctx)
	adviser.sample(ctx)
	assert.Equal(t, 1, recorder.count)

	// Torch off on recovery: second flicker event
	dev.SetBrightness(120)
	adviser.sample(ctx)
	adviser.sample(ctx)
	assert.Equal(t, 2, recorder.count)
}
