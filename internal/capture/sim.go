package capture

import (
	"context"
	"sync"
)

// SimulatedDevice is a hardware-free Device used in development and tests:
// it answers a fixed capability set and produces uniform gray frames at the
// configured brightness. Deployments attach a real kiosk/browser bridge
// instead.
type SimulatedDevice struct {
	mu         sync.Mutex
	caps       Capabilities
	brightness uint8
	settings   Settings
	torch      bool
	closed     bool
}

func NewSimulatedDevice(caps Capabilities, brightness uint8) *SimulatedDevice {
	return &SimulatedDevice{caps: caps, brightness: brightness}
}

func (d *SimulatedDevice) Capabilities() (Capabilities, error) {
	return d.caps, nil
}

func (d *SimulatedDevice) Apply(settings Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = settings
	return nil
}

// SetBrightness changes the simulated ambient light.
func (d *SimulatedDevice) SetBrightness(v uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.brightness = v
}

func (d *SimulatedDevice) SampleFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	d.mu.Lock()
	w, h := d.settings.Width, d.settings.Height
	v := d.brightness
	d.mu.Unlock()

	if w == 0 || h == 0 {
		w, h = 320, 240
	}
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = v
		pixels[i+1] = v
		pixels[i+2] = v
		pixels[i+3] = 255
	}
	return Frame{Width: w, Height: h, Pixels: pixels}, nil
}

func (d *SimulatedDevice) SetTorch(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.torch = on
	return nil
}

// Torch reports the simulated torch state.
func (d *SimulatedDevice) Torch() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.torch
}

func (d *SimulatedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *SimulatedDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
