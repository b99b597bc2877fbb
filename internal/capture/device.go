package capture

import (
	"context"
	"log"
	"sync"
)

// Frame is one decoded video frame in RGBA byte order.
type Frame struct {
	Width  int
	Height int
	Pixels []byte // len == Width*Height*4
}

// Capabilities is the raw capability answer of a capture device.
type Capabilities struct {
	CameraCount      int
	AdvancedControls bool // focus/exposure/white-balance constraints supported
	MaxWidth         int
	MaxFrameRate     int
	Torch            bool
}

// Settings are the capture parameters the pipeline requests from the device.
type Settings struct {
	Width        int
	Height       int
	FrameRate    int
	FocusMode    string // "" or "continuous"
	ExposureMode string // "" or "continuous"
	WhiteBalance string // "" or "manual-warm"
	Torch        bool
}

// Device abstracts the camera so the sequencing/feedback core stays testable
// without hardware. Implementations live at the edge (browser bridge, kiosk
// driver, simulator).
type Device interface {
	Capabilities() (Capabilities, error)
	Apply(settings Settings) error
	SampleFrame(ctx context.Context) (Frame, error)
	SetTorch(on bool) error
	Close() error
}

// Profile is the cached capability snapshot used for adaptation decisions.
// Computed once per session.
type Profile struct {
	CameraCount      int
	AdvancedControls bool
	HighRes          bool // advertises >=1920 wide capture at >=30 fps
	Torch            bool
}

// fallbackProfile is used when the capability probe fails: a single
// low-resolution camera with no advanced controls.
var fallbackProfile = Profile{CameraCount: 1}

// Prober probes a device's capabilities exactly once and caches the result
// for the session lifetime. Probe failure degrades to the conservative
// fallback profile instead of failing the caller.
type Prober struct {
	once    sync.Once
	profile Profile
}

func (p *Prober) Profile(dev Device) Profile {
	p.once.Do(func() {
		caps, err := dev.Capabilities()
		if err != nil {
			log.Printf("[Capture] Capability probe failed, using fallback profile: %v", err)
			p.profile = fallbackProfile
			return
		}
		p.profile = Profile{
			CameraCount:      caps.CameraCount,
			AdvancedControls: caps.AdvancedControls,
			HighRes:          caps.MaxWidth >= 1920 && caps.MaxFrameRate >= 30,
			Torch:            caps.Torch,
		}
	})
	return p.profile
}
