package capture

import (
	"context"
	"log"
	"sync"
	"time"
)

// Brightness bands. Values are average perceptual luma over the sampled
// frame, 0-255.
const (
	brightnessCritical = 5
	brightnessLow      = 30
	brightnessBright   = 150
)

// LightLevel classifies the ambient light.
type LightLevel string

const (
	LightCritical LightLevel = "critical"
	LightLow      LightLevel = "low"
	LightGood     LightLevel = "good"
	LightBright   LightLevel = "bright"
)

// Advice is the lighting guidance emitted for the UI shell.
type Advice struct {
	Level             LightLevel `json:"level"`
	Brightness        float64    `json:"brightness"`
	Message           string     `json:"message"`
	NeedsIllumination bool       `json:"needs_illumination"`
}

// sampleGrid is the side length of the downscaled sampling grid; a 100x100
// subsample is plenty to estimate average brightness.
const sampleGrid = 100

// AnalyzeFrame computes the average perceptual brightness of a frame using
// the Rec.601 luma weights (0.299 R + 0.587 G + 0.114 B), sampled on a
// downscaled grid rather than every pixel.
func AnalyzeFrame(f Frame) float64 {
	if f.Width == 0 || f.Height == 0 || len(f.Pixels) < f.Width*f.Height*4 {
		return 0
	}

	stepX := f.Width / sampleGrid
	if stepX < 1 {
		stepX = 1
	}
	stepY := f.Height / sampleGrid
	if stepY < 1 {
		stepY = 1
	}

	var sum float64
	var count int
	for y := 0; y < f.Height; y += stepY {
		for x := 0; x < f.Width; x += stepX {
			i := (y*f.Width + x) * 4
			r := float64(f.Pixels[i])
			g := float64(f.Pixels[i+1])
			b := float64(f.Pixels[i+2])
			sum += 0.299*r + 0.587*g + 0.114*b
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// ClassifyBrightness maps an average brightness to guidance for the user.
func ClassifyBrightness(brightness float64) Advice {
	switch {
	case brightness < brightnessCritical:
		return Advice{
			Level:             LightCritical,
			Brightness:        brightness,
			Message:           "Too dark to scan. Turn on a light or enable the flashlight.",
			NeedsIllumination: true,
		}
	case brightness < brightnessLow:
		return Advice{
			Level:             LightLow,
			Brightness:        brightness,
			Message:           "Low light. Move closer to a light source for reliable scanning.",
			NeedsIllumination: true,
		}
	case brightness <= brightnessBright:
		return Advice{Level: LightGood, Brightness: brightness, Message: "Lighting is good."}
	default:
		return Advice{
			Level:      LightBright,
			Brightness: brightness,
			Message:    "Very bright. Avoid direct light on the code to prevent glare.",
		}
	}
}

// FlickerRecorder observes torch toggles. Each toggle is a visible light
// change for the user, so the monitor counts them as flicker events.
type FlickerRecorder interface {
	RecordFlicker()
}

// LightingAdviser samples ambient brightness from the device at a fixed
// interval, independent of scan events, and may autonomously toggle the
// torch when light stays critical.
type LightingAdviser struct {
	device   Device
	interval time.Duration
	recorder FlickerRecorder // optional

	mu      sync.Mutex
	current Advice
	torchOn bool
}

func NewLightingAdviser(device Device, interval time.Duration, recorder FlickerRecorder) *LightingAdviser {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &LightingAdviser{
		device:   device,
		interval: interval,
		recorder: recorder,
		current:  Advice{Level: LightGood, Message: "Lighting is good."},
	}
}

// Run samples until ctx is cancelled. Scans never block on this loop.
func (a *LightingAdviser) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sample(ctx)
		}
	}
}

func (a *LightingAdviser) sample(ctx context.Context) {
	frame, err := a.device.SampleFrame(ctx)
	if err != nil {
		log.Printf("[Lighting] Frame sample failed: %v", err)
		return
	}

	advice := ClassifyBrightness(AnalyzeFrame(frame))

	a.mu.Lock()
	a.current = advice
	wantTorch := advice.Level == LightCritical
	changed := wantTorch != a.torchOn
	if changed {
		a.torchOn = wantTorch
	}
	a.mu.Unlock()

	// Only act on state change; re-toggling every sample makes the camera
	// flicker.
	if changed {
		if err := a.device.SetTorch(wantTorch); err != nil {
			log.Printf("[Lighting] Failed to set torch %v: %v", wantTorch, err)
		} else {
			log.Printf("[Lighting] Torch %s (brightness %.1f)", onOff(wantTorch), advice.Brightness)
			if a.recorder != nil {
				a.recorder.RecordFlicker()
			}
		}
	}
}

// Current returns the latest advice.
func (a *LightingAdviser) Current() Advice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
