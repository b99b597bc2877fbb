package capture

// Tier is the caller's resolution/frame-rate preference.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

var tierSettings = map[Tier]Settings{
	TierLow:    {Width: 640, Height: 480, FrameRate: 10},
	TierMedium: {Width: 1280, Height: 720, FrameRate: 20},
	TierHigh:   {Width: 1920, Height: 1080, FrameRate: 30},
}

// SelectSettings picks the capture parameters for a device profile.
//
// Single-camera or no-advanced-control devices get the lowest safe tier.
// Devices advertising 1920-wide/30fps capture get the requested tier,
// defaulting to medium. Everything in between is capped at medium. Torch is
// always off here; only the lighting adviser turns it on, under critical
// light.
func SelectSettings(profile Profile, preferred Tier) Settings {
	if preferred == "" {
		preferred = TierMedium
	}

	tier := preferred
	switch {
	case profile.CameraCount <= 1 || !profile.AdvancedControls:
		tier = TierLow
	case !profile.HighRes && tier == TierHigh:
		tier = TierMedium
	}

	settings := tierSettings[tier]
	settings.Torch = false

	// Fine-grained constraints are only attached when the device advertises
	// support; requesting them blindly makes some drivers reject the whole
	// constraint set.
	if profile.AdvancedControls && tier != TierLow {
		settings.FocusMode = "continuous"
		settings.ExposureMode = "continuous"
		settings.WhiteBalance = "manual-warm"
	}

	return settings
}
