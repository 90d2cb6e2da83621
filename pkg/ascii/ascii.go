// Package ascii converts raster images to monochrome ASCII art by sampling
// luminance on a coarse grid and mapping brightness onto a character ramp.
package ascii

import (
	"errors"
	"fmt"
	"math"
)

// Ramps run from emptiest/darkest to fullest/brightest.
const (
	DenseRamp  = " .'`^\",:;Il!i><~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"
	SimpleRamp = " .:-=+*#%@"
)

// Ramp indexes for Settings.RampIndex
const (
	RampDense  = 0
	RampSimple = 1
)

var ramps = []string{DenseRamp, SimpleRamp}

// Output limits. A conversion never exceeds MaxWidth columns or MaxRows lines.
const (
	MaxWidth = 320
	MaxRows  = 480
)

// AspectCorrection compensates for monospace cells being taller than wide.
const AspectCorrection = 0.55

var (
	ErrInvalidSettings = errors.New("invalid ascii settings")
	ErrDecode          = errors.New("failed to decode image")
)

// Settings configures a single conversion.
type Settings struct {
	Width     int     `json:"width"`     // output columns
	Contrast  float64 `json:"contrast"`  // 1.0 = neutral
	Inverted  bool    `json:"inverted"`  // swap dark and bright
	RampIndex int     `json:"rampIndex"` // 0 = dense, 1 = simple
	Threshold float64 `json:"threshold"` // normalized values below this snap to black
}

// SceneSettings is the preset for scene art. Higher contrast and the simple
// ramp keep silhouettes legible.
var SceneSettings = Settings{
	Width:     80,
	Contrast:  1.8,
	RampIndex: RampSimple,
	Threshold: 0.22,
}

// PortraitSettings matches SceneSettings at half the width.
var PortraitSettings = Settings{
	Width:     40,
	Contrast:  1.8,
	RampIndex: RampSimple,
	Threshold: 0.22,
}

// Validate reports whether the settings can drive a conversion.
func (s Settings) Validate() error {
	if s.Width <= 0 || s.Width > MaxWidth {
		return fmt.Errorf("%w: width must be within [1,%d], got %d", ErrInvalidSettings, MaxWidth, s.Width)
	}
	if math.IsNaN(s.Contrast) || math.IsInf(s.Contrast, 0) || s.Contrast < 0 {
		return fmt.Errorf("%w: contrast must be a finite value >= 0, got %g", ErrInvalidSettings, s.Contrast)
	}
	if math.IsNaN(s.Threshold) || s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0,1], got %g", ErrInvalidSettings, s.Threshold)
	}
	return nil
}

// Ramp returns the ramp at index, clamped into range.
func Ramp(index int) string {
	return ramps[max(0, min(len(ramps)-1, index))]
}

// Rows returns the number of output lines for an image of the given size,
// clamped to [1, MaxRows].
func Rows(width, imgW, imgH int) int {
	if imgW <= 0 || imgH <= 0 {
		return 1
	}
	rows := float64(width) / float64(imgW) * float64(imgH) * AspectCorrection
	return max(1, int(min(float64(MaxRows), rows)))
}
