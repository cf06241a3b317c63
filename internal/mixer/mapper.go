package mixer

import "math"

// Mode selects how percentages map onto the native volume range.
type Mode int

const (
	// Linear maps percent steps to equal native steps.
	Linear Mode = iota
	// Perceptual applies an exponential taper so equal percent steps
	// approximate equal perceived loudness steps, like a log pot.
	Perceptual
)

// taper base for the perceptual curve. f = (10^p - 1) / 9 over p in
// [0,1] hits 0 and 1 exactly and inverts without loss.
const taper = 10.0

// Encode converts a percentage (0-100, clamped) to a native volume
// value within r. Encode(0) is exactly r.Min and Encode(100) is
// exactly r.Max in both modes.
func Encode(percent int, r VolumeRange, mode Mode) int64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	f := float64(percent) / 100
	if mode == Perceptual {
		f = (math.Pow(taper, f) - 1) / (taper - 1)
	}
	return r.Min + int64(math.Round(f*float64(r.Max-r.Min)))
}

// Decode converts a native volume value to a percentage (0-100).
// Values outside r are clamped to the nearest bound first; drivers can
// briefly report out-of-range values during device transitions.
func Decode(v int64, r VolumeRange, mode Mode) int {
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	if r.Max == r.Min {
		return 0
	}
	f := float64(v-r.Min) / float64(r.Max-r.Min)
	if mode == Perceptual {
		f = math.Log(f*(taper-1)+1) / math.Log(taper)
	}
	return int(math.Round(f * 100))
}
