package mixer

import "testing"

// Ranges with at least 50 native steps; anything narrower cannot
// quantize every percent distinctly enough to round-trip within 1.
var testRanges = []VolumeRange{
	{Min: 0, Max: 100},
	{Min: 0, Max: 65535},
	{Min: -10239, Max: 400},
	{Min: -64, Max: 0},
}

func TestEncodeEndpoints(t *testing.T) {
	for _, r := range append(testRanges, VolumeRange{Min: 3, Max: 31}) {
		for _, mode := range []Mode{Linear, Perceptual} {
			if got := Encode(0, r, mode); got != r.Min {
				t.Errorf("Encode(0, %+v, %v) = %d, want %d", r, mode, got, r.Min)
			}
			if got := Encode(100, r, mode); got != r.Max {
				t.Errorf("Encode(100, %+v, %v) = %d, want %d", r, mode, got, r.Max)
			}
		}
	}
}

func TestLinearRoundTrip(t *testing.T) {
	for _, r := range testRanges {
		for p := 0; p <= 100; p++ {
			got := Decode(Encode(p, r, Linear), r, Linear)
			if got < p-1 || got > p+1 {
				t.Errorf("round trip %d over %+v = %d", p, r, got)
			}
		}
	}
}

func TestPerceptualRoundTrip(t *testing.T) {
	// Very narrow ranges cannot represent every taper step distinctly;
	// ranges with real native resolution round-trip within 1.
	wide := []VolumeRange{{Min: 0, Max: 65535}, {Min: -10239, Max: 400}, {Min: 0, Max: 1000}}
	for _, r := range wide {
		for p := 0; p <= 100; p++ {
			got := Decode(Encode(p, r, Perceptual), r, Perceptual)
			if got < p-1 || got > p+1 {
				t.Errorf("perceptual round trip %d over %+v = %d", p, r, got)
			}
		}
	}
}

func TestPerceptualMonotonic(t *testing.T) {
	for _, r := range []VolumeRange{{Min: 0, Max: 65535}, {Min: -10239, Max: 400}} {
		prev := Encode(0, r, Perceptual)
		for p := 1; p <= 100; p++ {
			v := Encode(p, r, Perceptual)
			if v <= prev {
				t.Fatalf("Encode not strictly monotonic over %+v at %d: %d <= %d", r, p, v, prev)
			}
			prev = v
		}
	}
}

func TestDecodeClamps(t *testing.T) {
	r := VolumeRange{Min: -100, Max: 100}
	for _, mode := range []Mode{Linear, Perceptual} {
		if got := Decode(-500, r, mode); got != 0 {
			t.Errorf("Decode below min (%v) = %d, want 0", mode, got)
		}
		if got := Decode(500, r, mode); got != 100 {
			t.Errorf("Decode above max (%v) = %d, want 100", mode, got)
		}
	}
}

func TestEncodeClampsPercent(t *testing.T) {
	r := VolumeRange{Min: 0, Max: 100}
	if got := Encode(-20, r, Linear); got != r.Min {
		t.Errorf("Encode(-20) = %d, want %d", got, r.Min)
	}
	if got := Encode(140, r, Linear); got != r.Max {
		t.Errorf("Encode(140) = %d, want %d", got, r.Max)
	}
}

func TestDecodeDegenerateRange(t *testing.T) {
	if got := Decode(5, VolumeRange{Min: 5, Max: 5}, Linear); got != 0 {
		t.Errorf("Decode over empty range = %d, want 0", got)
	}
}
