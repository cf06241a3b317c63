// Package tone plays a short test sound so the user can hear the
// effect of the selected channel and volume.
package tone

import (
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 44100
	freqHz     = 440.0
	durationMs = 350
	frames     = 512
)

// Player owns the PortAudio runtime.
type Player struct{}

// New initializes PortAudio.
func New() (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Player{}, nil
}

// Play writes a sine burst to the default output device, blocking
// until it finishes. The burst is faded in and out to avoid clicks.
func (p *Player) Play() error {
	buffer := make([]float32, frames)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, len(buffer), &buffer)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer stream.Stop()

	total := sampleRate * durationMs / 1000
	fade := sampleRate / 100 // 10ms ramp
	for written := 0; written < total; written += len(buffer) {
		for i := range buffer {
			n := written + i
			if n >= total {
				buffer[i] = 0
				continue
			}
			amp := 0.4
			if n < fade {
				amp *= float64(n) / float64(fade)
			}
			if left := total - n; left < fade {
				amp *= float64(left) / float64(fade)
			}
			buffer[i] = float32(amp * math.Sin(2*math.Pi*freqHz*float64(n)/sampleRate))
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}
	return nil
}

// Close terminates PortAudio.
func (p *Player) Close() {
	portaudio.Terminate()
}
