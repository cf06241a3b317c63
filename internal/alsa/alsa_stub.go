//go:build !linux || !cgo

// Package alsa implements the mixer backend over libasound's simple
// mixer (selem) interface. This stub keeps other platforms compiling;
// every operation reports that ALSA is unavailable.
package alsa

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petems/volume-tray/internal/mixer"
)

// Backend is a no-op stub used where ALSA is not available.
type Backend struct{}

// New creates the stub backend.
func New(log zerolog.Logger) *Backend { return &Backend{} }

// Cards returns an error indicating ALSA is unavailable.
func (b *Backend) Cards() ([]mixer.Card, error) {
	return nil, fmt.Errorf("alsa mixer is not supported on this platform")
}

// Open returns an error indicating ALSA is unavailable.
func (b *Backend) Open(card, channel string) (mixer.Element, error) {
	return nil, fmt.Errorf("alsa mixer is not supported on this platform")
}

var _ mixer.Backend = (*Backend)(nil)
