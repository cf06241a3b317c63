package mixer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Session owns at most one open mixer element at a time. It is either
// fully open (handle held, range cached, descriptors available) or
// fully closed; no in-between state is observable.
//
// All methods are serialized internally so the UI side and the event
// bridge can share one session.
type Session struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.Mutex
	elem    Element
	card    string
	channel string
	mode    Mode
	gen     uint64
}

// NewSession creates a closed session over the given backend.
func NewSession(backend Backend, mode Mode, log zerolog.Logger) *Session {
	return &Session{backend: backend, mode: mode, log: log}
}

// Open acquires the control handle for the given card and channel. The
// previous handle, if any, is released first; two live handles never
// coexist. The native volume range is read exactly once, here.
func (s *Session) Open(card, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	elem, err := s.backend.Open(card, channel)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrChannelUnavailable) {
			return err
		}
		return fmt.Errorf("open mixer %s/%s: %w", card, channel, err)
	}

	s.elem = elem
	s.card = card
	s.channel = channel
	s.gen++
	r := elem.Range()
	s.log.Info().Str("card", card).Str("channel", channel).
		Int64("min", r.Min).Int64("max", r.Max).Msg("Mixer session opened")
	return nil
}

// Close releases the handle and forgets the selection. Idempotent and
// always safe to call, including from inside a notification callback.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.elem == nil {
		return
	}
	if err := s.elem.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Error closing mixer element")
	}
	s.elem = nil
	s.card = ""
	s.channel = ""
}

// IsOpen reports whether a handle is currently held.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elem != nil
}

// Card returns the open card name, or "" when closed.
func (s *Session) Card() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

// Channel returns the open channel name, or "" when closed.
func (s *Session) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Generation identifies the current open handle. It increments on
// every Open, so a bridge wake that raced a close/reopen can detect it
// is stale even when the OS reused the descriptor numbers.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// SetMode switches the percent mapping curve. It touches neither the
// handle nor the cached range.
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Volume returns the current volume as a percentage. A transient
// native failure is retried once; repeated failure is surfaced and the
// session stays open so the caller can decide to reinitialize.
func (s *Session) Volume() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return 0, ErrSessionClosed
	}
	v, err := s.elem.Volume()
	if err != nil {
		if v, err = s.elem.Volume(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransientIO, err)
		}
	}
	return Decode(v, s.elem.Range(), s.mode), nil
}

// SetVolume sets the volume from a percentage, clamping out-of-bounds
// input rather than failing.
func (s *Session) SetVolume(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return ErrSessionClosed
	}
	v := Encode(percent, s.elem.Range(), s.mode)
	if err := s.elem.SetVolume(v); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientIO, err)
	}
	return nil
}

// Muted reports the mute switch. Channels without a mute control
// report unmuted.
func (s *Session) Muted() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return false, ErrSessionClosed
	}
	if !s.elem.HasMute() {
		return false, nil
	}
	m, err := s.elem.Muted()
	if err != nil {
		if m, err = s.elem.Muted(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrTransientIO, err)
		}
	}
	return m, nil
}

// SetMuted writes the mute switch. On channels without a mute control
// this is a no-op; the capability gap is absorbed here, not surfaced
// as a failure to the UI.
func (s *Session) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return ErrSessionClosed
	}
	if !s.elem.HasMute() {
		s.log.Debug().Str("channel", s.channel).Msg("Ignoring mute toggle, channel has no switch")
		return nil
	}
	if err := s.elem.SetMuted(muted); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientIO, err)
	}
	return nil
}

// PollDescriptors returns the waitable descriptors of the open handle,
// or nil when closed. The session never blocks on them itself.
func (s *Session) PollDescriptors() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return nil
	}
	return s.elem.PollDescriptors()
}

// Drain consumes all queued native events without blocking. It reports
// whether any event indicated a value or switch change and whether the
// device disappeared. Called by the bridge on every wake; failing to
// drain fully would leave the descriptors permanently readable.
func (s *Session) Drain() (changed bool, gone bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elem == nil {
		return false, false, nil
	}
	return s.elem.Drain()
}
