package mixer

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Controller owns the single live session and orchestrates closing and
// reopening it when the selection changes or the device disappears. No
// other component holds the native handle; everything goes through the
// session's methods, so a handle can never be used across a
// close/reopen boundary.
type Controller struct {
	registry *Registry
	session  *Session
	bridge   *Bridge
	log      zerolog.Logger

	mu          sync.Mutex
	wantCard    string
	wantChannel string
	onLost      func()
}

// NewController wires a registry, session and bridge together. The
// bridge's device-loss path is routed back through the controller.
func NewController(registry *Registry, session *Session, bridge *Bridge, log zerolog.Logger) *Controller {
	c := &Controller{
		registry: registry,
		session:  session,
		bridge:   bridge,
		log:      log,
	}
	bridge.DeviceLost = c.handleDeviceLost
	return c
}

// SetDeviceLostHandler registers a callback invoked after the
// controller has torn down a session whose device vanished. The
// handler runs on the bridge's wait loop.
func (c *Controller) SetDeviceLostHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = fn
}

// SwitchTo closes the current session, if any, and opens a new one on
// the named card and channel. The target is validated against a fresh
// enumeration before anything is torn down, so a bad name leaves the
// current session untouched. On open failure the session is left
// closed and the error surfaced; there is no retry.
func (c *Controller) SwitchTo(card, channel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cards, err := c.registry.Enumerate()
	if err != nil {
		return err
	}
	found := Card{}
	ok := false
	for _, cd := range cards {
		if cd.Name == card {
			found, ok = cd, true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, card)
	}
	if _, ok := found.FindChannel(channel); !ok {
		return fmt.Errorf("%w: %s on %s", ErrChannelUnavailable, channel, card)
	}

	c.bridge.Unwatch()
	c.session.Close()

	if err := c.session.Open(card, channel); err != nil {
		return err
	}
	if err := c.bridge.Watch(c.session); err != nil {
		c.session.Close()
		return fmt.Errorf("watch mixer events: %w", err)
	}

	c.wantCard = card
	c.wantChannel = channel
	return nil
}

// Reinitialize re-probes and reopens the configured selection. Used
// after a preference commit and, when enabled, after a device loss.
func (c *Controller) Reinitialize() error {
	c.mu.Lock()
	card, channel := c.wantCard, c.wantChannel
	c.mu.Unlock()
	if card == "" {
		return fmt.Errorf("%w: no device selected", ErrDeviceUnavailable)
	}
	return c.SwitchTo(card, channel)
}

// Close tears down the session and its event registration. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bridge.Unwatch()
	c.session.Close()
}

// handleDeviceLost runs on the bridge's wait loop when a drain reports
// the device gone. Treated like a user switch to no device; whether
// anything reopens afterwards is the handler's call.
func (c *Controller) handleDeviceLost(s *Session, gen uint64) {
	c.mu.Lock()
	if !c.bridge.watching(s, gen) {
		// A switch already replaced this session; nothing to tear down.
		c.mu.Unlock()
		return
	}
	c.bridge.Unwatch()
	c.session.Close()
	fn := c.onLost
	c.mu.Unlock()

	c.log.Warn().Msg("Mixer device lost, session closed")
	if fn != nil {
		fn()
	}
}

// Cards re-enumerates and returns the device snapshot.
func (c *Controller) Cards() ([]Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Enumerate()
}

// CurrentCard returns the open card name, or "" when no session is up.
func (c *Controller) CurrentCard() string { return c.session.Card() }

// CurrentChannel returns the open channel name, or "" when closed.
func (c *Controller) CurrentChannel() string { return c.session.Channel() }

// Volume, SetVolume, Muted and SetMuted delegate to the session, which
// serializes access against the event bridge.

func (c *Controller) Volume() (int, error) { return c.session.Volume() }

func (c *Controller) SetVolume(percent int) error { return c.session.SetVolume(percent) }

func (c *Controller) Muted() (bool, error) { return c.session.Muted() }

func (c *Controller) SetMuted(muted bool) error { return c.session.SetMuted(muted) }

// SetMode switches the percent mapping curve on the live session.
func (c *Controller) SetMode(mode Mode) { c.session.SetMode(mode) }

// Subscribe registers a change-notification callback with the bridge.
func (c *Controller) Subscribe(fn func()) (cancel func()) { return c.bridge.Subscribe(fn) }
