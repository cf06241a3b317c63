package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/volume-tray/internal/config"
	"github.com/petems/volume-tray/internal/mixer"
	"github.com/petems/volume-tray/internal/notify"
	"github.com/petems/volume-tray/internal/tone"
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetVolume(percent int, muted bool)
	SetNoDevice(reason string)
}

type Config struct {
	Mixer         *mixer.Controller
	Notifier      *notify.Notifier // Optional - can be nil
	Tone          *tone.Player     // Optional - can be nil
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App connects the mixer core to the tray, the config file and the
// desktop notification popup.
type App struct {
	mixer  *mixer.Controller
	noti   *notify.Notifier
	tone   *tone.Player
	log    zerolog.Logger
	status StatusUpdater

	mu  sync.Mutex
	cfg *config.Config
}

func New(cfg Config) *App {
	a := &App{
		mixer:  cfg.Mixer,
		noti:   cfg.Notifier,
		tone:   cfg.Tone,
		cfg:    cfg.Config,
		log:    cfg.Logger,
		status: cfg.StatusUpdater,
	}
	a.mixer.SetDeviceLostHandler(a.onDeviceLost)
	a.mixer.Subscribe(a.onHardwareChange)
	return a
}

// Start opens the configured device. With no configured card it falls
// back to the first card that has a playback volume channel. Failure
// leaves the applet running in the no-device state.
func (a *App) Start() {
	a.mu.Lock()
	card := a.cfg.Card
	channel := a.cfg.Channel(card)
	a.mixer.SetMode(modeFor(a.cfg))
	a.mu.Unlock()

	if card == "" {
		card, channel = a.pickDefault()
	}
	if card == "" {
		a.log.Warn().Msg("No audio devices found")
		a.setNoDevice("no audio devices found")
		return
	}
	if channel == "" {
		channel = a.pickChannel(card)
	}

	if err := a.mixer.SwitchTo(card, channel); err != nil {
		a.log.Error().Err(err).Str("card", card).Str("channel", channel).Msg("Failed to open mixer")
		a.setNoDevice(err.Error())
		return
	}
	a.log.Info().Str("card", card).Str("channel", channel).Msg("Mixer ready")
	a.refresh()
}

// pickDefault returns the first card with a usable playback channel.
func (a *App) pickDefault() (card, channel string) {
	cards, err := a.mixer.Cards()
	if err != nil {
		a.log.Error().Err(err).Msg("Device enumeration failed")
		return "", ""
	}
	for _, c := range cards {
		for _, ch := range c.Channels {
			if ch.HasVolume && !ch.Capture {
				return c.Name, ch.Name
			}
		}
	}
	return "", ""
}

// pickChannel returns the first playback volume channel of a card.
func (a *App) pickChannel(card string) string {
	cards, err := a.mixer.Cards()
	if err != nil {
		return ""
	}
	for _, c := range cards {
		if c.Name != card {
			continue
		}
		for _, ch := range c.Channels {
			if ch.HasVolume && !ch.Capture {
				return ch.Name
			}
		}
	}
	return ""
}

// SelectChannel switches the active device and persists the choice.
func (a *App) SelectChannel(card, channel string) error {
	if err := a.mixer.SwitchTo(card, channel); err != nil {
		a.log.Error().Err(err).Str("card", card).Str("channel", channel).Msg("Device switch failed")
		a.notifyError("Could not open device", err)
		return err
	}

	a.mu.Lock()
	a.cfg.Card = card
	a.cfg.SetChannel(card, channel)
	err := a.cfg.Save()
	a.mu.Unlock()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to save config")
	}

	a.log.Info().Str("card", card).Str("channel", channel).Msg("Switched device")
	a.refresh()
	return nil
}

// Cards returns the current device snapshot for menu building.
func (a *App) Cards() ([]mixer.Card, error) {
	return a.mixer.Cards()
}

func (a *App) CurrentCard() string    { return a.mixer.CurrentCard() }
func (a *App) CurrentChannel() string { return a.mixer.CurrentChannel() }

// Volume returns the current volume percent.
func (a *App) Volume() (int, error) { return a.mixer.Volume() }

// SetVolume sets an absolute volume and shows the popup.
func (a *App) SetVolume(percent int) {
	if err := a.mixer.SetVolume(percent); err != nil {
		a.reportMixerError("set volume", err)
		return
	}
	a.refreshAndNotify()
}

// VolumeUp nudges the volume by the configured scroll step.
func (a *App) VolumeUp(fine bool) { a.nudge(a.step(fine)) }

// VolumeDown nudges the volume down by the configured scroll step.
func (a *App) VolumeDown(fine bool) { a.nudge(-a.step(fine)) }

func (a *App) step(fine bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fine {
		return a.cfg.FineScrollStep
	}
	return a.cfg.ScrollStep
}

func (a *App) nudge(delta int) {
	cur, err := a.mixer.Volume()
	if err != nil {
		a.reportMixerError("read volume", err)
		return
	}
	if err := a.mixer.SetVolume(cur + delta); err != nil {
		a.reportMixerError("set volume", err)
		return
	}
	a.refreshAndNotify()
}

// ToggleMute flips the mute switch.
func (a *App) ToggleMute() {
	muted, err := a.mixer.Muted()
	if err != nil {
		a.reportMixerError("read mute", err)
		return
	}
	if err := a.mixer.SetMuted(!muted); err != nil {
		a.reportMixerError("set mute", err)
		return
	}
	a.refreshAndNotify()
}

// SetNormalize switches the volume curve and persists it.
func (a *App) SetNormalize(on bool) {
	a.mu.Lock()
	a.cfg.Normalize = on
	a.mixer.SetMode(modeFor(a.cfg))
	err := a.cfg.Save()
	a.mu.Unlock()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to save config")
	}
	a.refresh()
}

// Normalize reports the configured volume curve.
func (a *App) Normalize() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Normalize
}

// ReloadConfig re-reads the config file and reapplies it. Invoked by
// the file watcher when the config changes on disk.
func (a *App) ReloadConfig() {
	cfg, err := config.Load()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to reload config")
		return
	}

	a.mu.Lock()
	oldNorm := a.cfg.Normalize
	a.cfg = cfg
	a.mixer.SetMode(modeFor(cfg))
	a.mu.Unlock()

	a.log.Info().Msg("Config reloaded from disk")
	if cfg.Card != a.mixer.CurrentCard() || cfg.Channel(cfg.Card) != a.mixer.CurrentChannel() {
		a.Start()
	} else if cfg.Normalize != oldNorm {
		a.refresh()
	}
}

// PlayTestSound plays a short tone through the default output.
func (a *App) PlayTestSound() {
	if a.tone == nil {
		return
	}
	go func() {
		if err := a.tone.Play(); err != nil {
			a.log.Error().Err(err).Msg("Test sound failed")
		}
	}()
}

// DebugInfo returns a plain-text state dump for bug reports.
func (a *App) DebugInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "card: %s\n", a.mixer.CurrentCard())
	fmt.Fprintf(&b, "channel: %s\n", a.mixer.CurrentChannel())
	if v, err := a.mixer.Volume(); err == nil {
		fmt.Fprintf(&b, "volume: %d%%\n", v)
	} else {
		fmt.Fprintf(&b, "volume: unavailable (%v)\n", err)
	}
	if m, err := a.mixer.Muted(); err == nil {
		fmt.Fprintf(&b, "muted: %v\n", m)
	}
	a.mu.Lock()
	fmt.Fprintf(&b, "normalize: %v\n", a.cfg.Normalize)
	a.mu.Unlock()

	cards, err := a.mixer.Cards()
	if err != nil {
		fmt.Fprintf(&b, "devices: unavailable (%v)\n", err)
		return b.String()
	}
	for _, c := range cards {
		fmt.Fprintf(&b, "device %s (%s):", c.Name, c.DisplayName)
		for _, ch := range c.Channels {
			fmt.Fprintf(&b, " %s", ch.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Shutdown closes the mixer session.
func (a *App) Shutdown() {
	a.mixer.Close()
	a.log.Info().Msg("Mixer session closed")
}

// onHardwareChange runs on the bridge's wait loop whenever another
// process or the hardware itself changed the volume or mute state.
// The notification carries no values; re-read everything.
func (a *App) onHardwareChange() {
	a.refreshAndNotify()
}

// onDeviceLost runs after the controller tore down a session whose
// device vanished. Reopening automatically is opt-in; the default is
// to sit in the no-device state until the user reselects.
func (a *App) onDeviceLost() {
	a.setNoDevice("device disconnected")

	a.mu.Lock()
	reopen := a.cfg.ReopenOnUnplug
	a.mu.Unlock()
	if !reopen {
		return
	}
	if err := a.mixer.Reinitialize(); err != nil {
		a.log.Warn().Err(err).Msg("Automatic reopen failed")
		return
	}
	a.log.Info().Msg("Device reopened after disconnect")
	a.refresh()
}

// refresh re-reads mixer state into the tray without a popup.
func (a *App) refresh() {
	if a.status == nil {
		return
	}
	v, err := a.mixer.Volume()
	if err != nil {
		if errors.Is(err, mixer.ErrSessionClosed) {
			a.status.SetNoDevice("no device")
		}
		return
	}
	muted, _ := a.mixer.Muted()
	a.status.SetVolume(v, muted)
}

// refreshAndNotify additionally shows the desktop popup.
func (a *App) refreshAndNotify() {
	v, err := a.mixer.Volume()
	if err != nil {
		return
	}
	muted, _ := a.mixer.Muted()
	if a.status != nil {
		a.status.SetVolume(v, muted)
	}

	a.mu.Lock()
	popups := a.cfg.Notifications
	a.mu.Unlock()
	if popups && a.noti != nil {
		a.noti.Volume(v, muted)
	}
}

func (a *App) setNoDevice(reason string) {
	if a.status != nil {
		a.status.SetNoDevice(reason)
	}
}

func (a *App) notifyError(summary string, err error) {
	a.mu.Lock()
	popups := a.cfg.Notifications
	a.mu.Unlock()
	if popups && a.noti != nil {
		a.noti.Error(summary, err.Error())
	}
}

func (a *App) reportMixerError(op string, err error) {
	if errors.Is(err, mixer.ErrSessionClosed) {
		a.log.Debug().Str("op", op).Msg("Ignoring mixer call with no device")
		return
	}
	a.log.Error().Err(err).Str("op", op).Msg("Mixer operation failed")
}

func modeFor(cfg *config.Config) mixer.Mode {
	if cfg.Normalize {
		return mixer.Perceptual
	}
	return mixer.Linear
}
