// Package notify sends desktop notifications through the
// org.freedesktop.Notifications D-Bus service.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = "org.freedesktop.Notifications.Notify"

	appName   = "volume-tray"
	timeoutMs = 1500
)

// Notifier posts volume popups. Successive popups reuse the previous
// notification id so the desktop replaces the bubble in place instead
// of stacking one per scroll notch.
type Notifier struct {
	conn   *dbus.Conn
	log    zerolog.Logger
	lastID uint32
}

// New connects to the session bus. A missing notification daemon is
// not an error at connect time; sends will just fail quietly later.
func New(log zerolog.Logger) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Notifier{conn: conn, log: log}, nil
}

// Close drops the bus connection.
func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// Volume shows the current volume level, or the mute state.
func (n *Notifier) Volume(percent int, muted bool) {
	if muted {
		n.send("audio-volume-muted", "Muted", "")
		return
	}
	n.send(volumeIcon(percent), fmt.Sprintf("Volume: %d%%", percent), "")
}

// Error shows a failure the user should know about, e.g. a device that
// could not be opened.
func (n *Notifier) Error(summary, body string) {
	n.send("dialog-error", summary, body)
}

func (n *Notifier) send(icon, summary, body string) {
	obj := n.conn.Object(busName, objectPath)
	call := obj.Call(method, 0,
		appName,
		n.lastID, // replaces-id: update the existing bubble
		icon,
		summary,
		body,
		[]string{},               // actions
		map[string]dbus.Variant{}, // hints
		int32(timeoutMs),
	)
	if call.Err != nil {
		n.log.Debug().Err(call.Err).Msg("Desktop notification failed")
		return
	}
	if err := call.Store(&n.lastID); err != nil {
		n.log.Debug().Err(err).Msg("Could not read notification id")
	}
}

func volumeIcon(percent int) string {
	switch {
	case percent < 34:
		return "audio-volume-low"
	case percent < 67:
		return "audio-volume-medium"
	default:
		return "audio-volume-high"
	}
}
