package mixer

import "errors"

var (
	// ErrEnumeration means the audio subsystem could not be queried at
	// all, e.g. no backend is present.
	ErrEnumeration = errors.New("audio subsystem unavailable")

	// ErrDeviceUnavailable means the named card no longer exists.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrChannelUnavailable means the named channel disappeared from
	// its card.
	ErrChannelUnavailable = errors.New("channel unavailable")

	// ErrNoMuteControl means the channel has no mute switch. Non-fatal;
	// SetMuted absorbs it into a no-op.
	ErrNoMuteControl = errors.New("channel has no mute control")

	// ErrSessionClosed means a get/set was attempted with no open
	// session.
	ErrSessionClosed = errors.New("mixer session not open")

	// ErrTransientIO means a single native call failed but the handle
	// may still be valid. Get-calls retry once before surfacing it.
	ErrTransientIO = errors.New("transient mixer i/o failure")
)
