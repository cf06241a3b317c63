package mixer

// Card is an enumerable audio device with its mixer channels.
// Cards are immutable snapshots; a re-enumeration replaces them wholesale.
type Card struct {
	// Name is the backend identifier (e.g. "hw:0"). Stable for the
	// lifetime of the process, not across reboots.
	Name string
	// DisplayName is the human-readable device name.
	DisplayName string
	// Channels in discovery order. The order is preserved so device
	// menus list channels deterministically.
	Channels []Channel
}

// Channel is a single controllable element within a Card.
type Channel struct {
	Name      string
	HasVolume bool
	HasMute   bool
	Capture   bool
}

// VolumeRange is the device-defined native interval for a channel's
// volume. Not assumed to be [0,100] or positive-based.
type VolumeRange struct {
	Min int64
	Max int64
}

// Element is one open native mixer control handle. Implementations are
// not safe for concurrent use; the session layer serializes access.
type Element interface {
	// Range returns the native volume interval, read at open time.
	Range() VolumeRange
	// Volume reads the current native playback volume.
	Volume() (int64, error)
	// SetVolume writes a native playback volume.
	SetVolume(v int64) error
	// HasMute reports whether the channel carries a mute switch.
	HasMute() bool
	// Muted reads the mute switch. Only valid when HasMute is true.
	Muted() (bool, error)
	// SetMuted writes the mute switch. Only valid when HasMute is true.
	SetMuted(muted bool) error
	// PollDescriptors returns the OS-level waitable descriptors that
	// signal pending mixer events for this handle.
	PollDescriptors() []int
	// Drain consumes all queued native events without blocking and
	// reports whether any of them indicated a value or switch change,
	// and whether the device disappeared underneath the handle.
	Drain() (changed bool, gone bool, err error)
	// Close releases the handle. Idempotent.
	Close() error
}

// Backend enumerates cards and opens mixer elements. The one real
// implementation lives in internal/alsa; tests supply fakes.
type Backend interface {
	// Cards enumerates available devices and their channels.
	Cards() ([]Card, error)
	// Open acquires the control handle for a channel on a card.
	Open(card, channel string) (Element, error)
}
