//go:build linux && cgo

// Package alsa implements the mixer backend over libasound's simple
// mixer (selem) interface.
package alsa

/*
#cgo pkg-config: alsa
#include <stdlib.h>
#include <alsa/asoundlib.h>

extern int elemEventCallback(snd_mixer_elem_t *elem, unsigned int mask);

static void set_elem_callback(snd_mixer_elem_t *elem) {
	snd_mixer_elem_set_callback(elem, (snd_mixer_elem_callback_t)elemEventCallback);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/petems/volume-tray/internal/mixer"
)

// Backend enumerates ALSA cards and opens simple mixer elements.
type Backend struct {
	log zerolog.Logger
}

// New creates the ALSA backend.
func New(log zerolog.Logger) *Backend {
	return &Backend{log: log}
}

func alsaErr(call string, code C.int) error {
	return fmt.Errorf("%s: %s", call, C.GoString(C.snd_strerror(code)))
}

// Cards walks the kernel card list and reports each card with its
// mixer channels in discovery order. Cards whose mixer cannot be
// loaded still appear, with no channels; the registry reports ground
// truth and the UI decides what is selectable.
func (b *Backend) Cards() ([]mixer.Card, error) {
	var cards []mixer.Card

	idx := C.int(-1)
	if code := C.snd_card_next(&idx); code < 0 {
		return nil, alsaErr("snd_card_next", code)
	}
	for idx >= 0 {
		name := fmt.Sprintf("hw:%d", int(idx))
		card := mixer.Card{Name: name, DisplayName: name}

		cname := C.CString(name)
		var ctl *C.snd_ctl_t
		if code := C.snd_ctl_open(&ctl, cname, 0); code >= 0 {
			var info *C.snd_ctl_card_info_t
			C.snd_ctl_card_info_malloc(&info)
			if code := C.snd_ctl_card_info(ctl, info); code >= 0 {
				card.DisplayName = C.GoString(C.snd_ctl_card_info_get_name(info))
			}
			C.snd_ctl_card_info_free(info)
			C.snd_ctl_close(ctl)
		}
		C.free(unsafe.Pointer(cname))

		channels, err := b.cardChannels(name)
		if err != nil {
			b.log.Warn().Str("card", name).Err(err).Msg("Could not list mixer channels")
		}
		card.Channels = channels
		cards = append(cards, card)

		if code := C.snd_card_next(&idx); code < 0 {
			return nil, alsaErr("snd_card_next", code)
		}
	}
	return cards, nil
}

// cardChannels loads a card's mixer briefly to list its elements.
func (b *Backend) cardChannels(card string) ([]mixer.Channel, error) {
	handle, err := openMixer(card)
	if err != nil {
		return nil, err
	}
	defer C.snd_mixer_close(handle)

	var channels []mixer.Channel
	for elem := C.snd_mixer_first_elem(handle); elem != nil; elem = C.snd_mixer_elem_next(elem) {
		hasPlayVol := C.snd_mixer_selem_has_playback_volume(elem) != 0
		hasPlaySwitch := C.snd_mixer_selem_has_playback_switch(elem) != 0
		hasCapVol := C.snd_mixer_selem_has_capture_volume(elem) != 0
		hasCapSwitch := C.snd_mixer_selem_has_capture_switch(elem) != 0
		if !hasPlayVol && !hasPlaySwitch && !hasCapVol && !hasCapSwitch {
			continue
		}
		channels = append(channels, mixer.Channel{
			Name:      C.GoString(C.snd_mixer_selem_get_name(elem)),
			HasVolume: hasPlayVol || hasCapVol,
			HasMute:   hasPlaySwitch || hasCapSwitch,
			Capture:   hasCapVol && !hasPlayVol,
		})
	}
	return channels, nil
}

// openMixer opens, attaches and loads a mixer handle for a card.
func openMixer(card string) (*C.snd_mixer_t, error) {
	var handle *C.snd_mixer_t
	if code := C.snd_mixer_open(&handle, 0); code < 0 {
		return nil, alsaErr("snd_mixer_open", code)
	}
	ccard := C.CString(card)
	defer C.free(unsafe.Pointer(ccard))
	if code := C.snd_mixer_attach(handle, ccard); code < 0 {
		C.snd_mixer_close(handle)
		if code == -C.ENODEV || code == -C.ENOENT || code == -C.ENXIO {
			return nil, fmt.Errorf("%w: %s", mixer.ErrDeviceUnavailable, card)
		}
		return nil, alsaErr("snd_mixer_attach", code)
	}
	if code := C.snd_mixer_selem_register(handle, nil, nil); code < 0 {
		C.snd_mixer_close(handle)
		return nil, alsaErr("snd_mixer_selem_register", code)
	}
	if code := C.snd_mixer_load(handle); code < 0 {
		C.snd_mixer_close(handle)
		return nil, alsaErr("snd_mixer_load", code)
	}
	return handle, nil
}

// Open acquires the simple mixer element for a channel on a card and
// reads its native volume range.
func (b *Backend) Open(card, channel string) (mixer.Element, error) {
	handle, err := openMixer(card)
	if err != nil {
		return nil, err
	}

	var sid *C.snd_mixer_selem_id_t
	if code := C.snd_mixer_selem_id_malloc(&sid); code < 0 {
		C.snd_mixer_close(handle)
		return nil, alsaErr("snd_mixer_selem_id_malloc", code)
	}
	defer C.snd_mixer_selem_id_free(sid)

	cchannel := C.CString(channel)
	defer C.free(unsafe.Pointer(cchannel))
	C.snd_mixer_selem_id_set_index(sid, 0)
	C.snd_mixer_selem_id_set_name(sid, cchannel)

	selem := C.snd_mixer_find_selem(handle, sid)
	if selem == nil {
		C.snd_mixer_close(handle)
		return nil, fmt.Errorf("%w: %s on %s", mixer.ErrChannelUnavailable, channel, card)
	}

	capture := C.snd_mixer_selem_has_capture_volume(selem) != 0 &&
		C.snd_mixer_selem_has_playback_volume(selem) == 0

	var min, max C.long
	var code C.int
	if capture {
		code = C.snd_mixer_selem_get_capture_volume_range(selem, &min, &max)
	} else {
		code = C.snd_mixer_selem_get_playback_volume_range(selem, &min, &max)
	}
	if code < 0 {
		C.snd_mixer_close(handle)
		return nil, alsaErr("snd_mixer_selem_get_volume_range", code)
	}

	n := C.snd_mixer_poll_descriptors_count(handle)
	if n <= 0 {
		C.snd_mixer_close(handle)
		return nil, fmt.Errorf("mixer for %s has no poll descriptors", card)
	}
	pfds := make([]C.struct_pollfd, n)
	if code := C.snd_mixer_poll_descriptors(handle, &pfds[0], C.uint(n)); code < 0 {
		C.snd_mixer_close(handle)
		return nil, alsaErr("snd_mixer_poll_descriptors", code)
	}
	fds := make([]int, n)
	for i, p := range pfds {
		fds[i] = int(p.fd)
	}

	e := &element{
		handle:  handle,
		elem:    selem,
		capture: capture,
		hasMute: !capture && C.snd_mixer_selem_has_playback_switch(selem) != 0 ||
			capture && C.snd_mixer_selem_has_capture_switch(selem) != 0,
		rng: mixer.VolumeRange{Min: int64(min), Max: int64(max)},
		fds: fds,
	}

	// Event callbacks arrive during snd_mixer_handle_events; the
	// element registers itself so the exported callback can find it.
	registerElement(selem, e)
	C.set_elem_callback(selem)
	return e, nil
}

// element is one open selem handle. The session layer serializes all
// access to it.
type element struct {
	handle  *C.snd_mixer_t
	elem    *C.snd_mixer_elem_t
	capture bool
	hasMute bool
	rng     mixer.VolumeRange
	fds     []int

	changed bool // set by the event callback during a drain
	gone    bool
	closed  bool
}

func (e *element) Range() mixer.VolumeRange { return e.rng }

func (e *element) Volume() (int64, error) {
	var v C.long
	var code C.int
	if e.capture {
		code = C.snd_mixer_selem_get_capture_volume(e.elem, C.SND_MIXER_SCHN_MONO, &v)
	} else {
		code = C.snd_mixer_selem_get_playback_volume(e.elem, C.SND_MIXER_SCHN_MONO, &v)
	}
	if code < 0 {
		return 0, alsaErr("snd_mixer_selem_get_volume", code)
	}
	return int64(v), nil
}

func (e *element) SetVolume(v int64) error {
	var code C.int
	if e.capture {
		code = C.snd_mixer_selem_set_capture_volume_all(e.elem, C.long(v))
	} else {
		code = C.snd_mixer_selem_set_playback_volume_all(e.elem, C.long(v))
	}
	if code < 0 {
		return alsaErr("snd_mixer_selem_set_volume_all", code)
	}
	return nil
}

func (e *element) HasMute() bool { return e.hasMute }

func (e *element) Muted() (bool, error) {
	var sw C.int
	var code C.int
	if e.capture {
		code = C.snd_mixer_selem_get_capture_switch(e.elem, C.SND_MIXER_SCHN_MONO, &sw)
	} else {
		code = C.snd_mixer_selem_get_playback_switch(e.elem, C.SND_MIXER_SCHN_MONO, &sw)
	}
	if code < 0 {
		return false, alsaErr("snd_mixer_selem_get_switch", code)
	}
	return sw == 0, nil
}

func (e *element) SetMuted(muted bool) error {
	on := C.int(1)
	if muted {
		on = 0
	}
	var code C.int
	if e.capture {
		code = C.snd_mixer_selem_set_capture_switch_all(e.elem, on)
	} else {
		code = C.snd_mixer_selem_set_playback_switch_all(e.elem, on)
	}
	if code < 0 {
		return alsaErr("snd_mixer_selem_set_switch_all", code)
	}
	return nil
}

func (e *element) PollDescriptors() []int { return e.fds }

// Drain processes every event queued on the mixer handle. alsa-lib
// reads the descriptors non-blocking inside snd_mixer_handle_events,
// so this never waits. The element callback records whether any event
// was a value change or a removal.
func (e *element) Drain() (changed bool, gone bool, err error) {
	e.changed = false
	code := C.snd_mixer_handle_events(e.handle)
	if code < 0 {
		if code == -C.ENODEV || code == -C.ENOENT || code == -C.ENXIO {
			return false, true, nil
		}
		return false, false, alsaErr("snd_mixer_handle_events", code)
	}
	return e.changed, e.gone, nil
}

func (e *element) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	unregisterElement(e.elem)
	code := C.snd_mixer_close(e.handle)
	e.handle = nil
	e.elem = nil
	if code < 0 {
		return alsaErr("snd_mixer_close", code)
	}
	return nil
}

// elements maps selem pointers to their Go element so the exported C
// callback can reach them. cgo forbids stashing a Go pointer on the C
// side directly.
var (
	elementsMu sync.Mutex
	elements   = make(map[unsafe.Pointer]*element)
)

func registerElement(elem *C.snd_mixer_elem_t, e *element) {
	elementsMu.Lock()
	defer elementsMu.Unlock()
	elements[unsafe.Pointer(elem)] = e
}

func unregisterElement(elem *C.snd_mixer_elem_t) {
	elementsMu.Lock()
	defer elementsMu.Unlock()
	delete(elements, unsafe.Pointer(elem))
}

//export elemEventCallback
func elemEventCallback(elem *C.snd_mixer_elem_t, mask C.uint) C.int {
	elementsMu.Lock()
	e, ok := elements[unsafe.Pointer(elem)]
	elementsMu.Unlock()
	if !ok {
		return 0
	}
	if mask == C.SND_CTL_EVENT_MASK_REMOVE {
		// Mask is not a bitfield for removals; the element is gone and
		// must not be touched again.
		e.gone = true
		return 0
	}
	if mask&C.SND_CTL_EVENT_MASK_VALUE != 0 {
		e.changed = true
	}
	return 0
}

var _ mixer.Backend = (*Backend)(nil)
