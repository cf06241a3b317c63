package mixer

import (
	"fmt"
	"sync"
	"syscall"
)

// Fake backend for testing. Elements expose a real pipe as their poll
// descriptor so the bridge's wait loop can be exercised end to end:
// each byte written to the pipe is one queued native event, 'c' for a
// value/switch change and 'g' for device gone.

type fakeElem struct {
	mu      sync.Mutex
	rng     VolumeRange
	vol     int64
	hasMute bool
	muted   bool
	closed  bool
	volErrs int // number of Volume calls to fail before succeeding

	pipeR, pipeW int
}

func newFakeElem(rng VolumeRange, hasMute bool) (*fakeElem, error) {
	var p [2]int
	if err := syscall.Pipe(p[:]); err != nil {
		return nil, err
	}
	if err := syscall.SetNonblock(p[0], true); err != nil {
		return nil, err
	}
	return &fakeElem{rng: rng, vol: rng.Min, hasMute: hasMute, pipeR: p[0], pipeW: p[1]}, nil
}

// push queues native events on the element's descriptor.
func (e *fakeElem) push(events string) {
	syscall.Write(e.pipeW, []byte(events))
}

func (e *fakeElem) Range() VolumeRange { return e.rng }

func (e *fakeElem) Volume() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.volErrs > 0 {
		e.volErrs--
		return 0, fmt.Errorf("fake i/o failure")
	}
	return e.vol, nil
}

func (e *fakeElem) SetVolume(v int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vol = v
	return nil
}

func (e *fakeElem) HasMute() bool { return e.hasMute }

func (e *fakeElem) Muted() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted, nil
}

func (e *fakeElem) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	return nil
}

func (e *fakeElem) PollDescriptors() []int {
	return []int{e.pipeR}
}

func (e *fakeElem) Drain() (changed bool, gone bool, err error) {
	buf := make([]byte, 64)
	for {
		n, err := syscall.Read(e.pipeR, buf)
		if n > 0 {
			for _, b := range buf[:n] {
				switch b {
				case 'c':
					changed = true
				case 'g':
					gone = true
				}
			}
		}
		if n <= 0 || err != nil {
			// Non-blocking pipe: EAGAIN means fully drained.
			return changed, gone, nil
		}
	}
}

func (e *fakeElem) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	syscall.Close(e.pipeR)
	syscall.Close(e.pipeW)
	return nil
}

func (e *fakeElem) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

type fakeBackend struct {
	mu       sync.Mutex
	cards    []Card
	cardsErr error
	openErr  error
	rng      VolumeRange
	opened   []*fakeElem
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		cards: []Card{
			{
				Name:        "hw:0",
				DisplayName: "Fake HDA Intel",
				Channels: []Channel{
					{Name: "Master", HasVolume: true, HasMute: true},
					{Name: "PCM", HasVolume: true},
					{Name: "Mic", HasVolume: true, HasMute: true, Capture: true},
				},
			},
		},
		rng: VolumeRange{Min: -10239, Max: 400},
	}
}

func (b *fakeBackend) Cards() ([]Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cardsErr != nil {
		return nil, b.cardsErr
	}
	return b.cards, nil
}

func (b *fakeBackend) Open(card, channel string) (Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	var found *Card
	for i := range b.cards {
		if b.cards[i].Name == card {
			found = &b.cards[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, card)
	}
	ch, ok := found.FindChannel(channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelUnavailable, channel)
	}
	elem, err := newFakeElem(b.rng, ch.HasMute)
	if err != nil {
		return nil, err
	}
	b.opened = append(b.opened, elem)
	return elem, nil
}

// lastElem returns the most recently opened element.
func (b *fakeBackend) lastElem() *fakeElem {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.opened) == 0 {
		return nil
	}
	return b.opened[len(b.opened)-1]
}

// liveElems counts elements that have been opened but not closed.
func (b *fakeBackend) liveElems() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.opened {
		if !e.isClosed() {
			n++
		}
	}
	return n
}
