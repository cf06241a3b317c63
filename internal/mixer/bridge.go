package mixer

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Bridge integrates a session's poll descriptors into a wait loop and
// turns "one or more descriptors became ready" into a single coalesced
// notification per wake, delivered to every subscriber.
//
// Subscribers receive no payload. Native mixer events do not carry
// reliable values, so the expectation is that a subscriber re-reads
// volume and mute state itself.
type Bridge struct {
	log zerolog.Logger

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int

	// watch state for the currently attached session
	session *Session
	gen     uint64
	wakeW   *os.File

	// DeviceLost, if set, is invoked from the wait loop when a drain
	// reports that the device vanished. It receives the session and
	// generation the loop was watching so the handler can tell a live
	// loss from one that a concurrent switch already dealt with. Set
	// it before the first Watch.
	DeviceLost func(s *Session, gen uint64)
}

// NewBridge creates a bridge with no subscribers and nothing watched.
func NewBridge(log zerolog.Logger) *Bridge {
	return &Bridge{log: log, subs: make(map[int]func())}
}

// Subscribe registers a callback invoked on every coalesced change
// notification. All subscribers are called in the same notification
// turn, synchronously on the wait loop. The returned function cancels
// the subscription.
func (b *Bridge) Subscribe(fn func()) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Watch registers the session's descriptors and starts the wait loop
// for them. Any previous watch is stopped first. The loop identifies
// its session by the generation captured here, not by descriptor
// numbers; the OS reuses those, a generation is never reused.
func (b *Bridge) Watch(s *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	fds := s.PollDescriptors()
	if len(fds) == 0 {
		return ErrSessionClosed
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	b.session = s
	b.gen = s.Generation()
	b.wakeW = w

	go b.watch(s, s.Generation(), fds, r)
	b.log.Debug().Ints("fds", fds).Uint64("gen", b.gen).Msg("Watching mixer descriptors")
	return nil
}

// Unwatch stops the wait loop and drops the descriptor registration.
// It signals the loop and returns without waiting for it, so it is
// safe to call from inside a notification callback. A loop that was
// mid-wake exits on its own once it sees the stale generation.
func (b *Bridge) Unwatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Bridge) stopLocked() {
	if b.wakeW != nil {
		b.wakeW.Close()
		b.wakeW = nil
	}
	b.session = nil
	b.gen = 0
}

// stale reports whether the loop identified by gen no longer owns the
// watch.
func (b *Bridge) stale(s *Session, gen uint64) bool {
	return !b.watching(s, gen)
}

// watching reports whether the given session generation is the one
// currently registered.
func (b *Bridge) watching(s *Session, gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session == s && b.gen == gen && s.Generation() == gen
}

func (b *Bridge) watch(s *Session, gen uint64, fds []int, wake *os.File) {
	defer wake.Close()

	pollfds := make([]unix.PollFd, 0, len(fds)+1)
	pollfds = append(pollfds, unix.PollFd{Fd: int32(wake.Fd()), Events: unix.POLLIN})
	for _, fd := range fds {
		pollfds = append(pollfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}

	for {
		for i := range pollfds {
			pollfds[i].Revents = 0
		}
		if _, err := unix.Poll(pollfds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			b.log.Warn().Err(err).Msg("Mixer poll failed, stopping watch")
			return
		}

		// The wake pipe is closed by Unwatch; EOF-readable means stop.
		if pollfds[0].Revents != 0 {
			return
		}
		if b.stale(s, gen) || !s.IsOpen() {
			// Late wake from a close/reopen race. The descriptors may
			// already belong to someone else; do not touch them.
			return
		}

		changed, gone, err := s.Drain()
		if err != nil {
			b.log.Warn().Err(err).Msg("Error draining mixer events")
			continue
		}
		if gone {
			b.log.Info().Uint64("gen", gen).Msg("Device disconnected")
			if b.DeviceLost != nil {
				b.DeviceLost(s, gen)
			}
			return
		}
		if changed {
			b.notify()
		}
	}
}

// notify delivers exactly one notification to each subscriber.
func (b *Bridge) notify() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
