package mixer

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestController(b *fakeBackend) *Controller {
	log := zerolog.Nop()
	session := NewSession(b, Linear, log)
	return NewController(NewRegistry(b, log), session, NewBridge(log), log)
}

func TestSwitchTo(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}
	if c.CurrentCard() != "hw:0" || c.CurrentChannel() != "Master" {
		t.Errorf("current = %s/%s", c.CurrentCard(), c.CurrentChannel())
	}

	if err := c.SetVolume(50); err != nil {
		t.Fatal(err)
	}
	v, err := c.Volume()
	if err != nil {
		t.Fatal(err)
	}
	if v < 49 || v > 51 {
		t.Errorf("Volume = %d, want 50±1", v)
	}

	if err := c.SetMuted(true); err != nil {
		t.Fatal(err)
	}
	muted, err := c.Muted()
	if err != nil {
		t.Fatal(err)
	}
	if !muted {
		t.Error("not muted after SetMuted(true)")
	}
}

func TestSwitchToUnknownCardKeepsSession(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}
	err := c.SwitchTo("hw:1", "Master")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("got %v, want ErrDeviceUnavailable", err)
	}
	// The failed switch must not leave a half-switched state.
	if c.CurrentCard() != "hw:0" || c.CurrentChannel() != "Master" {
		t.Errorf("current = %s/%s after failed switch", c.CurrentCard(), c.CurrentChannel())
	}
	if b.liveElems() != 1 {
		t.Errorf("live handles = %d, want 1", b.liveElems())
	}
}

func TestSwitchToUnknownChannel(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	err := c.SwitchTo("hw:0", "Headphone")
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("got %v, want ErrChannelUnavailable", err)
	}
	if c.CurrentCard() != "" {
		t.Error("session open after failed switch from closed state")
	}
}

func TestNeverTwoLiveSessions(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	seq := [][2]string{
		{"hw:0", "Master"},
		{"hw:0", "PCM"},
		{"hw:0", "Master"},
		{"hw:0", "Mic"},
	}
	for _, s := range seq {
		if err := c.SwitchTo(s[0], s[1]); err != nil {
			t.Fatal(err)
		}
		if n := b.liveElems(); n != 1 {
			t.Fatalf("after switch to %s/%s: %d live handles", s[0], s[1], n)
		}
	}

	c.Close()
	if n := b.liveElems(); n != 0 {
		t.Errorf("after Close: %d live handles", n)
	}
}

func TestReinitialize(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	if err := c.Reinitialize(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Reinitialize with no selection: got %v", err)
	}

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}
	first := b.lastElem()
	if err := c.Reinitialize(); err != nil {
		t.Fatal(err)
	}
	if !first.isClosed() {
		t.Error("reinitialize did not release the old handle")
	}
	if c.CurrentCard() != "hw:0" || b.liveElems() != 1 {
		t.Error("reinitialize left a bad session state")
	}
}

func TestChangeNotificationReachesSubscriber(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	got := make(chan struct{}, 16)
	c.Subscribe(func() { got <- struct{}{} })

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}
	// Hardware-side change arrives on the poll descriptor.
	b.lastElem().push("c")
	waitNotify(t, got)
}

func TestDeviceLossClosesSession(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	lost := make(chan struct{}, 1)
	c.SetDeviceLostHandler(func() { lost <- struct{}{} })

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}
	b.lastElem().push("g")

	waitNotify(t, lost)
	// Treated as a switch to no device until the user reselects.
	deadline := time.Now().Add(time.Second)
	for c.CurrentCard() != "" {
		if time.Now().After(deadline) {
			t.Fatal("session still open after device loss")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if b.liveElems() != 0 {
		t.Errorf("live handles = %d after device loss", b.liveElems())
	}

	// The selection is remembered; an explicit reinit brings it back.
	if err := c.Reinitialize(); err != nil {
		t.Fatal(err)
	}
	if c.CurrentCard() != "hw:0" {
		t.Error("reinitialize after device loss did not reopen")
	}
}

func TestSwitchFromNotificationCallback(t *testing.T) {
	b := newFakeBackend()
	c := newTestController(b)
	defer c.Close()

	if err := c.SwitchTo("hw:0", "Master"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	c.Subscribe(func() {
		// Reconfiguring from inside a notification turn must not
		// deadlock against the wait loop delivering it.
		done <- c.SwitchTo("hw:0", "PCM")
	})
	b.lastElem().push("c")

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("switch from notification callback deadlocked")
	}
	if c.CurrentChannel() != "PCM" {
		t.Errorf("CurrentChannel = %q", c.CurrentChannel())
	}
}
