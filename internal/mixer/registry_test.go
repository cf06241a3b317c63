package mixer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestEnumerate(t *testing.T) {
	r := NewRegistry(newFakeBackend(), zerolog.Nop())
	cards, err := r.Enumerate()
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 || cards[0].Name != "hw:0" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
	// Channel order is discovery order.
	want := []string{"Master", "PCM", "Mic"}
	for i, ch := range cards[0].Channels {
		if ch.Name != want[i] {
			t.Errorf("channel %d = %q, want %q", i, ch.Name, want[i])
		}
	}
}

func TestEnumerateFailure(t *testing.T) {
	b := newFakeBackend()
	b.cardsErr = fmt.Errorf("no backend")
	r := NewRegistry(b, zerolog.Nop())

	if _, err := r.Enumerate(); !errors.Is(err, ErrEnumeration) {
		t.Fatalf("got %v, want ErrEnumeration", err)
	}
	if len(r.Cards()) != 0 {
		t.Error("snapshot not emptied on enumeration failure")
	}
}

func TestFindUsesSnapshot(t *testing.T) {
	b := newFakeBackend()
	r := NewRegistry(b, zerolog.Nop())

	// Nothing enumerated yet: nothing found, no implicit enumeration.
	if _, ok := r.Find("hw:0"); ok {
		t.Error("Find succeeded before Enumerate")
	}

	if _, err := r.Enumerate(); err != nil {
		t.Fatal(err)
	}
	card, ok := r.Find("hw:0")
	if !ok {
		t.Fatal("Find failed after Enumerate")
	}
	if card.DisplayName != "Fake HDA Intel" {
		t.Errorf("DisplayName = %q", card.DisplayName)
	}

	// Backend changes are invisible until the next Enumerate.
	b.mu.Lock()
	b.cards = nil
	b.mu.Unlock()
	if _, ok := r.Find("hw:0"); !ok {
		t.Error("Find re-enumerated instead of using the snapshot")
	}
}

func TestFindChannel(t *testing.T) {
	r := NewRegistry(newFakeBackend(), zerolog.Nop())
	if _, err := r.Enumerate(); err != nil {
		t.Fatal(err)
	}
	card, _ := r.Find("hw:0")

	ch, ok := card.FindChannel("Mic")
	if !ok {
		t.Fatal("Mic not found")
	}
	if !ch.Capture || !ch.HasMute {
		t.Errorf("Mic flags wrong: %+v", ch)
	}
	if _, ok := card.FindChannel("Headphone"); ok {
		t.Error("found nonexistent channel")
	}
}
