package mixer

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Registry holds the most recent card enumeration snapshot.
type Registry struct {
	backend Backend
	log     zerolog.Logger
	cards   []Card
}

// NewRegistry creates a registry over the given backend.
func NewRegistry(backend Backend, log zerolog.Logger) *Registry {
	return &Registry{backend: backend, log: log}
}

// Enumerate queries the backend for the current set of cards and
// replaces the snapshot. On failure the snapshot becomes empty and the
// error wraps ErrEnumeration; a partial list is never kept silently.
func (r *Registry) Enumerate() ([]Card, error) {
	cards, err := r.backend.Cards()
	if err != nil {
		r.cards = nil
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	r.cards = cards
	r.log.Debug().Int("cards", len(cards)).Msg("Enumerated audio devices")
	return cards, nil
}

// Cards returns the last snapshot without re-enumerating.
func (r *Registry) Cards() []Card {
	return r.cards
}

// Find looks up a card by exact name in the last snapshot. It does not
// re-enumerate; the caller decides freshness.
func (r *Registry) Find(name string) (Card, bool) {
	for _, c := range r.cards {
		if c.Name == name {
			return c, true
		}
	}
	return Card{}, false
}

// FindChannel looks up a channel by name within a card.
func (c Card) FindChannel(name string) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return Channel{}, false
}
