package hexgame

import (
	"sync"

	"github.com/rs/zerolog"
)

// EventType names a domain event.
type EventType string

const (
	EventCombatResolved   EventType = "combat_resolved"
	EventGameOver         EventType = "game_over"
	EventTurnChanged      EventType = "turn_changed"
	EventUnitMoved        EventType = "unit_moved"
	EventUnitStateChanged EventType = "unit_state_changed"
	EventMovesConsumed    EventType = "moves_consumed"
)

// Event is a one-directional notification for layers outside the core.
type Event interface {
	Type() EventType
}

// CombatResolved carries the full before/after snapshot of one attack.
type CombatResolved struct {
	Combat CombatEvent
}

// GameOver announces the sole surviving civilization.
// A nil Winner means no civilization has units left.
type GameOver struct {
	Winner *Civilization
}

// TurnChanged is emitted whenever the turn state machine changes side.
type TurnChanged struct {
	Turn  int
	State TurnState
}

// UnitMoved is emitted after a unit changes tile, including the implicit
// advance of a melee attacker into a vacated tile.
type UnitMoved struct {
	Unit Unit
	From Position
	To   Position
}

// UnitStateChanged is emitted when a unit switches between ready, resting and fortified.
type UnitStateChanged struct {
	Unit Unit
	From UnitState
	To   UnitState
}

// MovesConsumed is emitted when a unit's moves drop to zero.
type MovesConsumed struct {
	Unit Unit
}

func (CombatResolved) Type() EventType   { return EventCombatResolved }
func (GameOver) Type() EventType         { return EventGameOver }
func (TurnChanged) Type() EventType      { return EventTurnChanged }
func (UnitMoved) Type() EventType        { return EventUnitMoved }
func (UnitStateChanged) Type() EventType { return EventUnitStateChanged }
func (MovesConsumed) Type() EventType    { return EventMovesConsumed }

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order. A panicking
// subscriber is logged and skipped; it never affects core state or other
// subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	log    zerolog.Logger
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty Bus logging subscriber failures to logger.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{log: logger}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers events to every subscriber, in order.
func (b *Bus) Publish(events ...Event) {
	if b == nil || len(events) == 0 {
		return
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, e := range events {
		for _, s := range subs {
			b.deliver(s, e)
		}
	}
}

func (b *Bus) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", string(e.Type())).Int("subscriber", s.id).Msg("Event subscriber panicked")
		}
	}()
	s.fn(e)
}
