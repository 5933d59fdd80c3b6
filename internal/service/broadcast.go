package service

import (
	"time"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}

// Event types broadcast by the service in addition to the core's events.
const (
	EventTurnDeadline = "turn_deadline"
	EventAIError      = "ai_error"
)

// EventPayload converts a core event into its JSON-friendly wire form.
func EventPayload(e hexgame.Event) any {
	switch ev := e.(type) {
	case hexgame.CombatResolved:
		return NewCombatView(ev.Combat)
	case hexgame.GameOver:
		return map[string]string{"winner": hexgame.WinnerName(ev.Winner)}
	case hexgame.TurnChanged:
		return map[string]any{"turn": ev.Turn, "state": ev.State.String()}
	case hexgame.UnitMoved:
		return map[string]any{"unit": NewUnitView(ev.Unit), "from": ev.From, "to": ev.To}
	case hexgame.UnitStateChanged:
		return map[string]any{"unit": NewUnitView(ev.Unit), "from": ev.From.String(), "to": ev.To.String()}
	case hexgame.MovesConsumed:
		return map[string]any{"unit": NewUnitView(ev.Unit)}
	default:
		return nil
	}
}

// timedSink holds the animation lock for a fixed time per transition,
// pacing actions for clients that animate from the broadcast events.
type timedSink struct {
	d time.Duration
}

func newSink(d time.Duration) hexgame.Sink {
	if d <= 0 {
		return hexgame.NoopSink{}
	}
	return timedSink{d: d}
}

func (s timedSink) after() <-chan struct{} {
	done := make(chan struct{})
	time.AfterFunc(s.d, func() { close(done) })
	return done
}

func (s timedSink) PlayMove(hexgame.Unit, hexgame.Position, hexgame.Position) <-chan struct{} {
	return s.after()
}

func (s timedSink) PlayCombat(hexgame.CombatEvent) <-chan struct{} { return s.after() }
