package hexgame

// Sink plays animations for authoritative changes that have already been
// applied. Each call returns a channel the sink closes when playback ends;
// the core holds the animation lock until then. A nil channel counts as done.
type Sink interface {
	PlayMove(unit Unit, from, to Position) <-chan struct{}
	PlayCombat(event CombatEvent) <-chan struct{}
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// NoopSink completes every animation instantly. Used headless and in tests.
type NoopSink struct{}

func (NoopSink) PlayMove(Unit, Position, Position) <-chan struct{} { return closedChan }
func (NoopSink) PlayCombat(CombatEvent) <-chan struct{}            { return closedChan }

// SinkFunc adapts a pair of functions to Sink. Nil fields complete instantly.
type SinkFunc struct {
	Move   func(unit Unit, from, to Position) <-chan struct{}
	Combat func(event CombatEvent) <-chan struct{}
}

func (s SinkFunc) PlayMove(unit Unit, from, to Position) <-chan struct{} {
	if s.Move == nil {
		return closedChan
	}
	return s.Move(unit, from, to)
}

func (s SinkFunc) PlayCombat(event CombatEvent) <-chan struct{} {
	if s.Combat == nil {
		return closedChan
	}
	return s.Combat(event)
}
