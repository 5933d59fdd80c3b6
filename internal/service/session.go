package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

// session is one live simulation.
type session struct {
	id        string
	creatorID string
	game      *hexgame.Game
	stop      func()

	// ctx is cancelled by close; AI turns run under it and stop persisting
	// once it is done.
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup

	mu       sync.Mutex
	deadline time.Time
}

// ownUnit checks that the player's civilization owns the unit at pos.
func (s *session) ownUnit(pos hexgame.Position) error {
	u, ok := s.game.Store.TryGetUnit(pos)
	if !ok {
		return &hexgame.PositionError{Pos: pos, Err: hexgame.ErrNoUnit}
	}
	if u.Civ != s.game.Player() {
		return ErrNotYourUnit
	}
	return nil
}

// inReach rejects attacks by non-ranged units on tiles that are not adjacent.
// Ranged units are range-checked by the combat resolver.
func (s *session) inReach(from, to hexgame.Position) error {
	u, ok := s.game.Store.TryGetUnit(from)
	if !ok {
		return &hexgame.PositionError{Pos: from, Err: hexgame.ErrNoUnit}
	}
	if u.Kind.Type != hexgame.Ranged && !hexgame.IsAdjacent(from, to) {
		return fmt.Errorf("%w: %s attacks adjacent tiles only, distance %d",
			hexgame.ErrOutOfRange, u.Kind.ID, hexgame.Distance(from, to))
	}
	return nil
}

func (s *session) closed() bool { return s.ctx.Err() != nil }

func (s *session) setDeadline(d time.Time) {
	s.mu.Lock()
	s.deadline = d
	s.mu.Unlock()
}

func (s *session) currentDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// close cancels a running AI turn and detaches from the event bus. It does
// not wait for the AI goroutine; use running for that.
func (s *session) close() {
	s.cancel()
	if s.stop != nil {
		s.stop()
	}
	s.game.Close()
}
