package hexgame

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TurnState is the phase of the turn state machine.
type TurnState int

const (
	StatePlayerTurn TurnState = iota
	StateAIPending
	StateAIInProgress
	StateGameOver
)

func (s TurnState) String() string {
	switch s {
	case StateAIPending:
		return "ai_pending"
	case StateAIInProgress:
		return "ai_in_progress"
	case StateGameOver:
		return "game_over"
	default:
		return "player_turn"
	}
}

// DefaultHealAmount is the health restored per round to resting and fortified units.
const DefaultHealAmount = 10

// TurnManager alternates the human civilization's turn with the AI
// civilizations' turns. Game over is terminal: once a single civilization
// remains every turn call is rejected.
type TurnManager struct {
	store    *Store
	combat   *Combat
	player   *Civilization
	selector Selector
	delay    time.Duration
	heal     int
	log      zerolog.Logger

	mu      sync.Mutex
	state   TurnState
	turn    int
	ending  chan struct{} // non-nil while a deferred EndTurn waits for the lock
	winner  *Civilization
	stopSub func()
}

// NewTurnManager creates a turn manager starting at turn 1 on the player's turn.
func NewTurnManager(store *Store, combat *Combat, player *Civilization, cfg Config) *TurnManager {
	selector := cfg.Selector
	if selector == nil {
		selector = Greedy{}
	}
	heal := cfg.HealAmount
	if heal == 0 {
		heal = DefaultHealAmount
	}
	t := &TurnManager{
		store:    store,
		combat:   combat,
		player:   player,
		selector: selector,
		delay:    cfg.AIDelay,
		heal:     heal,
		log:      cfg.logger(),
		turn:     1,
	}
	t.stopSub = store.Bus().Subscribe(func(e Event) {
		if g, ok := e.(GameOver); ok {
			t.finish(g.Winner)
		}
	})
	return t
}

// Close detaches the manager from the event bus.
func (t *TurnManager) Close() {
	if t.stopSub != nil {
		t.stopSub()
	}
}

// State returns the current state.
func (t *TurnManager) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Turn returns the round number, starting at 1.
func (t *TurnManager) Turn() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turn
}

// SetTurn restores a round number, used when resuming a saved game.
func (t *TurnManager) SetTurn(turn int) {
	if turn < 1 {
		turn = 1
	}
	t.mu.Lock()
	t.turn = turn
	t.mu.Unlock()
}

// Player returns the human civilization.
func (t *TurnManager) Player() *Civilization { return t.player }

// Winner returns the sole surviving civilization once the game is over. The
// winner is nil when the last units destroyed each other.
func (t *TurnManager) Winner() (*Civilization, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.winner, t.state == StateGameOver
}

func (t *TurnManager) finish(winner *Civilization) {
	t.mu.Lock()
	if t.state == StateGameOver {
		t.mu.Unlock()
		return
	}
	t.state = StateGameOver
	t.winner = winner
	turn := t.turn
	t.mu.Unlock()
	t.log.Info().Str("winner", winner.String()).Int("turn", turn).Msg("Game over")
	t.store.Bus().Publish(TurnChanged{Turn: turn, State: StateGameOver})
}

// EndTurn ends the player's turn. If an animation holds the lock the flip to
// StateAIPending happens once the lock is released; the caller is never
// blocked. The returned channel closes when the flip has happened. EndTurn
// does not start the AI; call StartAITurn for that.
func (t *TurnManager) EndTurn() (<-chan struct{}, error) {
	t.mu.Lock()
	switch t.state {
	case StateGameOver:
		t.mu.Unlock()
		return nil, ErrGameOver
	case StatePlayerTurn:
	default:
		t.mu.Unlock()
		return nil, ErrNotPlayerTurn
	}
	if t.ending != nil {
		done := t.ending
		t.mu.Unlock()
		return done, nil
	}
	done := make(chan struct{})
	t.ending = done
	t.mu.Unlock()

	lock := t.store.Lock()
	if _, held := lock.Held(); !held {
		t.flipToAI(done)
		return done, nil
	}
	t.log.Debug().Msg("End turn deferred until animation finishes")
	go func() {
		for {
			<-lock.Free()
			if _, held := lock.Held(); !held {
				break
			}
		}
		t.flipToAI(done)
	}()
	return done, nil
}

func (t *TurnManager) flipToAI(done chan struct{}) {
	t.mu.Lock()
	t.ending = nil
	if t.state != StatePlayerTurn {
		t.mu.Unlock()
		close(done)
		return
	}
	t.state = StateAIPending
	turn := t.turn
	t.mu.Unlock()
	t.store.Bus().Publish(TurnChanged{Turn: turn, State: StateAIPending})
	close(done)
}

// StartAITurn runs every AI civilization in registration order and then hands
// the turn back to the player, replenishing moves and waking resting units.
// It must follow EndTurn. A cancelled ctx stops the loop between actions and
// leaves the manager in StateAIPending so the turn can be restarted.
func (t *TurnManager) StartAITurn(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateGameOver:
		t.mu.Unlock()
		return ErrGameOver
	case StateAIInProgress:
		t.mu.Unlock()
		return ErrTurnInProgress
	case StatePlayerTurn:
		t.mu.Unlock()
		return ErrNotAITurn
	}
	t.state = StateAIInProgress
	turn := t.turn
	t.mu.Unlock()

	t.log.Debug().Int("turn", turn).Msg("AI turn started")
	for _, civ := range t.store.AliveCivilizations() {
		if civ == t.player {
			continue
		}
		if err := t.RunCivilization(ctx, civ, t.selector); err != nil {
			t.mu.Lock()
			if t.state == StateAIInProgress {
				t.state = StateAIPending
			}
			t.mu.Unlock()
			return err
		}
		if t.State() == StateGameOver {
			return nil
		}
	}
	t.endRound()
	return nil
}

// endRound heals idle units, resets moves and states and gives the turn back.
func (t *TurnManager) endRound() {
	if t.heal > 0 {
		t.store.HealIdle(t.heal)
	}
	t.store.ResetMoves()
	t.store.ResetUnitStates()

	t.mu.Lock()
	if t.state == StateGameOver {
		t.mu.Unlock()
		return
	}
	t.turn++
	t.state = StatePlayerTurn
	turn := t.turn
	t.mu.Unlock()
	t.log.Debug().Int("turn", turn).Msg("Player turn started")
	t.store.Bus().Publish(TurnChanged{Turn: turn, State: StatePlayerTurn})
}

// RunCivilization lets selector act for civ until none of its units has
// moves left. Every action waits for the animation lock to be released
// before the next one is chosen. A unit whose chosen action fails has its
// moves forced to zero, so the loop always terminates.
func (t *TurnManager) RunCivilization(ctx context.Context, civ *Civilization, selector Selector) error {
	lock := t.store.Lock()
	for {
		if err := lock.Wait(ctx); err != nil {
			return err
		}
		if t.State() == StateGameOver {
			return nil
		}
		movable := t.store.MovableUnits(civ)
		if len(movable) == 0 {
			return nil
		}
		action, ok := selector.BestMove(t.store, civ)
		if !ok {
			for _, u := range movable {
				_ = t.store.Skip(u.Position)
			}
			return nil
		}
		if err := t.Execute(action); err != nil {
			t.log.Debug().Err(err).Str("civ", civ.Name).Str("action", action.Kind.String()).
				Str("from", action.From.String()).Str("to", action.To.String()).Msg("AI action failed")
			if errors.Is(err, ErrLockHeld) {
				continue
			}
			_ = t.store.Skip(action.From)
		}
		if err := lock.Wait(ctx); err != nil {
			return err
		}
		if t.delay > 0 {
			select {
			case <-time.After(t.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Execute performs one action against the store.
func (t *TurnManager) Execute(a Action) error {
	switch a.Kind {
	case ActionAttack:
		_, err := t.combat.Resolve(a.From, a.To)
		return err
	case ActionFortify:
		return t.store.Fortify(a.From)
	case ActionSkip:
		return t.store.Skip(a.From)
	default:
		return t.store.Move(a.From, a.To)
	}
}
