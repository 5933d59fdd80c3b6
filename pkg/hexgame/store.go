package hexgame

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// MovementMode selects how movement destinations are computed.
type MovementMode int

const (
	// MovementAdjacent allows only the six neighbors and charges a flat
	// single move per step regardless of terrain movement cost.
	MovementAdjacent MovementMode = iota
	// MovementReachable allows any tile reachable within the unit's moves
	// and charges the terrain movement cost of the cheapest path.
	MovementReachable
)

func (m MovementMode) String() string {
	if m == MovementReachable {
		return "reachable"
	}
	return "adjacent"
}

// ParseMovementMode maps a config string to a MovementMode. Unknown values
// fall back to MovementAdjacent.
func ParseMovementMode(s string) MovementMode {
	if s == "reachable" {
		return MovementReachable
	}
	return MovementAdjacent
}

// Store owns every live unit. Units are indexed by position only; grouping by
// civilization is derived on demand, ordered by registration.
//
// Mutations complete under the store mutex before any event is published or
// any animation starts, so readers always see post-resolution state.
type Store struct {
	mu      sync.Mutex
	terrain Terrain
	units   map[Position]*Unit
	civs    []*Civilization
	nextID  int

	mode  MovementMode
	lock  *AnimationLock
	bus   *Bus
	sink  Sink
	log   zerolog.Logger
	debug bool
}

// NewStore creates an empty store over terrain.
func NewStore(terrain Terrain, cfg Config) *Store {
	logger := cfg.logger()
	sink := cfg.Sink
	if sink == nil {
		sink = NoopSink{}
	}
	return &Store{
		terrain: terrain,
		units:   make(map[Position]*Unit),
		mode:    cfg.Movement,
		lock:    NewAnimationLock(),
		bus:     NewBus(logger),
		sink:    sink,
		log:     logger,
		debug:   cfg.Debug,
	}
}

// Lock returns the animation lock shared by moves and combat.
func (s *Store) Lock() *AnimationLock { return s.lock }

// Bus returns the event bus for this board.
func (s *Store) Bus() *Bus { return s.bus }

// Terrain returns the board the store validates against.
func (s *Store) Terrain() Terrain { return s.terrain }

// Mode returns the movement mode.
func (s *Store) Mode() MovementMode { return s.mode }

// RegisterUnit places a new unit of kind for civ at pos with full health and
// moves. Occupied or out-of-bounds positions are rejected.
func (s *Store) RegisterUnit(civ *Civilization, kind *UnitKind, pos Position) (Unit, error) {
	if civ == nil {
		return Unit{}, ErrUnknownCiv
	}
	if kind == nil {
		return Unit{}, ErrUnknownKind
	}
	if s.terrain != nil && !s.terrain.InBounds(pos) {
		return Unit{}, &PositionError{Pos: pos, Err: ErrOutOfBounds}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.units[pos]; taken {
		return Unit{}, &PositionError{Pos: pos, Err: ErrTileOccupied}
	}
	s.nextID++
	u := &Unit{
		ID:        s.nextID,
		Kind:      kind,
		Civ:       civ,
		Position:  pos,
		Health:    kind.MaxHealth,
		MovesLeft: kind.Movement,
		State:     Ready,
	}
	s.units[pos] = u
	s.addCivLocked(civ)
	return *u, nil
}

// AddCivilization records civ in turn order without placing a unit.
func (s *Store) AddCivilization(civ *Civilization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCivLocked(civ)
}

func (s *Store) addCivLocked(civ *Civilization) {
	for _, c := range s.civs {
		if c == civ {
			return
		}
	}
	s.civs = append(s.civs, civ)
}

// TryGetUnit returns a copy of the unit at pos.
func (s *Store) TryGetUnit(pos Position) (Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[pos]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// HasUnitAt returns true if any unit occupies pos.
func (s *Store) HasUnitAt(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.units[pos]
	return ok
}

// sortedLocked returns live units in registration order.
func (s *Store) sortedLocked() []*Unit {
	out := make([]*Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Units returns copies of every unit in registration order.
func (s *Store) Units() []Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := s.sortedLocked()
	out := make([]Unit, len(sorted))
	for i, u := range sorted {
		out[i] = *u
	}
	return out
}

// UnitsOf returns copies of civ's units in registration order.
func (s *Store) UnitsOf(civ *Civilization) []Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Unit
	for _, u := range s.sortedLocked() {
		if u.Civ == civ {
			out = append(out, *u)
		}
	}
	return out
}

// MovableUnits returns civ's units with moves left, in registration order.
func (s *Store) MovableUnits(civ *Civilization) []Unit {
	var out []Unit
	for _, u := range s.UnitsOf(civ) {
		if u.MovesLeft > 0 {
			out = append(out, u)
		}
	}
	return out
}

// Civilizations returns every civilization ever registered, in order of
// first registration. Eliminated civilizations stay in the list.
func (s *Store) Civilizations() []*Civilization {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Civilization, len(s.civs))
	copy(out, s.civs)
	return out
}

// CivilizationByName looks up a registered civilization.
func (s *Store) CivilizationByName(name string) (*Civilization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.civs {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// CanEnter reports whether a unit of kind may stand on pos, ignoring occupancy.
func (s *Store) CanEnter(kind *UnitKind, pos Position) bool {
	if s.terrain == nil || !s.terrain.InBounds(pos) {
		return false
	}
	t, ok := s.terrain.TerrainAt(pos)
	if !ok {
		return false
	}
	return kind.Travel.Allows(t.Travel)
}

// Candidates returns the destinations the unit at pos may consider, in a
// deterministic order. In adjacent mode these are the in-bounds neighbors
// (occupied or not). In reachable mode the neighbors come first, followed by
// the empty tiles reachable within the unit's moves, sorted by row then column.
func (s *Store) Candidates(pos Position) []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[pos]
	if !ok {
		return nil
	}
	near := CandidateMoves(pos, u.Kind.Movement, s.terrain)
	if s.mode != MovementReachable {
		return near
	}
	reach := s.reachableLocked(u)
	seen := make(map[Position]bool, len(near))
	for _, p := range near {
		seen[p] = true
	}
	var far []Position
	for p := range reach {
		if !seen[p] {
			far = append(far, p)
		}
	}
	sort.Slice(far, func(i, j int) bool {
		if far[i].Y != far[j].Y {
			return far[i].Y < far[j].Y
		}
		return far[i].X < far[j].X
	})
	return append(near, far...)
}

func (s *Store) reachableLocked(u *Unit) map[Position]int {
	return Reachable(u.Position, u.MovesLeft, s.terrain, func(p Position) (int, bool) {
		if _, taken := s.units[p]; taken {
			return 0, false
		}
		t, ok := s.terrain.TerrainAt(p)
		if !ok || !u.Kind.Travel.Allows(t.Travel) {
			return 0, false
		}
		return t.MovementCost, true
	})
}

// moveCostLocked validates a move of u to dst and returns the moves it costs.
func (s *Store) moveCostLocked(u *Unit, dst Position) (int, error) {
	if s.terrain == nil || !s.terrain.InBounds(dst) {
		return 0, ErrOutOfBounds
	}
	if _, taken := s.units[dst]; taken {
		return 0, ErrTileOccupied
	}
	if u.MovesLeft <= 0 {
		return 0, ErrNoMovesLeft
	}
	t, ok := s.terrain.TerrainAt(dst)
	if !ok || !u.Kind.Travel.Allows(t.Travel) {
		return 0, ErrImpassable
	}
	if s.mode == MovementReachable {
		cost, ok := s.reachableLocked(u)[dst]
		if !ok {
			return 0, ErrNotCandidate
		}
		return cost, nil
	}
	if !IsAdjacent(u.Position, dst) {
		return 0, ErrNotCandidate
	}
	return 1, nil
}

// Move relocates the unit at from to to. In adjacent mode the move costs
// exactly one move regardless of terrain. The new position is visible as
// soon as Move returns; the animation lock stays held until the sink reports
// the move animation finished.
func (s *Store) Move(from, to Position) error {
	s.mu.Lock()
	u, ok := s.units[from]
	if !ok {
		s.mu.Unlock()
		return &MoveError{From: from, To: to, Reason: ErrNoUnit}
	}
	cost, err := s.moveCostLocked(u, to)
	if err != nil {
		s.mu.Unlock()
		return &MoveError{From: from, To: to, Reason: err}
	}
	if !s.lock.TryAcquire(LockMove) {
		s.mu.Unlock()
		return ErrLockHeld
	}

	delete(s.units, from)
	u.Position = to
	s.units[to] = u
	u.MovesLeft = clamp(u.MovesLeft-cost, 0, u.Kind.Movement)

	var events []Event
	if u.State != Ready {
		events = append(events, UnitStateChanged{Unit: *u, From: u.State, To: Ready})
		u.State = Ready
	}
	moved := *u
	events = append(events, UnitMoved{Unit: moved, From: from, To: to})
	if moved.MovesLeft == 0 {
		events = append(events, MovesConsumed{Unit: moved})
	}
	s.checkLocked()
	s.mu.Unlock()

	s.log.Debug().Int("unit", moved.ID).Str("from", from.String()).Str("to", to.String()).
		Int("movesLeft", moved.MovesLeft).Msg("Unit moved")
	s.bus.Publish(events...)
	s.play(func() <-chan struct{} { return s.sink.PlayMove(moved, from, to) })
	return nil
}

// play runs a sink call and releases the lock when its animation ends.
// A panicking sink releases the lock immediately.
func (s *Store) play(fn func() <-chan struct{}) {
	var done <-chan struct{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("Presentation sink panicked")
				done = nil
			}
		}()
		done = fn()
	}()
	s.lock.releaseWhen(done)
}

// Update replaces the unit at pos by value. The unit keeps its position and
// identity; health and moves are clamped to the kind's limits. A unit
// updated to zero health is removed.
func (s *Store) Update(pos Position, unit Unit) error {
	if unit.Kind == nil || unit.Civ == nil {
		return fmt.Errorf("update %s: unit requires kind and civilization", pos)
	}
	s.mu.Lock()
	cur, ok := s.units[pos]
	if !ok {
		s.mu.Unlock()
		return &PositionError{Pos: pos, Err: ErrNoUnit}
	}
	var events []Event
	prevState := cur.State
	unit.ID = cur.ID
	unit.Position = pos
	unit.Health = clamp(unit.Health, 0, unit.Kind.MaxHealth)
	unit.MovesLeft = clamp(unit.MovesLeft, 0, unit.Kind.Movement)
	if unit.Health <= 0 {
		delete(s.units, pos)
	} else {
		*cur = unit
		s.addCivLocked(unit.Civ)
		if prevState != unit.State {
			events = append(events, UnitStateChanged{Unit: unit, From: prevState, To: unit.State})
		}
	}
	s.checkLocked()
	s.mu.Unlock()
	s.bus.Publish(events...)
	return nil
}

// Remove deletes the unit at pos. Returns false if the tile was empty.
func (s *Store) Remove(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[pos]; !ok {
		return false
	}
	delete(s.units, pos)
	return true
}

// ResetMoves restores every unit's moves to its kind's movement.
func (s *Store) ResetMoves() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		u.MovesLeft = u.Kind.Movement
	}
}

// ResetUnitStates wakes resting units. Fortified units stay fortified until
// they move, attack or are explicitly woken.
func (s *Store) ResetUnitStates() {
	s.mu.Lock()
	var events []Event
	for _, u := range s.sortedLocked() {
		if u.State == Resting {
			u.State = Ready
			events = append(events, UnitStateChanged{Unit: *u, From: Resting, To: Ready})
		}
	}
	s.mu.Unlock()
	s.bus.Publish(events...)
}

// HealIdle restores amount health to every resting or fortified unit.
func (s *Store) HealIdle(amount int) {
	if amount <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.State == Resting || u.State == Fortified {
			u.Health = clamp(u.Health+amount, 0, u.Kind.MaxHealth)
		}
	}
}

// GetNextReadyUnit returns civ's first unit, in registration order, that is
// ready and has moves left.
func (s *Store) GetNextReadyUnit(civ *Civilization) (Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.sortedLocked() {
		if u.Civ == civ && u.CanAct() {
			return *u, true
		}
	}
	return Unit{}, false
}

// CheckGameOver reports whether the game has ended. It returns the winner when
// exactly one civilization still has units, and a nil winner with over set
// when no units are left at all (a draw).
func (s *Store) CheckGameOver() (*Civilization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameOverLocked()
}

func (s *Store) gameOverLocked() (*Civilization, bool) {
	var alive *Civilization
	for _, u := range s.units {
		if alive == nil {
			alive = u.Civ
			continue
		}
		if u.Civ != alive {
			return nil, false
		}
	}
	return alive, true
}

// AliveCivilizations returns civilizations that still have units, in turn order.
func (s *Store) AliveCivilizations() []*Civilization {
	s.mu.Lock()
	defer s.mu.Unlock()
	has := make(map[*Civilization]bool)
	for _, u := range s.units {
		has[u.Civ] = true
	}
	var out []*Civilization
	for _, c := range s.civs {
		if has[c] {
			out = append(out, c)
		}
	}
	return out
}

// Rest puts the unit at pos to rest for the rest of the round.
func (s *Store) Rest(pos Position) error { return s.setState(pos, Resting, true) }

// Fortify fortifies the unit at pos until it is woken, moves or attacks.
func (s *Store) Fortify(pos Position) error { return s.setState(pos, Fortified, true) }

// Wake returns the unit at pos to ready without touching its moves.
func (s *Store) Wake(pos Position) error { return s.setState(pos, Ready, false) }

func (s *Store) setState(pos Position, state UnitState, endTurn bool) error {
	s.mu.Lock()
	u, ok := s.units[pos]
	if !ok {
		s.mu.Unlock()
		return &PositionError{Pos: pos, Err: ErrNoUnit}
	}
	var events []Event
	if u.State != state {
		prev := u.State
		u.State = state
		events = append(events, UnitStateChanged{Unit: *u, From: prev, To: state})
	}
	if endTurn && u.MovesLeft > 0 {
		u.MovesLeft = 0
		events = append(events, MovesConsumed{Unit: *u})
	}
	s.mu.Unlock()
	s.bus.Publish(events...)
	return nil
}

// Skip ends the unit's turn by spending all of its remaining moves.
func (s *Store) Skip(pos Position) error {
	s.mu.Lock()
	u, ok := s.units[pos]
	if !ok {
		s.mu.Unlock()
		return &PositionError{Pos: pos, Err: ErrNoUnit}
	}
	var events []Event
	if u.MovesLeft > 0 {
		u.MovesLeft = 0
		events = append(events, MovesConsumed{Unit: *u})
	}
	s.mu.Unlock()
	s.bus.Publish(events...)
	return nil
}

// ConsistencyCheck verifies the position index: every unit sits at its own
// key, ids are unique, and health and moves are in range.
func (s *Store) ConsistencyCheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consistencyLocked()
}

func (s *Store) consistencyLocked() error {
	ids := make(map[int]Position, len(s.units))
	for pos, u := range s.units {
		if u.Position != pos {
			return fmt.Errorf("%w: unit %d indexed at %s but positioned at %s", ErrInconsistent, u.ID, pos, u.Position)
		}
		if other, dup := ids[u.ID]; dup {
			return fmt.Errorf("%w: unit %d at both %s and %s", ErrInconsistent, u.ID, other, pos)
		}
		ids[u.ID] = pos
		if u.Health < 0 || u.Health > u.Kind.MaxHealth {
			return fmt.Errorf("%w: unit %d health %d outside [0,%d]", ErrInconsistent, u.ID, u.Health, u.Kind.MaxHealth)
		}
		if u.MovesLeft < 0 || u.MovesLeft > u.Kind.Movement {
			return fmt.Errorf("%w: unit %d moves %d outside [0,%d]", ErrInconsistent, u.ID, u.MovesLeft, u.Kind.Movement)
		}
	}
	return nil
}

// checkLocked runs the consistency check after a mutation. Debug stores
// panic on failure; others log and carry on.
func (s *Store) checkLocked() {
	if !s.debug {
		return
	}
	if err := s.consistencyLocked(); err != nil {
		panic(err)
	}
}
