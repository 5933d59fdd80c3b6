package hexgame

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

var (
	testRed  = &Civilization{Name: "Red"}
	testBlue = &Civilization{Name: "Blue"}
)

func testConfig() Config {
	nop := zerolog.Nop()
	return Config{Logger: &nop, Debug: true, Jitter: func() float64 { return 1 }}
}

func newTestStore(t *testing.T, w, h int) (*Board, *Store) {
	t.Helper()
	b := NewBoard(w, h)
	b.Fill(Grassland)
	return b, NewStore(b, testConfig())
}

func mustRegister(t *testing.T, s *Store, civ *Civilization, kind *UnitKind, pos Position) Unit {
	t.Helper()
	u, err := s.RegisterUnit(civ, kind, pos)
	if err != nil {
		t.Fatalf("RegisterUnit(%s, %s, %s): %v", civ, kind.ID, pos, err)
	}
	return u
}

func TestStore_RegisterThenGet(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})

	u, ok := s.TryGetUnit(Position{2, 2})
	if !ok {
		t.Fatal("expected unit at (2,2)")
	}
	if u.Kind != Warrior || u.Health != Warrior.MaxHealth || u.MovesLeft != Warrior.Movement || u.State != Ready {
		t.Errorf("unexpected registered unit %+v", u)
	}
	if !s.HasUnitAt(Position{2, 2}) || s.HasUnitAt(Position{1, 1}) {
		t.Error("HasUnitAt disagrees with registration")
	}
}

func TestStore_RegisterRejectsOccupiedAndOutOfBounds(t *testing.T) {
	_, s := newTestStore(t, 3, 3)
	mustRegister(t, s, testRed, Warrior, Position{1, 1})

	_, err := s.RegisterUnit(testBlue, Archer, Position{1, 1})
	if !errors.Is(err, ErrTileOccupied) {
		t.Errorf("expected ErrTileOccupied, got %v", err)
	}
	u, _ := s.TryGetUnit(Position{1, 1})
	if u.Civ != testRed {
		t.Error("occupied registration should not overwrite")
	}
	if _, err := s.RegisterUnit(testRed, Warrior, Position{5, 0}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestStore_MoveRelocatesUnit(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})
	mustRegister(t, s, testRed, Spearman, Position{0, 0})

	if err := s.Move(Position{2, 2}, Position{3, 2}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.HasUnitAt(Position{2, 2}) {
		t.Error("unit should have left (2,2)")
	}
	u, ok := s.TryGetUnit(Position{3, 2})
	if !ok {
		t.Fatal("unit should be at (3,2)")
	}
	if u.MovesLeft != Warrior.Movement-1 {
		t.Errorf("expected movesLeft %d, got %d", Warrior.Movement-1, u.MovesLeft)
	}

	units := s.UnitsOf(testRed)
	if len(units) != 2 {
		t.Fatalf("civilization should still own exactly 2 units, got %d", len(units))
	}
	count := 0
	for _, ru := range units {
		if ru.ID == u.ID {
			count++
			if ru.Position != (Position{3, 2}) {
				t.Errorf("civilization view has stale position %s", ru.Position)
			}
		}
	}
	if count != 1 {
		t.Errorf("moved unit appears %d times in civilization view", count)
	}
	if _, held := s.Lock().Held(); held {
		t.Error("no-op sink should release the lock before Move returns")
	}
}

func TestStore_MoveFlatCostIgnoresTerrain(t *testing.T) {
	b, s := newTestStore(t, 5, 5)
	_ = b.SetTerrain(Position{3, 2}, Hills)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})

	if err := s.Move(Position{2, 2}, Position{3, 2}); err != nil {
		t.Fatal(err)
	}
	u, _ := s.TryGetUnit(Position{3, 2})
	if u.MovesLeft != 1 {
		t.Errorf("adjacent mode should charge 1 move on hills, got %d left", u.MovesLeft)
	}
}

func TestStore_MoveRejections(t *testing.T) {
	b, s := newTestStore(t, 5, 5)
	_ = b.SetTerrain(Position{1, 2}, Mountain)
	_ = b.SetTerrain(Position{2, 3}, Ocean)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})
	mustRegister(t, s, testRed, Spearman, Position{3, 2})

	tests := []struct {
		name string
		from Position
		to   Position
		want error
	}{
		{"empty source", Position{0, 0}, Position{1, 0}, ErrNoUnit},
		{"friendly occupied", Position{2, 2}, Position{3, 2}, ErrTileOccupied},
		{"not adjacent", Position{2, 2}, Position{4, 4}, ErrNotCandidate},
		{"mountain", Position{2, 2}, Position{1, 2}, ErrImpassable},
		{"ocean", Position{2, 2}, Position{2, 3}, ErrImpassable},
		{"off board", Position{3, 2}, Position{5, 2}, ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Move(tt.from, tt.to)
			if !errors.Is(err, ErrInvalidMove) || !errors.Is(err, tt.want) {
				t.Errorf("expected invalid move (%v), got %v", tt.want, err)
			}
		})
	}
	u, _ := s.TryGetUnit(Position{2, 2})
	if u.MovesLeft != Warrior.Movement {
		t.Error("rejected moves must not consume moves")
	}
}

func TestStore_MoveNoMovesLeft(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})
	if err := s.Skip(Position{2, 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(Position{2, 2}, Position{3, 2}); !errors.Is(err, ErrNoMovesLeft) {
		t.Errorf("expected ErrNoMovesLeft, got %v", err)
	}
}

func TestStore_MoveRejectedWhileLockHeld(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})

	if !s.Lock().TryAcquire(LockCombat) {
		t.Fatal("lock should be free")
	}
	if err := s.Move(Position{2, 2}, Position{3, 2}); !errors.Is(err, ErrLockHeld) {
		t.Errorf("expected ErrLockHeld, got %v", err)
	}
	if !s.HasUnitAt(Position{2, 2}) {
		t.Error("rejected move must not relocate the unit")
	}
	s.Lock().Release()
	if err := s.Move(Position{2, 2}, Position{3, 2}); err != nil {
		t.Errorf("move after release: %v", err)
	}
}

func TestStore_MoveHoldsLockUntilSinkDone(t *testing.T) {
	b := NewBoard(5, 5)
	b.Fill(Grassland)
	done := make(chan struct{})
	cfg := testConfig()
	cfg.Sink = SinkFunc{Move: func(Unit, Position, Position) <-chan struct{} { return done }}
	s := NewStore(b, cfg)
	mustRegister(t, s, testRed, Warrior, Position{2, 2})

	if err := s.Move(Position{2, 2}, Position{3, 2}); err != nil {
		t.Fatal(err)
	}
	if !s.HasUnitAt(Position{3, 2}) {
		t.Error("position must update before the animation finishes")
	}
	if kind, held := s.Lock().Held(); !held || kind != LockMove {
		t.Fatalf("expected move lock held, got %v %v", kind, held)
	}
	if err := s.Move(Position{3, 2}, Position{4, 2}); !errors.Is(err, ErrLockHeld) {
		t.Errorf("second move during animation should be rejected, got %v", err)
	}
	close(done)
	<-s.Lock().Free()
	if _, held := s.Lock().Held(); held {
		t.Error("lock should be released after the sink finishes")
	}
}

func TestStore_ReachableMode(t *testing.T) {
	b := NewBoard(6, 1)
	b.Fill(Grassland)
	_ = b.SetTerrain(Position{2, 0}, Hills)
	cfg := testConfig()
	cfg.Movement = MovementReachable
	s := NewStore(b, cfg)
	mustRegister(t, s, testRed, Scout, Position{0, 0})

	if err := s.Move(Position{0, 0}, Position{2, 0}); err != nil {
		t.Fatalf("multi-step move: %v", err)
	}
	u, _ := s.TryGetUnit(Position{2, 0})
	if u.MovesLeft != 0 {
		t.Errorf("grassland + hills should cost 3, %d moves left", u.MovesLeft)
	}

	mustRegister(t, s, testRed, Scout, Position{5, 0})
	if err := s.Move(Position{5, 0}, Position{1, 0}); !errors.Is(err, ErrNotCandidate) {
		t.Errorf("blocked path should be rejected, got %v", err)
	}
}

func TestStore_Candidates(t *testing.T) {
	b := NewBoard(6, 1)
	b.Fill(Grassland)
	_, adj := newTestStore(t, 6, 1)
	mustRegister(t, adj, testRed, Scout, Position{0, 0})
	if got := adj.Candidates(Position{0, 0}); len(got) != 1 || got[0] != (Position{1, 0}) {
		t.Errorf("adjacent candidates = %v", got)
	}

	cfg := testConfig()
	cfg.Movement = MovementReachable
	far := NewStore(b, cfg)
	mustRegister(t, far, testRed, Scout, Position{0, 0})
	got := far.Candidates(Position{0, 0})
	want := []Position{{1, 0}, {2, 0}, {3, 0}}
	if len(got) != len(want) {
		t.Fatalf("reachable candidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_UpdateAndRemove(t *testing.T) {
	_, s := newTestStore(t, 3, 3)
	u := mustRegister(t, s, testRed, Warrior, Position{1, 1})

	u.Health = 250
	u.MovesLeft = -3
	u.Position = Position{0, 0}
	if err := s.Update(Position{1, 1}, u); err != nil {
		t.Fatal(err)
	}
	got, ok := s.TryGetUnit(Position{1, 1})
	if !ok {
		t.Fatal("update must not move the unit")
	}
	if got.Health != Warrior.MaxHealth || got.MovesLeft != 0 {
		t.Errorf("update should clamp, got health %d moves %d", got.Health, got.MovesLeft)
	}

	if err := s.Update(Position{2, 2}, u); !errors.Is(err, ErrNoUnit) {
		t.Errorf("expected ErrNoUnit, got %v", err)
	}

	if !s.Remove(Position{1, 1}) {
		t.Error("Remove should report the removed unit")
	}
	if s.Remove(Position{1, 1}) {
		t.Error("second Remove should report nothing removed")
	}
	if len(s.UnitsOf(testRed)) != 0 {
		t.Error("removed unit still listed for its civilization")
	}
}

func TestStore_UpdateToZeroHealthRemoves(t *testing.T) {
	_, s := newTestStore(t, 3, 3)
	u := mustRegister(t, s, testRed, Warrior, Position{1, 1})
	u.Health = 0
	if err := s.Update(Position{1, 1}, u); err != nil {
		t.Fatal(err)
	}
	if s.HasUnitAt(Position{1, 1}) {
		t.Error("a unit with no health should be destroyed")
	}
}

func TestStore_ResetMovesAndStates(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{0, 0})
	mustRegister(t, s, testRed, Spearman, Position{2, 2})
	mustRegister(t, s, testBlue, Scout, Position{4, 4})

	_ = s.Move(Position{0, 0}, Position{1, 0})
	_ = s.Rest(Position{2, 2})
	_ = s.Fortify(Position{4, 4})

	s.ResetMoves()
	for _, u := range s.Units() {
		if u.MovesLeft != u.Kind.Movement {
			t.Errorf("unit %d has %d moves after reset, want %d", u.ID, u.MovesLeft, u.Kind.Movement)
		}
	}

	s.ResetUnitStates()
	if u, _ := s.TryGetUnit(Position{2, 2}); u.State != Ready {
		t.Errorf("resting unit should wake, got %s", u.State)
	}
	if u, _ := s.TryGetUnit(Position{4, 4}); u.State != Fortified {
		t.Errorf("fortified unit should stay fortified, got %s", u.State)
	}
}

func TestStore_GetNextReadyUnit(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	first := mustRegister(t, s, testRed, Warrior, Position{3, 3})
	second := mustRegister(t, s, testRed, Spearman, Position{0, 0})
	mustRegister(t, s, testBlue, Scout, Position{4, 4})

	u, ok := s.GetNextReadyUnit(testRed)
	if !ok || u.ID != first.ID {
		t.Fatalf("expected first registered unit, got %+v", u)
	}
	_ = s.Fortify(first.Position)
	u, ok = s.GetNextReadyUnit(testRed)
	if !ok || u.ID != second.ID {
		t.Fatalf("expected second unit once first is fortified, got %+v", u)
	}
	_ = s.Skip(second.Position)
	if _, ok := s.GetNextReadyUnit(testRed); ok {
		t.Error("no unit should be ready")
	}
}

func TestStore_CheckGameOver(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	if winner, over := s.CheckGameOver(); !over || winner != nil {
		t.Errorf("empty board should be a draw, got %v %v", winner, over)
	}
	mustRegister(t, s, testRed, Warrior, Position{0, 0})
	mustRegister(t, s, testBlue, Warrior, Position{4, 4})
	if _, over := s.CheckGameOver(); over {
		t.Error("two civilizations alive, game should continue")
	}
	s.Remove(Position{4, 4})
	winner, over := s.CheckGameOver()
	if !over || winner != testRed {
		t.Errorf("expected Red to win, got %v %v", winner, over)
	}
}

func TestStore_Events(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{0, 0})

	var got []EventType
	s.Bus().Subscribe(func(e Event) { got = append(got, e.Type()) })

	_ = s.Fortify(Position{0, 0})
	s.ResetMoves()
	_ = s.Move(Position{0, 0}, Position{1, 0})

	want := []EventType{
		EventUnitStateChanged, EventMovesConsumed,
		EventUnitStateChanged, EventUnitMoved,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_ConsistencyCheck(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	mustRegister(t, s, testRed, Warrior, Position{0, 0})
	if err := s.ConsistencyCheck(); err != nil {
		t.Fatal(err)
	}
	s.units[Position{0, 0}].Position = Position{1, 1}
	if err := s.ConsistencyCheck(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("expected ErrInconsistent, got %v", err)
	}
}

func TestStore_Placements(t *testing.T) {
	_, s := newTestStore(t, 5, 5)
	u := mustRegister(t, s, testRed, Warrior, Position{0, 0})
	u.Health = 45
	_ = s.Update(u.Position, u)

	p := s.Placements()
	if len(p) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(p))
	}
	if p[0].Civ != "Red" || p[0].Kind != "warrior" || *p[0].HealthPercent != 45 {
		t.Errorf("unexpected placement %+v", p[0])
	}
}
