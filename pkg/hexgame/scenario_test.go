package hexgame

import (
	"errors"
	"testing"
)

func TestLoad_Skirmish(t *testing.T) {
	g := newTestGame(t, Skirmish())

	if g.Player().Name != "Rome" {
		t.Errorf("player = %s, want Rome", g.Player())
	}
	civs := g.Store.Civilizations()
	if len(civs) != 2 || civs[0].Name != "Rome" || civs[1].Name != "Carthage" {
		t.Errorf("civilizations = %v", civs)
	}
	if n := len(g.Store.Units()); n != 8 {
		t.Errorf("expected 8 units, got %d", n)
	}
	galley, ok := g.Store.TryGetUnit(Position{8, 3})
	if !ok || galley.Kind != Galley {
		t.Fatal("galley missing")
	}
	if kind, _ := g.Board.TerrainAt(Position{8, 3}); kind != Coast {
		t.Errorf("galley should start on the coast, got %v", kind)
	}
	if err := g.Store.ConsistencyCheck(); err != nil {
		t.Error(err)
	}
}

func TestLoad_HealthOverride(t *testing.T) {
	sc := duelScenario()
	sc.Units[0].HealthPercent = intPtr(40)
	g := newTestGame(t, sc)

	u, _ := g.Store.TryGetUnit(Position{0, 0})
	if u.Health != 40 {
		t.Errorf("health = %d, want 40", u.Health)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Scenario)
		want   error
	}{
		{"unknown kind", func(sc *Scenario) { sc.Units[0].Kind = "trebuchet" }, ErrUnknownKind},
		{"unknown civ", func(sc *Scenario) { sc.Units[0].Civ = "Green" }, ErrUnknownCiv},
		{"unknown terrain", func(sc *Scenario) {
			sc.Terrain = append(sc.Terrain, TerrainPlacement{Pos: Position{1, 1}, Terrain: "lava"})
		}, ErrUnknownTerrain},
		{"overlap", func(sc *Scenario) { sc.Units[1].Pos = sc.Units[0].Pos }, ErrTileOccupied},
		{"off board", func(sc *Scenario) { sc.Units[0].Pos = Position{9, 9} }, ErrOutOfBounds},
		{"terrain off board", func(sc *Scenario) {
			sc.Terrain = append(sc.Terrain, TerrainPlacement{Pos: Position{-1, 0}, Terrain: "hills"})
		}, ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := duelScenario()
			tt.modify(&sc)
			if _, err := Load(sc, nil, testConfig()); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGame_SnapshotRoundTrip(t *testing.T) {
	g := newTestGame(t, Skirmish())
	if err := g.Store.Move(Position{1, 2}, Position{2, 2}); err != nil {
		t.Fatal(err)
	}
	if err := g.Store.Fortify(Position{1, 4}); err != nil {
		t.Fatal(err)
	}

	restored := newTestGame(t, g.Snapshot())
	want := g.Store.Units()
	got := restored.Store.Units()
	if len(got) != len(want) {
		t.Fatalf("restored %d units, want %d", len(got), len(want))
	}
	for i := range want {
		w, r := want[i], got[i]
		if w.Position != r.Position || w.Kind != r.Kind || w.Civ.Name != r.Civ.Name ||
			w.Health != r.Health || w.MovesLeft != r.MovesLeft || w.State != r.State {
			t.Errorf("unit %d: got %+v, want %+v", i, r, w)
		}
	}
	if restored.Player().Name != "Rome" {
		t.Errorf("restored player = %s", restored.Player())
	}
	kind, _ := restored.Board.TerrainAt(Position{4, 3})
	if kind != Hills {
		t.Errorf("terrain not restored, got %v", kind)
	}
}
