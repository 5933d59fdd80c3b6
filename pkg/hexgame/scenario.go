package hexgame

import (
	"fmt"
	"math"
)

// CivilizationSpec declares a civilization in a scenario. Declaration order
// is turn order.
type CivilizationSpec struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Human bool   `json:"human,omitempty"`
}

// TerrainPlacement assigns a terrain kind to a tile.
type TerrainPlacement struct {
	Pos     Position `json:"pos"`
	Terrain string   `json:"terrain"`
}

// UnitPlacement places a unit. HealthPercent overrides starting health as a
// percentage of the kind's max health. MovesLeft and State are only set when
// resuming a game mid-turn.
type UnitPlacement struct {
	Civ           string    `json:"civ"`
	Kind          string    `json:"kind"`
	Pos           Position  `json:"pos"`
	HealthPercent *int      `json:"healthPercent,omitempty"`
	MovesLeft     *int      `json:"movesLeft,omitempty"`
	State         UnitState `json:"state,omitempty"`
}

// Scenario is the in-memory placement list a game is built from.
type Scenario struct {
	Name           string             `json:"name"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	DefaultTerrain string             `json:"defaultTerrain,omitempty"`
	Civilizations  []CivilizationSpec `json:"civilizations"`
	Terrain        []TerrainPlacement `json:"terrain"`
	Units          []UnitPlacement    `json:"units"`
	Turn           int                `json:"turn,omitempty"`
}

// Load builds a game from a scenario. Unknown ids, out-of-bounds or
// overlapping placements fail the whole load.
func Load(sc Scenario, cat *Catalog, cfg Config) (*Game, error) {
	if sc.Width <= 0 || sc.Height <= 0 {
		return nil, fmt.Errorf("scenario %q: invalid size %dx%d", sc.Name, sc.Width, sc.Height)
	}
	if len(sc.Civilizations) == 0 {
		return nil, fmt.Errorf("scenario %q: no civilizations", sc.Name)
	}
	if cat == nil {
		cat = DefaultCatalog()
	}

	board := NewBoard(sc.Width, sc.Height)
	if sc.DefaultTerrain != "" {
		kind, err := cat.Terrain(sc.DefaultTerrain)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: default terrain: %w", sc.Name, err)
		}
		board.Fill(kind)
	}
	for _, tp := range sc.Terrain {
		kind, err := cat.Terrain(tp.Terrain)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: terrain at %s: %w", sc.Name, tp.Pos, err)
		}
		if err := board.SetTerrain(tp.Pos, kind); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}

	store := NewStore(board, cfg)
	civs := make(map[string]*Civilization, len(sc.Civilizations))
	var player *Civilization
	for _, cs := range sc.Civilizations {
		if _, dup := civs[cs.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate civilization %q", sc.Name, cs.Name)
		}
		civ := &Civilization{Name: cs.Name, Color: cs.Color}
		civs[cs.Name] = civ
		store.AddCivilization(civ)
		if cs.Human && player == nil {
			player = civ
		}
	}
	if player == nil {
		player = civs[sc.Civilizations[0].Name]
	}

	for _, up := range sc.Units {
		if err := placeUnit(store, cat, civs, up); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}

	combat := NewCombat(store, cfg)
	turns := NewTurnManager(store, combat, player, cfg)
	if sc.Turn > 0 {
		turns.SetTurn(sc.Turn)
	}
	return &Game{
		Name:    sc.Name,
		Board:   board,
		Store:   store,
		Combat:  combat,
		Turns:   turns,
		Catalog: cat,
	}, nil
}

func placeUnit(store *Store, cat *Catalog, civs map[string]*Civilization, up UnitPlacement) error {
	civ, ok := civs[up.Civ]
	if !ok {
		return fmt.Errorf("unit at %s: %w: %q", up.Pos, ErrUnknownCiv, up.Civ)
	}
	kind, err := cat.Unit(up.Kind)
	if err != nil {
		return fmt.Errorf("unit at %s: %w", up.Pos, err)
	}
	u, err := store.RegisterUnit(civ, kind, up.Pos)
	if err != nil {
		return fmt.Errorf("unit %s: %w", up.Kind, err)
	}
	if up.HealthPercent == nil && up.MovesLeft == nil && up.State == Ready {
		return nil
	}
	if up.HealthPercent != nil {
		pct := clamp(*up.HealthPercent, 1, 100)
		u.Health = clamp(int(math.Round(float64(kind.MaxHealth)*float64(pct)/100)), 1, kind.MaxHealth)
	}
	if up.MovesLeft != nil {
		u.MovesLeft = *up.MovesLeft
	}
	u.State = up.State
	return store.Update(up.Pos, u)
}

// Placements returns the store's units as a placement list, in registration
// order, carrying health, moves and state so the board can be rebuilt.
func (s *Store) Placements() []UnitPlacement {
	units := s.Units()
	out := make([]UnitPlacement, 0, len(units))
	for _, u := range units {
		pct := int(math.Round(u.HealthFraction() * 100))
		moves := u.MovesLeft
		out = append(out, UnitPlacement{
			Civ:           u.Civ.Name,
			Kind:          u.Kind.ID,
			Pos:           u.Position,
			HealthPercent: &pct,
			MovesLeft:     &moves,
			State:         u.State,
		})
	}
	return out
}

// Skirmish returns the built-in two-civilization scenario on a 10x8 board.
func Skirmish() Scenario {
	sc := Scenario{
		Name:           "skirmish",
		Width:          10,
		Height:         8,
		DefaultTerrain: Grassland.ID,
		Civilizations: []CivilizationSpec{
			{Name: "Rome", Color: "#b22222", Human: true},
			{Name: "Carthage", Color: "#4169e1"},
		},
	}
	for y := 0; y < sc.Height; y++ {
		sc.Terrain = append(sc.Terrain, TerrainPlacement{Pos: Position{X: 9, Y: y}, Terrain: Ocean.ID})
		sc.Terrain = append(sc.Terrain, TerrainPlacement{Pos: Position{X: 8, Y: y}, Terrain: Coast.ID})
	}
	sc.Terrain = append(sc.Terrain,
		TerrainPlacement{Pos: Position{X: 4, Y: 3}, Terrain: Hills.ID},
		TerrainPlacement{Pos: Position{X: 4, Y: 4}, Terrain: Hills.ID},
		TerrainPlacement{Pos: Position{X: 2, Y: 5}, Terrain: Forest.ID},
		TerrainPlacement{Pos: Position{X: 6, Y: 2}, Terrain: Forest.ID},
		TerrainPlacement{Pos: Position{X: 5, Y: 6}, Terrain: Marsh.ID},
		TerrainPlacement{Pos: Position{X: 3, Y: 1}, Terrain: Mountain.ID},
		TerrainPlacement{Pos: Position{X: 6, Y: 5}, Terrain: Plains.ID},
	)
	sc.Units = []UnitPlacement{
		{Civ: "Rome", Kind: Warrior.ID, Pos: Position{X: 1, Y: 2}},
		{Civ: "Rome", Kind: Spearman.ID, Pos: Position{X: 1, Y: 4}},
		{Civ: "Rome", Kind: Archer.ID, Pos: Position{X: 0, Y: 3}},
		{Civ: "Rome", Kind: Scout.ID, Pos: Position{X: 2, Y: 6}},
		{Civ: "Carthage", Kind: Warrior.ID, Pos: Position{X: 7, Y: 2}},
		{Civ: "Carthage", Kind: Spearman.ID, Pos: Position{X: 7, Y: 4}},
		{Civ: "Carthage", Kind: Catapult.ID, Pos: Position{X: 7, Y: 6}},
		{Civ: "Carthage", Kind: Galley.ID, Pos: Position{X: 8, Y: 3}},
	}
	return sc
}
