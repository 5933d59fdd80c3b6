package hexgame

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config wires the collaborators of one simulation. The zero value is a
// headless game with the global logger, a no-op sink, adjacent movement and
// the greedy AI.
type Config struct {
	Logger   *zerolog.Logger
	Sink     Sink
	Movement MovementMode
	// Jitter returns the damage multiplier of one roll. Nil draws from [0.8, 1.2).
	Jitter   func() float64
	Selector Selector
	// AIDelay paces AI actions.
	AIDelay time.Duration
	// HealAmount is restored to resting and fortified units each round.
	// Zero means DefaultHealAmount, negative disables healing.
	HealAmount int
	// Debug panics when the store detects an inconsistent index.
	Debug bool
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return log.Logger
}

// Game bundles the components of one independent simulation.
type Game struct {
	Name    string
	Board   *Board
	Store   *Store
	Combat  *Combat
	Turns   *TurnManager
	Catalog *Catalog
}

// Player returns the human civilization.
func (g *Game) Player() *Civilization { return g.Turns.Player() }

// Snapshot captures the board and units as a scenario that Load can rebuild.
func (g *Game) Snapshot() Scenario {
	sc := Scenario{
		Name:   g.Name,
		Width:  g.Board.Width,
		Height: g.Board.Height,
		Turn:   g.Turns.Turn(),
	}
	player := g.Player()
	for _, c := range g.Store.Civilizations() {
		sc.Civilizations = append(sc.Civilizations, CivilizationSpec{Name: c.Name, Color: c.Color, Human: c == player})
	}
	for _, p := range g.Board.Positions() {
		if t, ok := g.Board.TerrainAt(p); ok {
			sc.Terrain = append(sc.Terrain, TerrainPlacement{Pos: p, Terrain: t.ID})
		}
	}
	sc.Units = g.Store.Placements()
	return sc
}

// Close releases the game's event subscriptions.
func (g *Game) Close() { g.Turns.Close() }
