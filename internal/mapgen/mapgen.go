// Package mapgen generates procedural skirmish scenarios from layered noise.
package mapgen

import (
	"fmt"
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

// Config controls scenario generation.
type Config struct {
	Seed          int64
	Width         int
	Height        int
	SeaLevel      float64 // elevation below which tiles are ocean
	MountainLevel float64 // elevation above which tiles are mountains
	Civilizations []hexgame.CivilizationSpec
	Army          []string // unit kind ids placed for every civilization
}

// DefaultConfig returns a 12x10 two-civilization config.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:          seed,
		Width:         12,
		Height:        10,
		SeaLevel:      0.28,
		MountainLevel: 0.82,
		Civilizations: []hexgame.CivilizationSpec{
			{Name: "Rome", Color: "#b22222", Human: true},
			{Name: "Carthage", Color: "#4169e1"},
		},
		Army: []string{"warrior", "spearman", "archer", "scout"},
	}
}

var palette = []string{"#b22222", "#4169e1", "#2e8b57", "#daa520", "#8a2be2", "#ff8c00"}

// Generate builds a scenario. The same config always yields the same scenario.
func Generate(cfg Config, cat *hexgame.Catalog) (hexgame.Scenario, error) {
	if cfg.Width < 4 || cfg.Height < 4 {
		return hexgame.Scenario{}, fmt.Errorf("mapgen: board %dx%d too small", cfg.Width, cfg.Height)
	}
	if len(cfg.Civilizations) < 2 {
		return hexgame.Scenario{}, fmt.Errorf("mapgen: need at least two civilizations, got %d", len(cfg.Civilizations))
	}
	if cat == nil {
		cat = hexgame.DefaultCatalog()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int64()
	}

	sc := hexgame.Scenario{
		Name:   fmt.Sprintf("generated-%d", seed),
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	for i, c := range cfg.Civilizations {
		if c.Color == "" {
			c.Color = palette[i%len(palette)]
		}
		sc.Civilizations = append(sc.Civilizations, c)
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)

	board := hexgame.NewBoard(cfg.Width, cfg.Height)
	for _, p := range board.Positions() {
		// Odd rows sit half a tile to the right.
		x := float64(p.X) + 0.5*float64(p.Y&1)
		y := float64(p.Y) * math.Sqrt(3) / 2

		elev := octaveNoise(elevNoise, x, y, 4, 0.12, 0.5)
		rain := octaveNoise(rainNoise, x, y, 3, 0.09, 0.5)

		// Spawn columns stay dry so every civilization has land to stand on.
		if p.X <= 1 || p.X >= cfg.Width-2 {
			elev = math.Max(elev, cfg.SeaLevel+0.1)
		}
		id := deriveTerrain(elev, rain, cfg)
		kind, err := cat.Terrain(id)
		if err != nil {
			return hexgame.Scenario{}, fmt.Errorf("mapgen: %w", err)
		}
		_ = board.SetTerrain(p, kind)
		sc.Terrain = append(sc.Terrain, hexgame.TerrainPlacement{Pos: p, Terrain: id})
	}

	taken := make(map[hexgame.Position]bool)
	n := len(sc.Civilizations)
	for i, civ := range sc.Civilizations {
		anchor := hexgame.Position{
			X: 1 + i*(cfg.Width-3)/(n-1),
			Y: cfg.Height / 2,
		}
		for _, kindID := range cfg.Army {
			kind, err := cat.Unit(kindID)
			if err != nil {
				return hexgame.Scenario{}, fmt.Errorf("mapgen: %w", err)
			}
			pos, ok := nearestFree(board, kind, anchor, taken)
			if !ok {
				return hexgame.Scenario{}, fmt.Errorf("mapgen: no room for %s of %s", kindID, civ.Name)
			}
			taken[pos] = true
			sc.Units = append(sc.Units, hexgame.UnitPlacement{Civ: civ.Name, Kind: kindID, Pos: pos})
		}
	}
	return sc, nil
}

func deriveTerrain(elev, rain float64, cfg Config) string {
	switch {
	case elev < cfg.SeaLevel-0.08:
		return hexgame.Ocean.ID
	case elev < cfg.SeaLevel:
		return hexgame.Coast.ID
	case elev > cfg.MountainLevel:
		return hexgame.Mountain.ID
	case elev > cfg.MountainLevel-0.12:
		return hexgame.Hills.ID
	case rain > 0.68 && elev < cfg.SeaLevel+0.08:
		return hexgame.Marsh.ID
	case rain > 0.6:
		return hexgame.Forest.ID
	case rain < 0.35:
		return hexgame.Plains.ID
	default:
		return hexgame.Grassland.ID
	}
}

// nearestFree walks outward from anchor and returns the first free tile the
// kind can stand on.
func nearestFree(board *hexgame.Board, kind *hexgame.UnitKind, anchor hexgame.Position, taken map[hexgame.Position]bool) (hexgame.Position, bool) {
	seen := map[hexgame.Position]bool{anchor: true}
	queue := []hexgame.Position{anchor}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if t, ok := board.TerrainAt(p); ok && !taken[p] && kind.Travel.Allows(t.Travel) {
			return p, true
		}
		for _, n := range hexgame.CandidateMoves(p, 1, board) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return hexgame.Position{}, false
}

// octaveNoise layers several frequencies of noise, normalized back to [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
