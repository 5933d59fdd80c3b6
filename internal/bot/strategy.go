package bot

import (
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

// Strategy picks actions for an AI civilization, one at a time.
type Strategy interface {
	hexgame.Selector
	Name() string
}

// Difficulties accepted by StrategyForDifficulty.
var Difficulties = []string{"passive", "easy", "random", "medium", "hard"}

// StrategyForDifficulty returns the appropriate strategy for a bot difficulty level.
func StrategyForDifficulty(difficulty string) Strategy {
	return strategyWith(difficulty, nil)
}

// strategyWith is StrategyForDifficulty with rng driving the random strategy.
func strategyWith(difficulty string, rng *rand.Rand) Strategy {
	switch difficulty {
	case "passive", "hold":
		return HoldStrategy{}
	case "easy", "random":
		return RandomStrategy{Rng: rng}
	case "medium", "greedy":
		return GreedyStrategy{}
	case "hard":
		return TacticalStrategy{}
	default:
		log.Warn().Str("difficulty", difficulty).Msg("Unknown difficulty; using medium")
		return GreedyStrategy{}
	}
}

// SelectorFor dispatches each civilization to the strategy named for it in
// difficulties, falling back to fallback. Civilization names match
// case-insensitively.
func SelectorFor(difficulties map[string]string, fallback string) hexgame.Selector {
	return selectorWith(difficulties, fallback, nil)
}

func selectorWith(difficulties map[string]string, fallback string, rng *rand.Rand) hexgame.Selector {
	strategies := make(map[string]Strategy, len(difficulties))
	for civ, d := range difficulties {
		strategies[strings.ToLower(civ)] = strategyWith(d, rng)
	}
	def := strategyWith(fallback, rng)
	return hexgame.SelectorFunc(func(store *hexgame.Store, civ *hexgame.Civilization) (hexgame.Action, bool) {
		if s, ok := strategies[strings.ToLower(civ.Name)]; ok {
			return s.BestMove(store, civ)
		}
		return def.BestMove(store, civ)
	})
}

// --- HoldStrategy ---

// HoldStrategy fortifies every unit in place.
type HoldStrategy struct{}

func (HoldStrategy) Name() string { return "passive" }

func (HoldStrategy) BestMove(store *hexgame.Store, civ *hexgame.Civilization) (hexgame.Action, bool) {
	movable := store.MovableUnits(civ)
	if len(movable) == 0 {
		return hexgame.Action{}, false
	}
	u := movable[0]
	return hexgame.Action{Kind: hexgame.ActionFortify, From: u.Position, To: u.Position}, true
}

// --- RandomStrategy ---

// RandomStrategy plays random but legal actions: ~30% of the time a unit
// sits out, otherwise it attacks or moves to a random legal neighbor.
// A nil Rng uses the package-level source.
type RandomStrategy struct {
	Rng *rand.Rand
}

func (RandomStrategy) Name() string { return "random" }

func (s RandomStrategy) BestMove(store *hexgame.Store, civ *hexgame.Civilization) (hexgame.Action, bool) {
	movable := store.MovableUnits(civ)
	if len(movable) == 0 {
		return hexgame.Action{}, false
	}
	u := movable[botIntn(s.Rng, len(movable))]
	skip := hexgame.Action{Kind: hexgame.ActionSkip, From: u.Position, To: u.Position}
	if botFloat64(s.Rng) < 0.3 {
		return skip, true
	}

	cands := store.Candidates(u.Position)
	for _, idx := range botPerm(s.Rng, len(cands)) {
		a, ok := hexgame.ScoreCandidate(store, u, cands[idx])
		if ok {
			return a, true
		}
	}
	return skip, true
}
