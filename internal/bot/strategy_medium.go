package bot

import "github.com/freeeve/hexfront/pkg/hexgame"

// GreedyStrategy is the one-ply greedy selector: every candidate of every
// movable unit is scored and the single best action wins.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return "greedy" }

func (GreedyStrategy) BestMove(store *hexgame.Store, civ *hexgame.Civilization) (hexgame.Action, bool) {
	return hexgame.Greedy{}.BestMove(store, civ)
}
