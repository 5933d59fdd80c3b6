package bot

import (
	"github.com/rs/zerolog"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

const (
	// killBonus is added to attacks whose centered damage finishes the defender.
	killBonus = 25.0
	// retreatHealth is the health fraction below which a unit with no
	// finishing blow fortifies to heal.
	retreatHealth = 0.35
	fortifyScore  = 1.5
)

var quiet = zerolog.Nop()

// TacticalStrategy extends the greedy scoring with combat forecasts. It
// never takes an attack whose centered retaliation would kill the attacker,
// prefers attacks that finish the defender, and pulls badly hurt units back
// into fortification.
type TacticalStrategy struct{}

func (TacticalStrategy) Name() string { return "tactical" }

func (TacticalStrategy) BestMove(store *hexgame.Store, civ *hexgame.Civilization) (hexgame.Action, bool) {
	combat := hexgame.NewCombat(store, hexgame.Config{Logger: &quiet})

	var best hexgame.Action
	found := false
	consider := func(a hexgame.Action) {
		if !found || a.Score > best.Score {
			best = a
			found = true
		}
	}

	for _, u := range store.MovableUnits(civ) {
		finishing := false
		for _, cand := range store.Candidates(u.Position) {
			a, ok := hexgame.ScoreCandidate(store, u, cand)
			if !ok {
				continue
			}
			if a.Kind == hexgame.ActionAttack {
				score, ok := rateAttack(store, combat, u, cand)
				if !ok {
					continue
				}
				if score > 0 {
					finishing = true
				}
				a.Score += score
			}
			consider(a)
		}
		if !finishing && u.HealthFraction() < retreatHealth {
			consider(hexgame.Action{Kind: hexgame.ActionFortify, From: u.Position, To: u.Position, Score: fortifyScore})
		}
	}
	return best, found
}

// rateAttack returns the bonus for attacking target with u, or false if the
// forecast says the attacker dies.
func rateAttack(store *hexgame.Store, combat *hexgame.Combat, u hexgame.Unit, target hexgame.Position) (float64, bool) {
	f, err := combat.Preview(u.Position, target)
	if err != nil {
		return 0, false
	}
	if f.Retaliation.Center >= u.Health {
		return 0, false
	}
	def, ok := store.TryGetUnit(target)
	if ok && f.AttackDamage.Center >= def.Health {
		return killBonus, true
	}
	return 0, true
}
