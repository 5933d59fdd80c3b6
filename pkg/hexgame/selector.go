package hexgame

// ActionKind is what an AI action does.
type ActionKind int

const (
	ActionMove ActionKind = iota
	ActionAttack
	ActionFortify
	ActionSkip
)

func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionFortify:
		return "fortify"
	case ActionSkip:
		return "skip"
	default:
		return "move"
	}
}

// Action is one step chosen for a unit. To is unused for fortify and skip.
type Action struct {
	Kind  ActionKind
	From  Position
	To    Position
	Score float64
}

// Selector picks the next action for a civilization. It returns false when
// no unit of civ has a legal action.
type Selector interface {
	BestMove(store *Store, civ *Civilization) (Action, bool)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(store *Store, civ *Civilization) (Action, bool)

func (f SelectorFunc) BestMove(store *Store, civ *Civilization) (Action, bool) {
	return f(store, civ)
}

// Greedy scores every legal destination of every movable unit and returns the
// single best one. It looks one action ahead and nothing more.
//
// Per candidate tile:
//
//	score  = enemyHealth*0.5 + (myStrength-enemyStrength)*0.2   if an enemy stands there
//	score += 1/(d+1)                                            d = distance to nearest enemy
//	score += 0.5                                                if d <= movement
//
// Ties go to the first candidate in unit registration order, then candidate order.
type Greedy struct{}

func (Greedy) BestMove(store *Store, civ *Civilization) (Action, bool) {
	units := store.Units()
	var enemies []Unit
	for _, u := range units {
		if u.Civ != civ {
			enemies = append(enemies, u)
		}
	}

	var best Action
	found := false
	for _, u := range units {
		if u.Civ != civ || u.MovesLeft <= 0 {
			continue
		}
		for _, cand := range store.Candidates(u.Position) {
			a, ok := scoreCandidate(store, u, cand, enemies)
			if !ok {
				continue
			}
			if !found || a.Score > best.Score {
				best = a
				found = true
			}
		}
	}
	return best, found
}

// ScoreCandidate scores moving or attacking from u's tile to cand. It returns
// false when cand is not a legal destination for u.
func ScoreCandidate(store *Store, u Unit, cand Position) (Action, bool) {
	var enemies []Unit
	for _, e := range store.Units() {
		if e.Civ != u.Civ {
			enemies = append(enemies, e)
		}
	}
	return scoreCandidate(store, u, cand, enemies)
}

func scoreCandidate(store *Store, u Unit, cand Position, enemies []Unit) (Action, bool) {
	a := Action{Kind: ActionMove, From: u.Position, To: cand}
	occupant, occupied := store.TryGetUnit(cand)
	switch {
	case occupied && occupant.Civ == u.Civ:
		return Action{}, false
	case occupied:
		a.Kind = ActionAttack
		mine := ScaledStrength(u, AttackBase(u.Kind))
		theirs := ScaledStrength(occupant, occupant.Kind.MeleeStrength)
		a.Score += float64(occupant.Health)*0.5 + float64(mine-theirs)*0.2
	case !store.CanEnter(u.Kind, cand):
		return Action{}, false
	}

	if len(enemies) > 0 {
		d := -1
		for _, e := range enemies {
			if dist := Distance(cand, e.Position); d < 0 || dist < d {
				d = dist
			}
		}
		a.Score += 1 / float64(d+1)
		if d <= u.Kind.Movement {
			a.Score += 0.5
		}
	}
	return a, true
}
