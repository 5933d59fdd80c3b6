package hexgame

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
)

const (
	baseDamage     = 30.0
	damageSlope    = 0.04
	minJitter      = 0.8
	maxJitter      = 1.2
	centeredJitter = 1.0
)

// CombatSide is one participant's snapshot around a single attack.
type CombatSide struct {
	Before   Unit `json:"before"`
	After    Unit `json:"after"`
	Strength int  `json:"strength"`
	Damage   int  `json:"damage"`
	Killed   bool `json:"killed"`
}

// CombatEvent is the full before/after record of one resolved attack.
type CombatEvent struct {
	Attacker          CombatSide `json:"attacker"`
	Defender          CombatSide `json:"defender"`
	Distance          int        `json:"distance"`
	Ranged            bool       `json:"ranged"`
	TerrainBonus      int        `json:"terrainBonus"`
	AttackDamage      int        `json:"attackDamage"`
	RetaliationDamage int        `json:"retaliationDamage"`
	// Advanced is set when a melee attacker moved into the defender's tile.
	Advanced bool `json:"advanced"`
}

// DamageRange is the spread of one damage roll over the jitter bounds.
type DamageRange struct {
	Min    int `json:"min"`
	Center int `json:"center"`
	Max    int `json:"max"`
}

// Forecast predicts an attack without resolving it.
type Forecast struct {
	AttackerStrength int         `json:"attackerStrength"`
	DefenderStrength int         `json:"defenderStrength"`
	Ranged           bool        `json:"ranged"`
	AttackDamage     DamageRange `json:"attackDamage"`
	Retaliation      DamageRange `json:"retaliation"`
}

// Combat resolves attacks between units in a store.
type Combat struct {
	store  *Store
	jitter func() float64
	log    zerolog.Logger
}

// NewCombat creates a combat resolver over store. A nil cfg.Jitter draws
// uniformly from [0.8, 1.2).
func NewCombat(store *Store, cfg Config) *Combat {
	jitter := cfg.Jitter
	if jitter == nil {
		jitter = func() float64 { return minJitter + rand.Float64()*(maxJitter-minJitter) }
	}
	return &Combat{store: store, jitter: jitter, log: cfg.logger()}
}

// ScaledStrength scales base by the unit's remaining health, rounded.
func ScaledStrength(u Unit, base int) int {
	if u.Kind == nil || u.Kind.MaxHealth <= 0 {
		return 0
	}
	return int(math.Round(float64(base) * float64(u.Health) / float64(u.Kind.MaxHealth)))
}

// AttackBase returns the strength a unit attacks with: ranged strength for
// ranged units, melee strength otherwise.
func AttackBase(k *UnitKind) int {
	if k.Type == Ranged {
		return k.RangedStrength
	}
	return k.MeleeStrength
}

func damage(diff int, jitter float64) int {
	return int(math.Round(baseDamage * math.Exp(damageSlope*float64(diff)) * jitter))
}

// matchup holds the strength inputs shared by Resolve and Preview.
type matchup struct {
	distance     int
	ranged       bool
	terrainBonus int
	attacker     int
	defender     int
}

func (m matchup) retaliates() bool { return !m.ranged && m.distance <= 1 }

// matchupLocked validates the pair at the given positions and computes strengths.
func (c *Combat) matchupLocked(attackerPos, defenderPos Position) (*Unit, *Unit, matchup, error) {
	s := c.store
	att, ok := s.units[attackerPos]
	if !ok {
		return nil, nil, matchup{}, &PositionError{Pos: attackerPos, Err: ErrNoUnit}
	}
	def, ok := s.units[defenderPos]
	if !ok {
		return nil, nil, matchup{}, &PositionError{Pos: defenderPos, Err: ErrNoUnit}
	}
	if att.Civ == def.Civ {
		return nil, nil, matchup{}, ErrSameCivilization
	}
	if s.terrain == nil {
		return nil, nil, matchup{}, ErrMissingTerrain
	}
	if _, ok := s.terrain.TerrainAt(attackerPos); !ok {
		return nil, nil, matchup{}, &PositionError{Pos: attackerPos, Err: ErrMissingTerrain}
	}
	defTerrain, ok := s.terrain.TerrainAt(defenderPos)
	if !ok {
		return nil, nil, matchup{}, &PositionError{Pos: defenderPos, Err: ErrMissingTerrain}
	}

	m := matchup{
		distance:     Distance(attackerPos, defenderPos),
		ranged:       att.Kind.Type == Ranged,
		terrainBonus: defTerrain.DefenseBonus,
	}
	if m.ranged && m.distance > att.Kind.Range {
		return nil, nil, matchup{}, fmt.Errorf("%w: distance %d, range %d", ErrOutOfRange, m.distance, att.Kind.Range)
	}
	m.attacker = ScaledStrength(*att, AttackBase(att.Kind))
	m.defender = ScaledStrength(*def, def.Kind.MeleeStrength+m.terrainBonus)
	return att, def, m, nil
}

// Preview forecasts the damage range of an attack without changing state.
func (c *Combat) Preview(attackerPos, defenderPos Position) (Forecast, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	_, _, m, err := c.matchupLocked(attackerPos, defenderPos)
	if err != nil {
		return Forecast{}, err
	}
	diff := m.attacker - m.defender
	f := Forecast{
		AttackerStrength: m.attacker,
		DefenderStrength: m.defender,
		Ranged:           m.ranged,
		AttackDamage: DamageRange{
			Min:    damage(diff, minJitter),
			Center: damage(diff, centeredJitter),
			Max:    damage(diff, maxJitter),
		},
	}
	if m.retaliates() {
		f.Retaliation = DamageRange{
			Min:    damage(-diff, minJitter),
			Center: damage(-diff, centeredJitter),
			Max:    damage(-diff, maxJitter),
		}
	}
	return f, nil
}

// Attack resolves one attack and reports whether it happened. Failures are
// logged and leave every unit untouched.
func (c *Combat) Attack(attackerPos, defenderPos Position) bool {
	_, err := c.Resolve(attackerPos, defenderPos)
	if err != nil {
		ev := c.log.Debug()
		if errors.Is(err, ErrNoUnit) || errors.Is(err, ErrMissingTerrain) {
			ev = c.log.Warn()
		}
		ev.Err(err).Str("attacker", attackerPos.String()).Str("defender", defenderPos.String()).Msg("Attack rejected")
		return false
	}
	return true
}

// Resolve performs one attack. All health, position and moves changes are
// applied before Resolve returns; the combat lock is held until the sink
// finishes playing the returned event.
//
// The attacker always spends its remaining moves. A killed defender is
// removed and a surviving melee attacker advances into its tile; a ranged
// attacker never moves. Retaliation only happens for melee attacks at
// distance 1.
func (c *Combat) Resolve(attackerPos, defenderPos Position) (*CombatEvent, error) {
	s := c.store
	s.mu.Lock()
	att, def, m, err := c.matchupLocked(attackerPos, defenderPos)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if att.MovesLeft <= 0 {
		s.mu.Unlock()
		return nil, &PositionError{Pos: attackerPos, Err: ErrNoMovesLeft}
	}
	if !s.lock.TryAcquire(LockCombat) {
		s.mu.Unlock()
		return nil, ErrLockHeld
	}

	diff := m.attacker - m.defender
	attackDamage := damage(diff, c.jitter())
	retaliation := 0
	if m.retaliates() {
		retaliation = damage(-diff, c.jitter())
	}

	ev := CombatEvent{
		Attacker:          CombatSide{Before: *att, Strength: m.attacker, Damage: retaliation},
		Defender:          CombatSide{Before: *def, Strength: m.defender, Damage: attackDamage},
		Distance:          m.distance,
		Ranged:            m.ranged,
		TerrainBonus:      m.terrainBonus,
		AttackDamage:      attackDamage,
		RetaliationDamage: retaliation,
	}
	defenderKilled := def.Health-attackDamage <= 0
	attackerKilled := !m.ranged && att.Health-retaliation <= 0

	def.Health = max(def.Health-attackDamage, 0)
	if !attackerKilled {
		att.Health -= retaliation
	}
	att.MovesLeft = 0
	if att.State != Ready {
		att.State = Ready
	}

	var events []Event
	if defenderKilled {
		delete(s.units, defenderPos)
		if !m.ranged && !attackerKilled && s.CanEnter(att.Kind, defenderPos) {
			delete(s.units, attackerPos)
			att.Position = defenderPos
			s.units[defenderPos] = att
			ev.Advanced = true
		}
	}
	if attackerKilled {
		delete(s.units, attackerPos)
	}
	ev.Attacker.Killed = attackerKilled
	ev.Defender.Killed = defenderKilled
	ev.Attacker.After = *att
	ev.Defender.After = *def

	events = append(events, CombatResolved{Combat: ev})
	if ev.Advanced {
		events = append(events, UnitMoved{Unit: *att, From: attackerPos, To: defenderPos})
	}
	if !attackerKilled {
		events = append(events, MovesConsumed{Unit: *att})
	}
	if winner, over := s.gameOverLocked(); over {
		events = append(events, GameOver{Winner: winner})
	}
	s.checkLocked()
	s.mu.Unlock()

	c.log.Debug().
		Str("attacker", attackerPos.String()).
		Str("defender", defenderPos.String()).
		Int("attackDamage", attackDamage).
		Int("retaliation", retaliation).
		Bool("defenderKilled", defenderKilled).
		Bool("attackerKilled", attackerKilled).
		Msg("Combat resolved")

	s.bus.Publish(events...)
	s.play(func() <-chan struct{} { return s.sink.PlayCombat(ev) })
	return &ev, nil
}
