package service

import (
	"time"

	"github.com/freeeve/hexfront/internal/model"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

// UnitView is the wire form of a unit.
type UnitView struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Civ       string `json:"civ"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	MovesLeft int    `json:"moves_left"`
	Movement  int    `json:"movement"`
	State     string `json:"state"`
}

// NewUnitView flattens a unit.
func NewUnitView(u hexgame.Unit) UnitView {
	v := UnitView{
		ID:        u.ID,
		Civ:       u.Civ.String(),
		X:         u.Position.X,
		Y:         u.Position.Y,
		Health:    u.Health,
		MovesLeft: u.MovesLeft,
		State:     u.State.String(),
	}
	if u.Kind != nil {
		v.Kind = u.Kind.ID
		v.Type = u.Kind.Type.String()
		v.MaxHealth = u.Kind.MaxHealth
		v.Movement = u.Kind.Movement
	}
	return v
}

// CombatSideView is one side of a resolved combat.
type CombatSideView struct {
	Before   UnitView `json:"before"`
	After    UnitView `json:"after"`
	Strength int      `json:"strength"`
	Damage   int      `json:"damage"`
	Killed   bool     `json:"killed"`
}

// CombatView is the wire form of a resolved combat.
type CombatView struct {
	Attacker          CombatSideView `json:"attacker"`
	Defender          CombatSideView `json:"defender"`
	Distance          int            `json:"distance"`
	Ranged            bool           `json:"ranged"`
	TerrainBonus      int            `json:"terrain_bonus"`
	AttackDamage      int            `json:"attack_damage"`
	RetaliationDamage int            `json:"retaliation_damage"`
	Advanced          bool           `json:"advanced"`
}

func newSideView(s hexgame.CombatSide) CombatSideView {
	return CombatSideView{
		Before:   NewUnitView(s.Before),
		After:    NewUnitView(s.After),
		Strength: s.Strength,
		Damage:   s.Damage,
		Killed:   s.Killed,
	}
}

// NewCombatView flattens a combat event.
func NewCombatView(ev hexgame.CombatEvent) CombatView {
	return CombatView{
		Attacker:          newSideView(ev.Attacker),
		Defender:          newSideView(ev.Defender),
		Distance:          ev.Distance,
		Ranged:            ev.Ranged,
		TerrainBonus:      ev.TerrainBonus,
		AttackDamage:      ev.AttackDamage,
		RetaliationDamage: ev.RetaliationDamage,
		Advanced:          ev.Advanced,
	}
}

// TileView is one board tile.
type TileView struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Terrain string `json:"terrain"`
}

// CivilizationView is one civilization and whether it still has units.
type CivilizationView struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Human bool   `json:"human"`
	Alive bool   `json:"alive"`
}

// GameView is the complete live state of a session.
type GameView struct {
	Game          *model.Game        `json:"game"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Tiles         []TileView         `json:"tiles"`
	Civilizations []CivilizationView `json:"civilizations"`
	Units         []UnitView         `json:"units"`
	Turn          int                `json:"turn"`
	State         string             `json:"state"`
	Winner        string             `json:"winner,omitempty"`
	Deadline      *time.Time         `json:"deadline,omitempty"`
}

func newGameView(record *model.Game, g *hexgame.Game) *GameView {
	v := &GameView{
		Game:   record,
		Width:  g.Board.Width,
		Height: g.Board.Height,
		Turn:   g.Turns.Turn(),
		State:  g.Turns.State().String(),
	}
	for _, p := range g.Board.Positions() {
		if t, ok := g.Board.TerrainAt(p); ok {
			v.Tiles = append(v.Tiles, TileView{X: p.X, Y: p.Y, Terrain: t.ID})
		}
	}
	alive := make(map[*hexgame.Civilization]bool)
	for _, c := range g.Store.AliveCivilizations() {
		alive[c] = true
	}
	player := g.Player()
	for _, c := range g.Store.Civilizations() {
		v.Civilizations = append(v.Civilizations, CivilizationView{Name: c.Name, Color: c.Color, Human: c == player, Alive: alive[c]})
	}
	for _, u := range g.Store.Units() {
		v.Units = append(v.Units, NewUnitView(u))
	}
	if w, over := g.Turns.Winner(); over {
		v.Winner = hexgame.WinnerName(w)
	}
	return v
}
