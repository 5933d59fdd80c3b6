package model

import (
	"time"

	"github.com/freeeve/hexfront/pkg/hexgame"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id" db:"id"`
	Provider    string    `json:"provider" db:"provider"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Game statuses.
const (
	GameActive   = "active"
	GameFinished = "finished"
)

// Game is one single-player session against AI civilizations.
type Game struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	CreatorID    string     `json:"creator_id" db:"creator_id"`
	Scenario     string     `json:"scenario" db:"scenario"`
	Difficulty   string     `json:"difficulty" db:"difficulty"`
	MovementMode string     `json:"movement_mode" db:"movement_mode"`
	Status       string     `json:"status" db:"status"`
	Winner       string     `json:"winner,omitempty" db:"winner"`
	Turn         int        `json:"turn" db:"turn"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// TurnRecord logs a turn state change.
type TurnRecord struct {
	ID        string    `json:"id" db:"id"`
	GameID    string    `json:"game_id" db:"game_id"`
	Turn      int       `json:"turn" db:"turn"`
	State     string    `json:"state" db:"state"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CombatRecord logs one resolved attack.
type CombatRecord struct {
	ID                string    `json:"id" db:"id"`
	GameID            string    `json:"game_id" db:"game_id"`
	Turn              int       `json:"turn" db:"turn"`
	AttackerCiv       string    `json:"attacker_civ" db:"attacker_civ"`
	AttackerKind      string    `json:"attacker_kind" db:"attacker_kind"`
	AttackerX         int       `json:"attacker_x" db:"attacker_x"`
	AttackerY         int       `json:"attacker_y" db:"attacker_y"`
	DefenderCiv       string    `json:"defender_civ" db:"defender_civ"`
	DefenderKind      string    `json:"defender_kind" db:"defender_kind"`
	DefenderX         int       `json:"defender_x" db:"defender_x"`
	DefenderY         int       `json:"defender_y" db:"defender_y"`
	AttackDamage      int       `json:"attack_damage" db:"attack_damage"`
	RetaliationDamage int       `json:"retaliation_damage" db:"retaliation_damage"`
	AttackerKilled    bool      `json:"attacker_killed" db:"attacker_killed"`
	DefenderKilled    bool      `json:"defender_killed" db:"defender_killed"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// NewCombatRecord flattens a combat event into a history row.
func NewCombatRecord(gameID string, turn int, ev hexgame.CombatEvent) CombatRecord {
	att, def := ev.Attacker.Before, ev.Defender.Before
	return CombatRecord{
		GameID:            gameID,
		Turn:              turn,
		AttackerCiv:       att.Civ.Name,
		AttackerKind:      att.Kind.ID,
		AttackerX:         att.Position.X,
		AttackerY:         att.Position.Y,
		DefenderCiv:       def.Civ.Name,
		DefenderKind:      def.Kind.ID,
		DefenderX:         def.Position.X,
		DefenderY:         def.Position.Y,
		AttackDamage:      ev.AttackDamage,
		RetaliationDamage: ev.RetaliationDamage,
		AttackerKilled:    ev.Attacker.Killed,
		DefenderKilled:    ev.Defender.Killed,
	}
}
