package sqlrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freeeve/hexfront/internal/model"
)

// HistoryRepo appends turn and combat records.
type HistoryRepo struct {
	db *sqlx.DB
}

// NewHistoryRepo creates a HistoryRepo.
func NewHistoryRepo(db *sqlx.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}

// RecordTurn appends a turn state change.
func (r *HistoryRepo) RecordTurn(ctx context.Context, rec model.TurnRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO turns (id, game_id, turn, state, created_at)
		 VALUES (:id, :game_id, :turn, :state, :created_at)`, rec)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// RecordCombat appends a resolved attack.
func (r *HistoryRepo) RecordCombat(ctx context.Context, rec model.CombatRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO combats (id, game_id, turn, attacker_civ, attacker_kind, attacker_x, attacker_y,
		                      defender_civ, defender_kind, defender_x, defender_y,
		                      attack_damage, retaliation_damage, attacker_killed, defender_killed, created_at)
		 VALUES (:id, :game_id, :turn, :attacker_civ, :attacker_kind, :attacker_x, :attacker_y,
		         :defender_civ, :defender_kind, :defender_x, :defender_y,
		         :attack_damage, :retaliation_damage, :attacker_killed, :defender_killed, :created_at)`, rec)
	if err != nil {
		return fmt.Errorf("record combat: %w", err)
	}
	return nil
}

// ListTurns returns a game's turn log in order.
func (r *HistoryRepo) ListTurns(ctx context.Context, gameID string) ([]model.TurnRecord, error) {
	var out []model.TurnRecord
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT id, game_id, turn, state, created_at FROM turns WHERE game_id = ? ORDER BY created_at, turn`), gameID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return out, nil
}

// ListCombats returns a game's combat log in order.
func (r *HistoryRepo) ListCombats(ctx context.Context, gameID string) ([]model.CombatRecord, error) {
	var out []model.CombatRecord
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT id, game_id, turn, attacker_civ, attacker_kind, attacker_x, attacker_y,
		        defender_civ, defender_kind, defender_x, defender_y,
		        attack_damage, retaliation_damage, attacker_killed, defender_killed, created_at
		 FROM combats WHERE game_id = ? ORDER BY created_at, turn`), gameID)
	if err != nil {
		return nil, fmt.Errorf("list combats: %w", err)
	}
	return out, nil
}
