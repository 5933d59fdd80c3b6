package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freeeve/hexfront/internal/model"
)

const gameColumns = `id, name, creator_id, scenario, difficulty, movement_mode, status, winner, turn, created_at, finished_at`

// GameRepo handles game rows.
type GameRepo struct {
	db *sqlx.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sqlx.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new active game at turn 1.
func (r *GameRepo) Create(ctx context.Context, name, creatorID, scenario, difficulty, movementMode string) (*model.Game, error) {
	var g model.Game
	err := r.db.GetContext(ctx, &g, r.db.Rebind(
		`INSERT INTO games (id, name, creator_id, scenario, difficulty, movement_mode, status, winner, turn, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', 1, ?)
		 RETURNING `+gameColumns),
		uuid.NewString(), name, creatorID, scenario, difficulty, movementMode, model.GameActive, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &g, nil
}

// FindByID returns a game by id, or nil if it does not exist.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	err := r.db.GetContext(ctx, &g, r.db.Rebind(`SELECT `+gameColumns+` FROM games WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return &g, nil
}

// ListByUser returns a user's games, most recent first.
func (r *GameRepo) ListByUser(ctx context.Context, userID string) ([]model.Game, error) {
	var games []model.Game
	err := r.db.SelectContext(ctx, &games, r.db.Rebind(
		`SELECT `+gameColumns+` FROM games WHERE creator_id = ? ORDER BY created_at DESC LIMIT 50`), userID)
	if err != nil {
		return nil, fmt.Errorf("list user games: %w", err)
	}
	return games, nil
}

// ListActive returns every game still in progress.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	err := r.db.SelectContext(ctx, &games, r.db.Rebind(
		`SELECT `+gameColumns+` FROM games WHERE status = ? ORDER BY created_at`), model.GameActive)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	return games, nil
}

// UpdateTurn records the round a game has reached.
func (r *GameRepo) UpdateTurn(ctx context.Context, gameID string, turn int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE games SET turn = ? WHERE id = ?`), turn, gameID)
	if err != nil {
		return fmt.Errorf("update turn: %w", err)
	}
	return nil
}

// SetFinished marks a game finished with the given winner.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE games SET status = ?, winner = ?, finished_at = ? WHERE id = ?`),
		model.GameFinished, winner, time.Now().UTC(), gameID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a game and its history.
func (r *GameRepo) Delete(ctx context.Context, gameID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM combats WHERE game_id = ?`,
		`DELETE FROM turns WHERE game_id = ?`,
		`DELETE FROM games WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), gameID); err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
	}
	return tx.Commit()
}
