package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/hexfront/internal/model"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameRepository defines game row operations.
type GameRepository interface {
	Create(ctx context.Context, name, creatorID, scenario, difficulty, movementMode string) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListByUser(ctx context.Context, userID string) ([]model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	UpdateTurn(ctx context.Context, gameID string, turn int) error
	SetFinished(ctx context.Context, gameID, winner string) error
	Delete(ctx context.Context, gameID string) error
}

// HistoryRepository is the append-only log of turns and combats.
type HistoryRepository interface {
	RecordTurn(ctx context.Context, rec model.TurnRecord) error
	RecordCombat(ctx context.Context, rec model.CombatRecord) error
	ListTurns(ctx context.Context, gameID string) ([]model.TurnRecord, error)
	ListCombats(ctx context.Context, gameID string) ([]model.CombatRecord, error)
}

// GameCache holds live session data (Redis): the placement snapshot used to
// rebuild a board after a restart and the player's turn deadline.
type GameCache interface {
	SetSnapshot(ctx context.Context, gameID string, snapshot json.RawMessage) error
	GetSnapshot(ctx context.Context, gameID string) (json.RawMessage, error)
	SetTimer(ctx context.Context, gameID string, deadline time.Time) error
	ClearTimer(ctx context.Context, gameID string) error
	DeleteGameData(ctx context.Context, gameID string) error
}
