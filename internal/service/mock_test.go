package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/freeeve/hexfront/internal/model"
)

type mockGameRepo struct {
	mu    sync.Mutex
	games map[string]*model.Game
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{games: make(map[string]*model.Game)}
}

func (m *mockGameRepo) Create(_ context.Context, name, creatorID, scenario, difficulty, movementMode string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Game{
		ID:           fmt.Sprintf("game-%d", len(m.games)+1),
		Name:         name,
		CreatorID:    creatorID,
		Scenario:     scenario,
		Difficulty:   difficulty,
		MovementMode: movementMode,
		Status:       model.GameActive,
		Turn:         1,
		CreatedAt:    time.Now(),
	}
	m.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGameRepo) ListByUser(_ context.Context, userID string) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Game
	for _, g := range m.games {
		if g.CreatorID == userID {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockGameRepo) ListActive(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Game
	for _, g := range m.games {
		if g.Status == model.GameActive {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockGameRepo) UpdateTurn(_ context.Context, gameID string, turn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		g.Turn = turn
	}
	return nil
}

func (m *mockGameRepo) SetFinished(_ context.Context, gameID, winner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		now := time.Now()
		g.Status = model.GameFinished
		g.Winner = winner
		g.FinishedAt = &now
	}
	return nil
}

func (m *mockGameRepo) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}

func (m *mockGameRepo) get(id string) model.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.games[id]
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	turns   []model.TurnRecord
	combats []model.CombatRecord
}

func (m *mockHistoryRepo) RecordTurn(_ context.Context, rec model.TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, rec)
	return nil
}

func (m *mockHistoryRepo) RecordCombat(_ context.Context, rec model.CombatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combats = append(m.combats, rec)
	return nil
}

func (m *mockHistoryRepo) ListTurns(_ context.Context, gameID string) ([]model.TurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TurnRecord
	for _, r := range m.turns {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) ListCombats(_ context.Context, gameID string) ([]model.CombatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CombatRecord
	for _, r := range m.combats {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockCache struct {
	mu        sync.Mutex
	snapshots map[string]json.RawMessage
	timers    map[string]time.Time
}

func newMockCache() *mockCache {
	return &mockCache{
		snapshots: make(map[string]json.RawMessage),
		timers:    make(map[string]time.Time),
	}
}

func (m *mockCache) SetSnapshot(_ context.Context, gameID string, snapshot json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[gameID] = snapshot
	return nil
}

func (m *mockCache) GetSnapshot(_ context.Context, gameID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[gameID], nil
}

func (m *mockCache) SetTimer(_ context.Context, gameID string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[gameID] = deadline
	return nil
}

func (m *mockCache) ClearTimer(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, gameID)
	return nil
}

func (m *mockCache) DeleteGameData(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, gameID)
	delete(m.timers, gameID)
	return nil
}

func (m *mockCache) snapshot(gameID string) json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[gameID]
}

func (m *mockCache) timer(gameID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.timers[gameID]
	return d, ok
}

type broadcastEvent struct {
	gameID    string
	eventType string
	data      any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (m *mockBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, broadcastEvent{gameID, eventType, data})
}

func (m *mockBroadcaster) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}
