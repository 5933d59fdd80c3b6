package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/hexfront/internal/auth"
	"github.com/freeeve/hexfront/internal/model"
	"github.com/freeeve/hexfront/internal/service"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

// GameHandler handles game and unit endpoints.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

type createGameRequest struct {
	Name       string `json:"name"`
	Scenario   string `json:"scenario,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Movement   string `json:"movement,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
}

type orderRequest struct {
	From hexgame.Position `json:"from"`
	To   hexgame.Position `json:"to"`
}

type unitCommandRequest struct {
	Command string           `json:"command"`
	Pos     hexgame.Position `json:"pos"`
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Movement != "" && req.Movement != "adjacent" && req.Movement != "reachable" {
		writeError(w, http.StatusBadRequest, "movement must be adjacent or reachable")
		return
	}

	game, err := h.gameSvc.CreateGame(r.Context(), service.CreateParams{
		Name:       req.Name,
		CreatorID:  userID,
		Scenario:   req.Scenario,
		Difficulty: req.Difficulty,
		Movement:   req.Movement,
		Seed:       req.Seed,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	games, err := h.gameSvc.ListGames(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if games == nil {
		games = []model.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.gameSvc.State(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if view.Game.CreatorID != auth.UserIDFromContext(r.Context()) {
		writeServiceError(w, service.ErrNotInGame)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.gameSvc.DeleteGame(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/games/{id}/history
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	game, err := h.gameSvc.GetGame(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if game.CreatorID != auth.UserIDFromContext(r.Context()) {
		writeServiceError(w, service.ErrNotInGame)
		return
	}
	turns, combats, err := h.gameSvc.History(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if turns == nil {
		turns = []model.TurnRecord{}
	}
	if combats == nil {
		combats = []model.CombatRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns, "combats": combats})
}

// Candidates handles GET /api/v1/games/{id}/units/{x}/{y}/candidates
func (h *GameHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	pos, ok := pathPosition(w, r)
	if !ok {
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	cands, err := h.gameSvc.Candidates(r.PathValue("id"), userID, pos)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cands == nil {
		cands = []hexgame.Position{}
	}
	writeJSON(w, http.StatusOK, cands)
}

// Move handles POST /api/v1/games/{id}/move
func (h *GameHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	gameID := r.PathValue("id")
	if err := h.gameSvc.Move(r.Context(), gameID, userID, req.From, req.To); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": req.From, "to": req.To})
}

// Attack handles POST /api/v1/games/{id}/attack
func (h *GameHandler) Attack(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	result, err := h.gameSvc.Attack(r.Context(), r.PathValue("id"), userID, req.From, req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Preview handles POST /api/v1/games/{id}/preview
func (h *GameHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	forecast, err := h.gameSvc.Preview(r.PathValue("id"), userID, req.From, req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

// UnitCommand handles POST /api/v1/games/{id}/units/command
func (h *GameHandler) UnitCommand(w http.ResponseWriter, r *http.Request) {
	var req unitCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.gameSvc.UnitCommand(r.Context(), r.PathValue("id"), userID, req.Command, req.Pos); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"command": req.Command, "pos": req.Pos})
}

// EndTurn handles POST /api/v1/games/{id}/end-turn. The AI turn runs in the
// background; clients follow it over the WebSocket.
func (h *GameHandler) EndTurn(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.gameSvc.EndTurn(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"state": hexgame.StateAIPending.String()})
}

func pathPosition(w http.ResponseWriter, r *http.Request) (hexgame.Position, bool) {
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "invalid position")
		return hexgame.Position{}, false
	}
	return hexgame.Position{X: x, Y: y}, true
}
