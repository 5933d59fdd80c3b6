package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/hexfront/internal/service"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps service and rules errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotInGame), errors.Is(err, service.ErrNotYourUnit):
		return http.StatusForbidden
	case errors.Is(err, hexgame.ErrLockHeld),
		errors.Is(err, hexgame.ErrNotPlayerTurn),
		errors.Is(err, hexgame.ErrGameOver),
		errors.Is(err, service.ErrGameNotActive):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownScenario),
		errors.Is(err, service.ErrUnknownDifficulty),
		errors.Is(err, service.ErrUnknownCommand),
		errors.Is(err, hexgame.ErrNoUnit),
		errors.Is(err, hexgame.ErrInvalidMove),
		errors.Is(err, hexgame.ErrNoMovesLeft),
		errors.Is(err, hexgame.ErrTileOccupied),
		errors.Is(err, hexgame.ErrOutOfBounds),
		errors.Is(err, hexgame.ErrSameCivilization),
		errors.Is(err, hexgame.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with the status it maps to. Unmapped errors
// are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
