package handler

import (
	"net/http"

	"github.com/freeeve/hexfront/internal/auth"
	"github.com/freeeve/hexfront/internal/middleware"
)

// Routes bundles the handlers served by the API.
type Routes struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Games       *GameHandler
	WS          *WSHandler
	JWT         *auth.JWTManager
	CORSOrigins string
}

// NewRouter builds the HTTP handler with every route and the global middleware.
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", rt.Auth.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", rt.Auth.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", rt.Auth.RefreshToken)
	mux.HandleFunc("GET /auth/dev", rt.Auth.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", rt.Users.GetMe)
	api.HandleFunc("PATCH /users/me", rt.Users.UpdateMe)
	api.HandleFunc("GET /users/{id}", rt.Users.GetUser)
	api.HandleFunc("POST /games", rt.Games.CreateGame)
	api.HandleFunc("GET /games", rt.Games.ListGames)
	api.HandleFunc("GET /games/{id}", rt.Games.GetGame)
	api.HandleFunc("DELETE /games/{id}", rt.Games.DeleteGame)
	api.HandleFunc("GET /games/{id}/history", rt.Games.History)
	api.HandleFunc("GET /games/{id}/units/{x}/{y}/candidates", rt.Games.Candidates)
	api.HandleFunc("POST /games/{id}/units/command", rt.Games.UnitCommand)
	api.HandleFunc("POST /games/{id}/move", rt.Games.Move)
	api.HandleFunc("POST /games/{id}/attack", rt.Games.Attack)
	api.HandleFunc("POST /games/{id}/preview", rt.Games.Preview)
	api.HandleFunc("POST /games/{id}/end-turn", rt.Games.EndTurn)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", auth.Middleware(rt.JWT)(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", rt.WS.ServeWS)

	origins := rt.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	return middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(origins), middleware.JSON)
}
