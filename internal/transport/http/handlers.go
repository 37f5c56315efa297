package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/edwardhuahan/drawphone/internal/app"
)

// Handlers holds the HTTP API handlers
type Handlers struct {
	registry   *app.Registry
	logger     *slog.Logger
	adminToken string
}

// NewHandlers creates HTTP handlers backed by the registry
func NewHandlers(registry *app.Registry, logger *slog.Logger, adminToken string) *Handlers {
	return &Handlers{
		registry:   registry,
		logger:     logger,
		adminToken: adminToken,
	}
}

// HealthCheck handles GET /api/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Stats handles GET /api/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"games":   h.registry.Count(),
		"players": h.registry.TotalPlayerCount(),
	})
}

// GameInfo handles GET /api/games/{code}. It reports whether the code
// exists and whether a newcomer would join directly or queue as a
// replacement, without exposing the round state.
func (h *Handlers) GameInfo(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	session, err := h.registry.Find(code)
	if err != nil {
		respondError(w, http.StatusNotFound, "game not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"code":       session.Code(),
		"players":    session.PlayerCount(),
		"inProgress": session.InProgress(),
	})
}

// GameQR handles GET /api/games/{code}/qr, serving a QR code PNG that
// encodes the join URL for the game.
func (h *Handlers) GameQR(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	session, err := h.registry.Find(code)
	if err != nil {
		respondError(w, http.StatusNotFound, "game not found")
		return
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	joinURL := fmt.Sprintf("%s://%s/?code=%s", scheme, r.Host, session.Code())

	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("failed to generate qr code", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate qr code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Lock handles POST /api/admin/lock. It puts the server into pending-
// restart mode: new games and new rounds are refused with an ETA while
// running rounds finish undisturbed.
func (h *Handlers) Lock(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" || r.Header.Get("Authorization") != "Bearer "+h.adminToken {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		MinutesUntilRestart int `json:"minutesUntilRestart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.registry.Lock(body.MinutesUntilRestart)
	h.logger.Info("server locked", "minutesUntilRestart", body.MinutesUntilRestart)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": app.LockedMessage(body.MinutesUntilRestart),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
