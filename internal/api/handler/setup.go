package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/vpn/internal/api/response"
)

// ServerBootstrapper registers this deployment's termination server.
// Implemented by core.ServerService.
type ServerBootstrapper interface {
	EnsureServer(ctx context.Context) error
}

type Setup struct {
	svc ServerBootstrapper
}

func NewSetup(svc ServerBootstrapper) *Setup {
	return &Setup{svc: svc}
}

// EnsureServer is the idempotent bootstrap endpoint; safe to call repeatedly.
func (h *Setup) EnsureServer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EnsureServer(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("server bootstrap failed")
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
