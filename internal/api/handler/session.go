package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	mw "github.com/edvin/vpn/internal/api/middleware"
	"github.com/edvin/vpn/internal/api/request"
	"github.com/edvin/vpn/internal/api/response"
	"github.com/edvin/vpn/internal/core"
)

// SessionProvisioner starts and stops tunnel sessions for a resolved
// identity. Implemented by core.SessionService.
type SessionProvisioner interface {
	Start(ctx context.Context, identityID, deviceID int64) (*core.StartResult, error)
	Stop(ctx context.Context, identityID, deviceID, sessionID int64) error
}

type Session struct {
	svc SessionProvisioner
}

func NewSession(svc SessionProvisioner) *Session {
	return &Session{svc: svc}
}

func (h *Session) Start(w http.ResponseWriter, r *http.Request) {
	identity := mw.GetIdentity(r.Context())

	result, err := h.svc.Start(r.Context(), identity.IdentityID, identity.DeviceID)
	if err != nil {
		if errors.Is(err, core.ErrNoActiveServer) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("session start failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"sessionId":       result.SessionID,
		"expiresAt":       result.ExpiresAt.Format(time.RFC3339),
		"wireguardConfig": result.Config,
	})
}

func (h *Session) Stop(w http.ResponseWriter, r *http.Request) {
	identity := mw.GetIdentity(r.Context())

	var req struct {
		SessionID int64 `json:"sessionId" validate:"required,gt=0"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Stop(r.Context(), identity.IdentityID, identity.DeviceID, req.SessionID); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("session_id", req.SessionID).Msg("session stop failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
