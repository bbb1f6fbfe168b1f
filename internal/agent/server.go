package agent

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/vpn/internal/signing"
)

// Server exposes the signed control protocol of one termination server:
// keypair generation, peer registration and peer removal, each executed
// against the local WireGuard interface.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	secret string
	wg     *WireGuardManager
}

// NewServer creates the agent HTTP server. secret is the shared signing
// secret distributed at bootstrap.
func NewServer(logger zerolog.Logger, secret string, wg *WireGuardManager) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With().Str("component", "agent-server").Logger(),
		secret: secret,
		wg:     wg,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.verifySignature)
		r.Get("/keys/new", s.handleNewKeys)
		r.Post("/peers/add", s.handleAddPeer)
		r.Post("/peers/remove", s.handleRemovePeer)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// verifySignature authenticates the request body against the shared secret.
// A request that fails verification is rejected before any command runs.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !signing.Verify(body, r.Header.Get(signing.Header), s.secret) {
			s.logger.Warn().Str("path", r.URL.Path).Msg("rejected request with bad signature")
			s.writeError(w, http.StatusUnauthorized, "bad signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNewKeys(w http.ResponseWriter, _ *http.Request) {
	keys, err := s.wg.GenerateKeypair()
	if err != nil {
		s.logger.Error().Err(err).Msg("key generation failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	var req AddPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PeerPublicKey == "" || req.PeerIP == "" {
		s.writeError(w, http.StatusBadRequest, "peerPublicKey and peerIp are required")
		return
	}

	if err := s.wg.AddPeer(r.Context(), req.PeerPublicKey, req.PeerIP); err != nil {
		s.logger.Error().Err(err).Msg("add peer failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRemovePeer(w http.ResponseWriter, r *http.Request) {
	var req RemovePeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PeerPublicKey == "" {
		s.writeError(w, http.StatusBadRequest, "peerPublicKey is required")
		return
	}

	if err := s.wg.RemovePeer(r.Context(), req.PeerPublicKey); err != nil {
		s.logger.Error().Err(err).Msg("remove peer failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
