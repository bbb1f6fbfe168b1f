package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/vpn/internal/agent"
	"github.com/edvin/vpn/internal/model"
)

// Client config defaults, fixed for every issued tunnel.
const (
	dnsServers       = "1.1.1.1, 8.8.8.8"
	allowedIPs       = "0.0.0.0/0, ::/0"
	keepaliveSeconds = 25
)

// AgentClient is the signed control channel to a termination server's agent.
// Implemented by agent.Client.
type AgentClient interface {
	GenerateKeypair(ctx context.Context, baseURL, secret string) (agent.Keypair, error)
	AddPeer(ctx context.Context, baseURL, secret, publicKey, address string) error
	RemovePeer(ctx context.Context, baseURL, secret, publicKey string) error
}

// StartResult is returned to the client after a successful session start.
type StartResult struct {
	SessionID int64
	ExpiresAt time.Time
	Config    string
}

// SessionService coordinates session provisioning and teardown: server
// selection, keypair and address acquisition, agent peer registration,
// durable peer/session records, and the reverse path on stop.
type SessionService struct {
	db        DB
	agent     AgentClient
	allocator *AddressAllocator
	logger    zerolog.Logger
	lifetime  time.Duration
	wgPort    int
}

func NewSessionService(db DB, agentClient AgentClient, allocator *AddressAllocator, logger zerolog.Logger, lifetime time.Duration, wgPort int) *SessionService {
	return &SessionService{
		db:        db,
		agent:     agentClient,
		allocator: allocator,
		logger:    logger.With().Str("component", "sessions").Logger(),
		lifetime:  lifetime,
		wgPort:    wgPort,
	}
}

// Start provisions a tunnel session for the identity/device. Steps that fail
// before any durable write simply abort; a failure after the agent has
// registered the peer triggers a best-effort compensating removal so the
// agent does not accumulate orphaned registrations.
func (s *SessionService) Start(ctx context.Context, identityID, deviceID int64) (*StartResult, error) {
	var srv model.Server
	err := s.db.QueryRow(ctx,
		`SELECT id, public_ip, public_key, agent_base_url, agent_secret
		 FROM servers WHERE is_active ORDER BY id LIMIT 1`,
	).Scan(&srv.ID, &srv.PublicIP, &srv.PublicKey, &srv.AgentBaseURL, &srv.AgentSecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveServer
	}
	if err != nil {
		return nil, fmt.Errorf("select active server: %w", err)
	}

	keys, err := s.agent.GenerateKeypair(ctx, srv.AgentBaseURL, srv.AgentSecret)
	if err != nil {
		return nil, fmt.Errorf("generate keypair on server %d: %w", srv.ID, err)
	}

	address, err := s.allocator.Allocate(ctx, srv.ID)
	if err != nil {
		return nil, fmt.Errorf("allocate address on server %d: %w", srv.ID, err)
	}

	if err := s.agent.AddPeer(ctx, srv.AgentBaseURL, srv.AgentSecret, keys.PublicKey, address); err != nil {
		// The allocated address is abandoned; the wrap bounds the leak.
		return nil, fmt.Errorf("register peer on server %d: %w", srv.ID, err)
	}

	var peerID int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO peers (server_id, identity_id, device_id, private_key, public_key, address)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		srv.ID, identityID, deviceID, keys.PrivateKey, keys.PublicKey, address,
	).Scan(&peerID)
	if err != nil {
		s.compensatePeer(ctx, srv, keys.PublicKey)
		return nil, fmt.Errorf("insert peer: %w", err)
	}

	start := time.Now()
	expires := start.Add(s.lifetime)

	var sessionID int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO sessions (identity_id, device_id, server_id, peer_id, started_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		identityID, deviceID, srv.ID, peerID, start, expires,
	).Scan(&sessionID)
	if err != nil {
		s.compensatePeer(ctx, srv, keys.PublicKey)
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.logger.Info().
		Int64("session_id", sessionID).
		Int64("identity_id", identityID).
		Int64("server_id", srv.ID).
		Str("address", address).
		Msg("session started")

	return &StartResult{
		SessionID: sessionID,
		ExpiresAt: expires,
		Config:    s.buildClientConfig(keys.PrivateKey, address, &srv),
	}, nil
}

// Stop closes the session and deregisters its peer. Unknown or already-ended
// sessions are a successful no-op. Agent-side removal failure does not block
// closure; the session is ended from the user's perspective regardless.
func (s *SessionService) Stop(ctx context.Context, identityID, deviceID, sessionID int64) error {
	var serverID int64
	var peerPublicKey string
	err := s.db.QueryRow(ctx,
		`SELECT s.server_id, p.public_key
		 FROM sessions s JOIN peers p ON p.id = s.peer_id
		 WHERE s.id = $1 AND s.identity_id = $2 AND s.device_id = $3 AND s.ended_at IS NULL`,
		sessionID, identityID, deviceID,
	).Scan(&serverID, &peerPublicKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up session %d: %w", sessionID, err)
	}

	var baseURL, secret string
	err = s.db.QueryRow(ctx,
		`SELECT agent_base_url, agent_secret FROM servers WHERE id = $1`, serverID,
	).Scan(&baseURL, &secret)
	if err != nil {
		return fmt.Errorf("look up server %d: %w", serverID, err)
	}

	if err := s.agent.RemovePeer(ctx, baseURL, secret, peerPublicKey); err != nil {
		s.logger.Warn().Err(err).
			Int64("session_id", sessionID).
			Int64("server_id", serverID).
			Msg("agent peer removal failed, closing session anyway")
	}

	_, err = s.db.Exec(ctx,
		`UPDATE sessions SET ended_at = now(), end_reason = $1 WHERE id = $2`,
		model.EndReasonUserStop, sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session %d: %w", sessionID, err)
	}

	s.logger.Info().Int64("session_id", sessionID).Msg("session stopped")
	return nil
}

// compensatePeer removes an agent-side registration whose durable records
// could not be written. Best effort: a failure here leaves an orphaned
// registration on the agent and is only logged.
func (s *SessionService) compensatePeer(ctx context.Context, srv model.Server, publicKey string) {
	if err := s.agent.RemovePeer(ctx, srv.AgentBaseURL, srv.AgentSecret, publicKey); err != nil {
		s.logger.Error().Err(err).
			Int64("server_id", srv.ID).
			Msg("compensating peer removal failed, agent registration orphaned")
	}
}

func (s *SessionService) buildClientConfig(privateKey, address string, srv *model.Server) string {
	return fmt.Sprintf(`[Interface]
PrivateKey = %s
Address = %s/32
DNS = %s

[Peer]
PublicKey = %s
AllowedIPs = %s
Endpoint = %s:%d
PersistentKeepalive = %d`,
		privateKey, address, dnsServers,
		srv.PublicKey, allowedIPs, srv.PublicIP, s.wgPort, keepaliveSeconds)
}
