package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
)

// BootstrapParams holds the registration data for this deployment's
// termination server. Loaded once from process configuration; the public key
// is read from a trusted local file at bootstrap time.
type BootstrapParams struct {
	RegionCode    string
	PublicIP      string
	PublicKeyFile string
	WGInterface   string
	AgentBaseURL  string
	AgentSecret   string
	InitialOctet  int
}

type ServerService struct {
	db        DB
	bootstrap BootstrapParams
}

func NewServerService(db DB, bootstrap BootstrapParams) *ServerService {
	return &ServerService{db: db, bootstrap: bootstrap}
}

// EnsureServer registers the configured termination server under its region,
// creating the row on first run and updating the mutable fields in place on
// re-runs. The address cursor and active flag survive re-runs, so this is
// safe to repeat at any time. One server per region.
func (s *ServerService) EnsureServer(ctx context.Context) error {
	var regionID int64
	err := s.db.QueryRow(ctx,
		`SELECT id FROM regions WHERE code = $1`, s.bootstrap.RegionCode,
	).Scan(&regionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("region %s missing, seed regions first", s.bootstrap.RegionCode)
	}
	if err != nil {
		return fmt.Errorf("look up region %s: %w", s.bootstrap.RegionCode, err)
	}

	keyBytes, err := os.ReadFile(s.bootstrap.PublicKeyFile)
	if err != nil {
		return fmt.Errorf("read server public key: %w", err)
	}
	publicKey := strings.TrimSpace(string(keyBytes))

	var serverID int64
	err = s.db.QueryRow(ctx,
		`SELECT id FROM servers WHERE region_id = $1 LIMIT 1`, regionID,
	).Scan(&serverID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.db.Exec(ctx,
			`INSERT INTO servers (region_id, public_ip, public_key, wg_interface, agent_base_url, agent_secret, next_addr_octet, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)`,
			regionID, s.bootstrap.PublicIP, publicKey, s.bootstrap.WGInterface,
			s.bootstrap.AgentBaseURL, s.bootstrap.AgentSecret, s.bootstrap.InitialOctet,
		)
		if err != nil {
			return fmt.Errorf("register server for region %s: %w", s.bootstrap.RegionCode, err)
		}
	case err != nil:
		return fmt.Errorf("look up server for region %s: %w", s.bootstrap.RegionCode, err)
	default:
		_, err = s.db.Exec(ctx,
			`UPDATE servers SET public_ip = $1, public_key = $2, wg_interface = $3, agent_base_url = $4, agent_secret = $5, updated_at = now()
			 WHERE id = $6`,
			s.bootstrap.PublicIP, publicKey, s.bootstrap.WGInterface,
			s.bootstrap.AgentBaseURL, s.bootstrap.AgentSecret, serverID,
		)
		if err != nil {
			return fmt.Errorf("update server %d: %w", serverID, err)
		}
	}

	return nil
}
