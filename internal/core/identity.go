package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type IdentityService struct {
	db DB
}

func NewIdentityService(db DB) *IdentityService {
	return &IdentityService{db: db}
}

// Resolve maps a presented (account id, device id) pair to the stable
// internal identity id, registering unseen accounts and devices on the way.
// Safe under concurrent first sightings of the same account: losing the
// insert race falls back to re-fetching the winner's row.
func (s *IdentityService) Resolve(ctx context.Context, accountID, deviceID int64) (int64, error) {
	var identityID int64
	err := s.db.QueryRow(ctx,
		`SELECT id FROM identities WHERE account_id = $1`, accountID,
	).Scan(&identityID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.db.QueryRow(ctx,
			`INSERT INTO identities (account_id) VALUES ($1) RETURNING id`, accountID,
		).Scan(&identityID)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = s.db.QueryRow(ctx,
				`SELECT id FROM identities WHERE account_id = $1`, accountID,
			).Scan(&identityID)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("resolve identity for account %d: %w", accountID, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO devices (identity_id, device_id, last_seen)
		 VALUES ($1, $2, now())
		 ON CONFLICT (identity_id, device_id) DO UPDATE SET last_seen = now()`,
		identityID, deviceID,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert device %d for identity %d: %w", deviceID, identityID, err)
	}

	return identityID, nil
}
