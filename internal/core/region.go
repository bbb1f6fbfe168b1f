package core

import (
	"context"
	"fmt"

	"github.com/edvin/vpn/internal/model"
)

type RegionService struct {
	db   DB
	code string
}

// NewRegionService creates a region service scoped to the deployment's
// configured region code.
func NewRegionService(db DB, code string) *RegionService {
	return &RegionService{db: db, code: code}
}

// List returns the configured region.
func (s *RegionService) List(ctx context.Context) ([]model.Region, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, code, name FROM regions WHERE code = $1`, s.code,
	)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var regions []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.ID, &r.Code, &r.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate regions: %w", err)
	}

	return regions, nil
}
