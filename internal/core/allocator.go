package core

import (
	"context"
	"fmt"
)

// AddressAllocator hands out tunnel-internal addresses from a per-server
// cursor. The read-modify-write of the cursor runs under a row-level
// exclusive lock, so concurrent allocations against the same server never
// receive the same address. The allocator does not track released addresses;
// after a full wrap an address still bound to an un-stopped peer can be
// reissued.
type AddressAllocator struct {
	db     DB
	prefix string
	lo     int
	hi     int
}

// NewAddressAllocator creates an allocator issuing addresses
// <prefix>.<octet> with the octet cycling through [lo, hi).
func NewAddressAllocator(db DB, prefix string, lo, hi int) *AddressAllocator {
	return &AddressAllocator{db: db, prefix: prefix, lo: lo, hi: hi}
}

// Allocate returns the next free address for the server and advances the
// stored cursor. The transaction spans only the cursor update; callers make
// network calls after the lock is released.
func (a *AddressAllocator) Allocate(ctx context.Context, serverID int64) (string, error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin allocation for server %d: %w", serverID, err)
	}
	defer tx.Rollback(ctx)

	var octet int
	err = tx.QueryRow(ctx,
		`SELECT next_addr_octet FROM servers WHERE id = $1 FOR UPDATE`, serverID,
	).Scan(&octet)
	if err != nil {
		return "", fmt.Errorf("lock address cursor for server %d: %w", serverID, err)
	}

	if octet >= a.hi {
		octet = a.lo
	}
	address := fmt.Sprintf("%s.%d", a.prefix, octet)

	_, err = tx.Exec(ctx,
		`UPDATE servers SET next_addr_octet = $1, updated_at = now() WHERE id = $2`,
		octet+1, serverID,
	)
	if err != nil {
		return "", fmt.Errorf("advance address cursor for server %d: %w", serverID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit allocation for server %d: %w", serverID, err)
	}

	return address, nil
}
