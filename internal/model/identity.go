package model

import "time"

// Identity is the stable internal principal behind an external account id.
type Identity struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"accountId" db:"account_id"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Device is one of an identity's devices, keyed by the caller-supplied
// device id.
type Device struct {
	IdentityID int64     `json:"identityId" db:"identity_id"`
	DeviceID   int64     `json:"deviceId" db:"device_id"`
	LastSeen   time.Time `json:"lastSeen" db:"last_seen"`
}
