package model

import "time"

// EndReasonUserStop marks a session closed by an explicit stop request.
const EndReasonUserStop = "user_stop"

// Session is one tunnel session. A session is open while EndedAt is null;
// ExpiresAt is advisory and enforced by clients, not the control plane.
type Session struct {
	ID         int64      `json:"id" db:"id"`
	IdentityID int64      `json:"identityId" db:"identity_id"`
	DeviceID   int64      `json:"deviceId" db:"device_id"`
	ServerID   int64      `json:"serverId" db:"server_id"`
	PeerID     int64      `json:"peerId" db:"peer_id"`
	StartedAt  time.Time  `json:"startedAt" db:"started_at"`
	ExpiresAt  time.Time  `json:"expiresAt" db:"expires_at"`
	EndedAt    *time.Time `json:"endedAt,omitempty" db:"ended_at"`
	EndReason  *string    `json:"endReason,omitempty" db:"end_reason"`
}
