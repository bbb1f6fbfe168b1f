package model

import "time"

// Peer is one issued WireGuard peer binding: keypair plus tunnel-internal
// address on a specific server. The private key is stored so the client
// config can be rebuilt, but is never serialized.
type Peer struct {
	ID         int64     `json:"id" db:"id"`
	ServerID   int64     `json:"serverId" db:"server_id"`
	IdentityID int64     `json:"identityId" db:"identity_id"`
	DeviceID   int64     `json:"deviceId" db:"device_id"`
	PrivateKey string    `json:"-" db:"private_key"`
	PublicKey  string    `json:"publicKey" db:"public_key"`
	Address    string    `json:"address" db:"address"`
	CreatedAt  time.Time `json:"-" db:"created_at"`
}
