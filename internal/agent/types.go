package agent

// Keypair is the response of a keypair generation request. The private key
// is returned to the caller exactly once and never persisted by the agent.
type Keypair struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// AddPeerRequest registers a public key for a single tunnel-internal address.
type AddPeerRequest struct {
	PeerPublicKey string `json:"peerPublicKey" validate:"required"`
	PeerIP        string `json:"peerIp" validate:"required,ipv4"`
}

// RemovePeerRequest deregisters a public key. Removing an unknown key is a
// successful no-op.
type RemovePeerRequest struct {
	PeerPublicKey string `json:"peerPublicKey" validate:"required"`
}
