package model

import "time"

// Server is a tunnel termination server. The agent secret never leaves the
// control plane.
type Server struct {
	ID            int64     `json:"id" db:"id"`
	RegionID      int64     `json:"regionId" db:"region_id"`
	PublicIP      string    `json:"publicIp" db:"public_ip"`
	PublicKey     string    `json:"publicKey" db:"public_key"`
	WGInterface   string    `json:"wgInterface" db:"wg_interface"`
	AgentBaseURL  string    `json:"agentBaseUrl" db:"agent_base_url"`
	AgentSecret   string    `json:"-" db:"agent_secret"`
	NextAddrOctet int       `json:"-" db:"next_addr_octet"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedAt     time.Time `json:"-" db:"created_at"`
	UpdatedAt     time.Time `json:"-" db:"updated_at"`
}
