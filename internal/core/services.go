package core

import (
	"time"

	"github.com/rs/zerolog"
)

type Services struct {
	Identity  *IdentityService
	Region    *RegionService
	Server    *ServerService
	Session   *SessionService
	Allocator *AddressAllocator
}

// Options carries the per-deployment settings injected into the services.
type Options struct {
	RegionCode        string
	SessionLifetime   time.Duration
	AddressPrefix     string
	AddressRangeStart int
	AddressRangeEnd   int
	WGListenPort      int
	Bootstrap         BootstrapParams
}

func NewServices(db DB, agentClient AgentClient, logger zerolog.Logger, opts Options) *Services {
	allocator := NewAddressAllocator(db, opts.AddressPrefix, opts.AddressRangeStart, opts.AddressRangeEnd)

	return &Services{
		Identity:  NewIdentityService(db),
		Region:    NewRegionService(db, opts.RegionCode),
		Server:    NewServerService(db, opts.Bootstrap),
		Session:   NewSessionService(db, agentClient, allocator, logger, opts.SessionLifetime, opts.WGListenPort),
		Allocator: allocator,
	}
}
