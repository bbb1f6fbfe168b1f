package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	// API server.
	DatabaseURL       string
	HTTPListenAddr    string
	MetricsListenAddr string

	// Region served by this deployment. One active region per deployment.
	RegionCode string

	// Session lifetime in minutes; the stored expiry is start + lifetime.
	SessionMinutes int

	// Tunnel-internal address range: addresses are <prefix>.<octet> with the
	// octet cycling through [AddressRangeStart, AddressRangeEnd).
	AddressPrefix     string
	AddressRangeStart int
	AddressRangeEnd   int

	// Termination server registration (consumed by the setup bootstrap).
	ServerPublicIP      string
	ServerPublicKeyFile string
	WGInterface         string
	WGListenPort        int
	AgentBaseURL        string
	AgentSecret         string

	// Agent HTTP client: number of retries after the first attempt for calls
	// to the tunnel agent. 0 disables retrying.
	AgentRetryAttempts int

	// Tunnel agent server.
	AgentListenAddr  string
	WGPrivateKeyFile string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:         getEnv("SERVICE_NAME", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		HTTPListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr:   getEnv("METRICS_LISTEN_ADDR", ":9090"),
		RegionCode:          getEnv("REGION_CODE", "sg"),
		AddressPrefix:       getEnv("ADDRESS_PREFIX", "10.7.1"),
		ServerPublicIP:      getEnv("SERVER_PUBLIC_IP", ""),
		ServerPublicKeyFile: getEnv("SERVER_PUBLIC_KEY_FILE", "/etc/wireguard/server_public.key"),
		WGInterface:         getEnv("WG_INTERFACE", "wg0"),
		AgentBaseURL:        getEnv("AGENT_BASE_URL", "http://127.0.0.1:8443"),
		AgentSecret:         getEnv("AGENT_SECRET", ""),
		AgentListenAddr:     getEnv("AGENT_LISTEN_ADDR", ":8443"),
		WGPrivateKeyFile:    getEnv("WG_PRIVATE_KEY_FILE", "/etc/wireguard/server.key"),
	}

	var err error
	if cfg.SessionMinutes, err = getEnvInt("SESSION_MINUTES", 60); err != nil {
		return nil, err
	}
	if cfg.AddressRangeStart, err = getEnvInt("ADDRESS_RANGE_START", 10); err != nil {
		return nil, err
	}
	if cfg.AddressRangeEnd, err = getEnvInt("ADDRESS_RANGE_END", 250); err != nil {
		return nil, err
	}
	if cfg.WGListenPort, err = getEnvInt("WG_LISTEN_PORT", 51820); err != nil {
		return nil, err
	}
	if cfg.AgentRetryAttempts, err = getEnvInt("AGENT_RETRY_ATTEMPTS", 0); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the options required by the given service are set.
func (c *Config) Validate(service string) error {
	switch service {
	case "vpn-api":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.AddressRangeStart >= c.AddressRangeEnd {
			return fmt.Errorf("ADDRESS_RANGE_START (%d) must be below ADDRESS_RANGE_END (%d)",
				c.AddressRangeStart, c.AddressRangeEnd)
		}
		if c.SessionMinutes <= 0 {
			return fmt.Errorf("SESSION_MINUTES must be positive")
		}
	case "tunnel-agent":
		if c.AgentSecret == "" {
			return fmt.Errorf("AGENT_SECRET is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}
