package agent

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// commandRunner executes an external command and returns its combined output.
// Swapped out in tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// WireGuardManager applies peer configuration to the local WireGuard
// interface on a termination server.
type WireGuardManager struct {
	logger     zerolog.Logger
	iface      string
	listenPort int
	keyFile    string
	run        commandRunner
}

// NewWireGuardManager creates a new WireGuardManager for the given interface.
// keyFile is the path of the server's private key, used when the interface
// has to be created.
func NewWireGuardManager(logger zerolog.Logger, iface string, listenPort int, keyFile string) *WireGuardManager {
	return &WireGuardManager{
		logger:     logger.With().Str("component", "wireguard").Logger(),
		iface:      iface,
		listenPort: listenPort,
		keyFile:    keyFile,
		run:        execRunner,
	}
}

// GenerateKeypair creates a fresh Curve25519 keypair. The private key is
// handed to the caller and intentionally kept out of logs.
func (m *WireGuardManager) GenerateKeypair() (Keypair, error) {
	key, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate private key: %w", err)
	}
	return Keypair{
		PrivateKey: key.String(),
		PublicKey:  key.PublicKey().String(),
	}, nil
}

// ensureInterface creates the interface if not present and configures it,
// reading the private key from the key file.
func (m *WireGuardManager) ensureInterface(ctx context.Context) error {
	// Check if the interface already exists.
	if _, err := m.run(ctx, "ip", "link", "show", m.iface); err == nil {
		return nil
	}

	if out, err := m.run(ctx, "ip", "link", "add", m.iface, "type", "wireguard"); err != nil {
		return fmt.Errorf("create %s: %s: %w", m.iface, string(out), err)
	}

	if out, err := m.run(ctx, "wg", "set", m.iface,
		"listen-port", fmt.Sprintf("%d", m.listenPort),
		"private-key", m.keyFile,
	); err != nil {
		return fmt.Errorf("wg set %s: %s: %w", m.iface, string(out), err)
	}

	if out, err := m.run(ctx, "ip", "link", "set", m.iface, "up"); err != nil {
		return fmt.Errorf("ip link set %s up: %s: %w", m.iface, string(out), err)
	}

	m.logger.Info().Int("listen_port", m.listenPort).Msg("WireGuard interface created")
	return nil
}

// AddPeer registers publicKey as a peer restricted to address (/32). The
// allowed-ips list replaces any prior binding for the key, so re-adding the
// same key is idempotent and changing its address is last-write-wins.
func (m *WireGuardManager) AddPeer(ctx context.Context, publicKey, address string) error {
	if err := m.ensureInterface(ctx); err != nil {
		return fmt.Errorf("ensure wg interface: %w", err)
	}

	if out, err := m.run(ctx, "wg", "set", m.iface,
		"peer", publicKey,
		"allowed-ips", address+"/32",
	); err != nil {
		return fmt.Errorf("wg set peer %s: %s: %w", publicKey, string(out), err)
	}

	m.logger.Info().Str("public_key", truncateKey(publicKey)).Str("address", address).Msg("WireGuard peer added")
	return nil
}

// RemovePeer removes the registration for publicKey if present. Removing an
// unknown peer succeeds.
func (m *WireGuardManager) RemovePeer(ctx context.Context, publicKey string) error {
	if err := m.ensureInterface(ctx); err != nil {
		return fmt.Errorf("ensure wg interface: %w", err)
	}

	if out, err := m.run(ctx, "wg", "set", m.iface,
		"peer", publicKey, "remove",
	); err != nil {
		if strings.Contains(strings.ToLower(string(out)), "no such peer") {
			return nil
		}
		return fmt.Errorf("wg remove peer %s: %s: %w", publicKey, string(out), err)
	}

	m.logger.Info().Str("public_key", truncateKey(publicKey)).Msg("WireGuard peer removed")
	return nil
}

func truncateKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
