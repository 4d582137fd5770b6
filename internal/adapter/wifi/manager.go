package wifi

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/sirupsen/logrus"
)

const (
	associationTimeout = 20 * time.Second
	associationPoll    = 1 * time.Second
	monitorInterval    = 10 * time.Second
	retryDelay         = 30 * time.Second
)

// Manager is a WiFi association supervisor. It walks the configured
// credential list in priority order until an association succeeds, then
// monitors the link and falls back to the list on loss.
type Manager struct {
	iface      *net.Interface
	networks   []config.WiFiNetwork
	wireless   port.WirelessClient
	networkMgr port.NetworkManager
}

// Ensure Manager implements the Supervisor port
var _ port.Supervisor = (*Manager)(nil)

// NewManager creates a new WiFi association supervisor for the given
// wireless interface and credential list.
func NewManager(wifiConfig *config.WiFiConfig, wireless port.WirelessClient, networkMgr port.NetworkManager) (*Manager, error) {
	if wifiConfig == nil || len(wifiConfig.Networks) == 0 {
		return nil, fmt.Errorf("wifi configuration has no networks")
	}

	iface, err := net.InterfaceByName(wifiConfig.Interface)
	if err != nil {
		return nil, fmt.Errorf("interface not found: %w", err)
	}

	return &Manager{
		iface:      iface,
		networks:   wifiConfig.Networks,
		wireless:   wireless,
		networkMgr: networkMgr,
	}, nil
}

// Name returns the name of the wireless interface managed by this supervisor.
func (m *Manager) Name() string {
	return m.iface.Name
}

func (m *Manager) getLogger() *logrus.Entry {
	return logging.WithComponentAndInterface("wifi", m.iface.Name)
}

// Run associates with the highest-priority reachable network and keeps the
// association alive until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	logger := m.getLogger().WithField("networks", len(m.networks))
	logger.Info("Starting WiFi manager")

	if err := m.bringLinkUp(); err != nil {
		logger.WithError(err).Warn("Failed to bring wireless link up")
	}

	for {
		ssid, err := m.associate(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("WiFi manager stopped due to context cancellation")
				return ctx.Err()
			}
			logger.WithError(err).Errorf("All networks failed, retrying in %s", retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		logger.WithField("ssid", ssid).Info("Associated")

		if err := m.monitor(ctx, ssid); err != nil {
			if ctx.Err() != nil {
				logger.Info("WiFi manager stopped due to context cancellation")
				return ctx.Err()
			}
			logger.WithError(err).Warn("Association lost, reconnecting")
		}
	}
}

// associate tries each configured credential in priority order and returns
// the SSID of the first successful association.
func (m *Manager) associate(ctx context.Context) (string, error) {
	logger := m.getLogger()

	for i, network := range m.networks {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		attemptLogger := logger.WithFields(logrus.Fields{
			"ssid":     network.SSID,
			"priority": i + 1,
		})
		attemptLogger.Info("Attempting association")

		if err := m.wireless.Connect(ctx, m.iface.Name, network.SSID, network.PSK); err != nil {
			attemptLogger.WithError(err).Warn("Failed to start association")
			continue
		}

		if err := m.waitForAssociation(ctx, network.SSID); err != nil {
			attemptLogger.WithError(err).Warn("Association did not complete")
			if err := m.wireless.Disconnect(ctx, m.iface.Name); err != nil {
				attemptLogger.WithError(err).Debug("Failed to reset supplicant state")
			}
			continue
		}

		return network.SSID, nil
	}

	return "", fmt.Errorf("no configured network could be joined")
}

// waitForAssociation polls the supplicant until the interface reports an
// association with the expected SSID or the timeout elapses.
func (m *Manager) waitForAssociation(ctx context.Context, ssid string) error {
	deadline := time.Now().Add(associationTimeout)

	for {
		status, err := m.wireless.Status(ctx, m.iface.Name)
		if err != nil {
			return fmt.Errorf("failed to query association status: %w", err)
		}
		if status.Associated && status.SSID == ssid {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("association with %s timed out after %s", ssid, associationTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(associationPoll):
		}
	}
}

// monitor watches the association and returns when it is lost.
func (m *Manager) monitor(ctx context.Context, ssid string) error {
	logger := m.getLogger().WithField("ssid", ssid)
	logger.Debug("Starting association monitoring")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, err := m.wireless.Status(ctx, m.iface.Name)
		if err != nil {
			return fmt.Errorf("failed to query association status: %w", err)
		}
		if !status.Associated {
			return fmt.Errorf("association with %s lost", ssid)
		}
		if status.SSID != ssid {
			logger.WithField("current_ssid", status.SSID).Debug("Roamed to a different network")
			return fmt.Errorf("interface roamed from %s to %s", ssid, status.SSID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(monitorInterval):
		}
	}
}

func (m *Manager) bringLinkUp() error {
	link, err := m.networkMgr.GetLinkByName(m.iface.Name)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}
	if err := m.networkMgr.SetLinkUp(link); err != nil {
		return fmt.Errorf("failed to set link up: %w", err)
	}
	return nil
}
