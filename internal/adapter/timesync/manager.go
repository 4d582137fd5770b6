package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/sirupsen/logrus"
)

const retryInterval = 30 * time.Second

// Manager is a time synchronization supervisor. It queries the configured
// NTP server on an interval and logs the clock offset.
type Manager struct {
	server   string
	interval time.Duration
	client   port.NTPClient
}

// Ensure Manager implements the Supervisor port
var _ port.Supervisor = (*Manager)(nil)

// NewManager creates a new time synchronization supervisor.
func NewManager(ntpConfig *config.NTPConfig, client port.NTPClient) (*Manager, error) {
	if ntpConfig == nil || ntpConfig.Server == "" {
		return nil, fmt.Errorf("ntp server is not configured")
	}

	interval := ntpConfig.SyncInterval.Std()
	if interval <= 0 {
		interval = config.DefaultSyncInterval.Std()
	}

	return &Manager{
		server:   ntpConfig.Server,
		interval: interval,
		client:   client,
	}, nil
}

// Name returns the identifier of this supervisor.
func (m *Manager) Name() string {
	return "timesync"
}

func (m *Manager) getLogger() *logrus.Entry {
	return logging.WithComponent("timesync").WithField("server", m.server)
}

// Run synchronizes immediately and then on the configured interval until
// the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	logger := m.getLogger().WithField("sync_interval", m.interval.String())
	logger.Info("Starting time synchronization")

	// Immediate first sync via a short timer
	syncTimer := time.NewTimer(1 * time.Millisecond)
	defer syncTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Time synchronization stopped due to context cancellation")
			return ctx.Err()
		case <-syncTimer.C:
			if err := m.syncOnce(ctx); err != nil {
				logger.WithError(err).Errorf("Time synchronization failed, retrying in %s", retryInterval)
				syncTimer.Reset(retryInterval)
			} else {
				syncTimer.Reset(m.interval)
			}
		}
	}
}

// syncOnce performs a single query against the configured server.
func (m *Manager) syncOnce(ctx context.Context) error {
	logger := m.getLogger()

	resp, err := m.client.Query(ctx, m.server)
	if err != nil {
		return fmt.Errorf("ntp query failed: %w", err)
	}

	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response rejected: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"offset":  resp.ClockOffset.String(),
		"stratum": resp.Stratum,
		"rtt":     resp.RTT.String(),
	}).Info("Clock synchronized")

	return nil
}
