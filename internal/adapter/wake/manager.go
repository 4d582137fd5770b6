package wake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/wol"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/sirupsen/logrus"
)

// Statuses reported back to the command endpoint.
const (
	StatusSent          = "sent"
	StatusAwake         = "awake"
	StatusUnknownTarget = "unknown_target"
	StatusUnsupported   = "unsupported"
	StatusFailed        = "failed"
	StatusDuplicate     = "duplicate"
)

const (
	httpTimeout   = 10 * time.Second
	probeInterval = 5 * time.Second
	probeTimeout  = 90 * time.Second
	seenRetention = 1 * time.Hour
)

// command is a single wake instruction received from the remote endpoint.
type command struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Target string `json:"target"`
}

// envelope is the response body of the command endpoint.
type envelope struct {
	Commands []command `json:"commands"`
}

// acknowledgement is posted back after a command has been handled.
type acknowledgement struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Manager is a wake-command supervisor. It polls the configured remote
// endpoint for commands, sends magic packets to matched targets, and
// reports the outcome back.
type Manager struct {
	pollURL      string
	pollInterval time.Duration
	targets      map[string]config.WakeTarget
	transport    port.WakeTransport
	httpClient   *http.Client

	// seen tracks handled command IDs so redelivered commands are not resent
	seen map[string]time.Time
}

// Ensure Manager implements the Supervisor port
var _ port.Supervisor = (*Manager)(nil)

// NewManager creates a new wake-command supervisor.
func NewManager(wakeConfig *config.WakeConfig, transport port.WakeTransport) (*Manager, error) {
	if wakeConfig == nil || wakeConfig.PollURL == "" {
		return nil, fmt.Errorf("wake poll URL is not configured")
	}
	if len(wakeConfig.Targets) == 0 {
		return nil, fmt.Errorf("no wake targets configured")
	}

	targets := make(map[string]config.WakeTarget, len(wakeConfig.Targets))
	for _, target := range wakeConfig.Targets {
		targets[target.Name] = target
	}

	interval := wakeConfig.PollInterval.Std()
	if interval <= 0 {
		interval = config.DefaultPollInterval.Std()
	}

	return &Manager{
		pollURL:      wakeConfig.PollURL,
		pollInterval: interval,
		targets:      targets,
		transport:    transport,
		httpClient:   &http.Client{Timeout: httpTimeout},
		seen:         make(map[string]time.Time),
	}, nil
}

// Name returns the identifier of this supervisor.
func (m *Manager) Name() string {
	return "wake"
}

func (m *Manager) getLogger() *logrus.Entry {
	return logging.WithComponent("wake")
}

// Run polls the command endpoint until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	logger := m.getLogger().WithFields(logrus.Fields{
		"poll_interval": m.pollInterval.String(),
		"targets":       len(m.targets),
	})
	logger.Info("Starting wake command poller")

	pollTimer := time.NewTimer(1 * time.Millisecond)
	defer pollTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Wake command poller stopped due to context cancellation")
			return ctx.Err()
		case <-pollTimer.C:
			if err := m.pollOnce(ctx); err != nil {
				logger.WithError(err).Warn("Poll failed")
			}
			m.pruneSeen(time.Now())
			pollTimer.Reset(m.pollInterval)
		}
	}
}

// pollOnce fetches pending commands from the endpoint and handles each one.
func (m *Manager) pollOnce(ctx context.Context) error {
	logger := m.getLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pollURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build poll request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to poll command endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("command endpoint returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode command response: %w", err)
	}

	for _, cmd := range env.Commands {
		status := m.execute(ctx, cmd)
		logger.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"target":     cmd.Target,
			"status":     status,
		}).Info("Handled wake command")

		if err := m.acknowledge(ctx, cmd.ID, status); err != nil {
			logger.WithError(err).WithField("command_id", cmd.ID).Warn("Failed to acknowledge command")
		}
	}

	return nil
}

// execute handles a single command and returns the status to report.
func (m *Manager) execute(ctx context.Context, cmd command) string {
	logger := m.getLogger().WithField("command_id", cmd.ID)

	if _, handled := m.seen[cmd.ID]; handled {
		logger.Debug("Command already handled, not resending")
		return StatusDuplicate
	}
	m.seen[cmd.ID] = time.Now()

	if cmd.Action != "wake" {
		logger.WithField("action", cmd.Action).Warn("Unsupported command action")
		return StatusUnsupported
	}

	target, exists := m.targets[cmd.Target]
	if !exists {
		logger.WithField("target", cmd.Target).Warn("Unknown wake target")
		return StatusUnknownTarget
	}

	if err := m.sendMagicPacket(ctx, target); err != nil {
		logger.WithError(err).Error("Failed to send magic packet")
		return StatusFailed
	}

	if target.ProbeURL == "" {
		return StatusSent
	}

	if m.waitForTarget(ctx, target) {
		return StatusAwake
	}
	logger.WithField("target", target.Name).Warn("Target did not respond after waking")
	return StatusSent
}

// sendMagicPacket builds and broadcasts the magic packet for the target.
func (m *Manager) sendMagicPacket(ctx context.Context, target config.WakeTarget) error {
	packet, err := wol.MagicPacket(target.MAC)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(target.Broadcast, strconv.Itoa(target.Port))
	if err := m.transport.Broadcast(ctx, packet, addr); err != nil {
		return fmt.Errorf("failed to broadcast magic packet to %s: %w", addr, err)
	}

	m.getLogger().WithFields(logrus.Fields{
		"target": target.Name,
		"mac":    target.MAC,
		"addr":   addr,
	}).Info("Magic packet sent")
	return nil
}

// waitForTarget polls the target's probe URL until it answers or the wait
// times out.
func (m *Manager) waitForTarget(ctx context.Context, target config.WakeTarget) bool {
	deadline := time.Now().Add(probeTimeout)

	for {
		if err := m.transport.Probe(ctx, target.ProbeURL); err == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(probeInterval):
		}
	}
}

// acknowledge reports the outcome of a command back to the endpoint.
func (m *Manager) acknowledge(ctx context.Context, commandID, status string) error {
	body, err := json.Marshal(acknowledgement{ID: commandID, Status: status})
	if err != nil {
		return fmt.Errorf("failed to encode acknowledgement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.pollURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build acknowledgement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post acknowledgement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("acknowledgement rejected with status %d", resp.StatusCode)
	}
	return nil
}

// pruneSeen drops handled command IDs older than the retention window.
func (m *Manager) pruneSeen(now time.Time) {
	for id, handledAt := range m.seen {
		if now.Sub(handledAt) > seenRetention {
			delete(m.seen, id)
		}
	}
}
