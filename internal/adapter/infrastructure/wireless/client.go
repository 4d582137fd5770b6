// Package wireless provides a wireless supplicant adapter implementation.
package wireless

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kazu-1234/SmartPowerManager/internal/port"
)

// ClientAdapter is an adapter that implements the WirelessClient port by
// driving wpa_supplicant through the wpa_cli control binary.
type ClientAdapter struct{}

// Ensure ClientAdapter implements the WirelessClient port
var _ port.WirelessClient = (*ClientAdapter)(nil)

// NewClientAdapter creates a new wireless client adapter.
func NewClientAdapter() *ClientAdapter {
	return &ClientAdapter{}
}

// Status returns the current association state of the interface.
func (c *ClientAdapter) Status(ctx context.Context, interfaceName string) (port.WirelessStatus, error) {
	out, err := c.run(ctx, interfaceName, "status")
	if err != nil {
		return port.WirelessStatus{}, fmt.Errorf("failed to query supplicant status: %w", err)
	}
	return parseStatus(out), nil
}

// Connect replaces the configured networks with the given credential and
// starts association.
func (c *ClientAdapter) Connect(ctx context.Context, interfaceName, ssid, psk string) error {
	// Drop any previously configured networks so the supplicant does not
	// race us back onto a lower-priority SSID
	if _, err := c.run(ctx, interfaceName, "remove_network", "all"); err != nil {
		return fmt.Errorf("failed to clear configured networks: %w", err)
	}

	out, err := c.run(ctx, interfaceName, "add_network")
	if err != nil {
		return fmt.Errorf("failed to add network: %w", err)
	}
	networkID := strings.TrimSpace(out)

	if err := c.runChecked(ctx, interfaceName, "set_network", networkID, "ssid", quote(ssid)); err != nil {
		return fmt.Errorf("failed to set ssid: %w", err)
	}
	if err := c.runChecked(ctx, interfaceName, "set_network", networkID, "psk", quote(psk)); err != nil {
		return fmt.Errorf("failed to set psk: %w", err)
	}
	if err := c.runChecked(ctx, interfaceName, "select_network", networkID); err != nil {
		return fmt.Errorf("failed to select network: %w", err)
	}

	return nil
}

// Disconnect drops the current association and removes configured networks.
func (c *ClientAdapter) Disconnect(ctx context.Context, interfaceName string) error {
	if err := c.runChecked(ctx, interfaceName, "disconnect"); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	if _, err := c.run(ctx, interfaceName, "remove_network", "all"); err != nil {
		return fmt.Errorf("failed to clear configured networks: %w", err)
	}
	return nil
}

// run executes a wpa_cli command against the given interface and returns
// its output.
func (c *ClientAdapter) run(ctx context.Context, interfaceName string, args ...string) (string, error) {
	cmdArgs := append([]string{"-i", interfaceName}, args...)
	out, err := exec.CommandContext(ctx, "wpa_cli", cmdArgs...).Output()
	if err != nil {
		return "", fmt.Errorf("wpa_cli %s failed: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// runChecked executes a wpa_cli command that is expected to answer "OK".
func (c *ClientAdapter) runChecked(ctx context.Context, interfaceName string, args ...string) error {
	out, err := c.run(ctx, interfaceName, args...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "OK" {
		return fmt.Errorf("wpa_cli %s answered %q", strings.Join(args, " "), strings.TrimSpace(out))
	}
	return nil
}

// parseStatus parses the key=value output of "wpa_cli status".
func parseStatus(out string) port.WirelessStatus {
	var status port.WirelessStatus
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "wpa_state":
			status.Associated = value == "COMPLETED"
		case "ssid":
			status.SSID = value
		}
	}
	return status
}

// quote wraps a value in the double quotes wpa_cli expects for string
// network parameters.
func quote(value string) string {
	return fmt.Sprintf(`"%s"`, value)
}
