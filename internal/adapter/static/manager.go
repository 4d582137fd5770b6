package static

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/vishvananda/netlink"
)

const monitorInterval = 30 * time.Second

// Manager is a static addressing supervisor. It applies the configured
// address, gateway and DNS servers to an interface and repairs the
// configuration if it drifts.
type Manager struct {
	iface        *net.Interface
	staticConfig config.StaticConfig
	networkMgr   port.NetworkManager
	fileMgr      port.FileManager
}

// Ensure Manager implements the Supervisor port
var _ port.Supervisor = (*Manager)(nil)

// NewManager creates a new static addressing supervisor for the given
// interface name and configuration.
func NewManager(ifaceName string, ifaceConfig config.InterfaceConfig, networkMgr port.NetworkManager, fileMgr port.FileManager) (*Manager, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("interface not found: %w", err)
	}

	if ifaceConfig.Static == nil {
		return nil, fmt.Errorf("interface configuration does not have static IP settings")
	}

	return &Manager{
		iface:        iface,
		staticConfig: *ifaceConfig.Static,
		networkMgr:   networkMgr,
		fileMgr:      fileMgr,
	}, nil
}

// Name returns the name of the network interface managed by this supervisor.
func (m *Manager) Name() string {
	return m.iface.Name
}

// Run configures the interface with static IP settings and maintains the
// configuration until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name).WithField("mac", m.iface.HardwareAddr.String())
	logger.Info("Starting static IP configuration")

	if err := m.applyStaticConfig(ctx); err != nil {
		return fmt.Errorf("failed to apply static configuration: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"ip":      m.staticConfig.IP,
		"netmask": m.staticConfig.Netmask,
		"gateway": m.staticConfig.Gateway,
	}).Info("Static IP configuration applied successfully")

	return m.monitorInterface(ctx)
}

// applyStaticConfig applies the static address, default route and DNS
// servers to the interface.
func (m *Manager) applyStaticConfig(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name)

	link, err := m.networkMgr.GetLinkByName(m.iface.Name)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	ip := net.ParseIP(m.staticConfig.IP)
	if ip == nil {
		return fmt.Errorf("invalid IP address: %s", m.staticConfig.IP)
	}

	mask := net.ParseIP(m.staticConfig.Netmask)
	if mask == nil {
		return fmt.Errorf("invalid netmask: %s", m.staticConfig.Netmask)
	}

	ipNet := &net.IPNet{
		IP:   ip,
		Mask: net.IPMask(mask.To4()),
	}

	logger.WithField("ip", ipNet.String()).Info("Configuring interface with IP")

	existingAddrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return fmt.Errorf("failed to list existing addresses: %w", err)
	}

	// Check if the target IP is already configured
	targetConfigured := false
	for _, addr := range existingAddrs {
		if addr.IPNet.IP.Equal(ipNet.IP) && addr.IPNet.Mask.String() == ipNet.Mask.String() {
			logger.WithField("ip", ipNet.String()).Info("IP address already configured, skipping")
			targetConfigured = true
			break
		}
	}

	if !targetConfigured {
		// Remove existing IPv4 addresses that don't match our target
		for _, addr := range existingAddrs {
			if !addr.IPNet.IP.Equal(ipNet.IP) {
				if err := m.networkMgr.DeleteAddress(link, &addr); err != nil {
					logger.WithError(err).WithField("address", addr.IPNet.String()).Warn("Failed to remove existing address")
				} else {
					logger.WithField("address", addr.IPNet.String()).Debug("Removed existing address")
				}
			}
		}

		addr := &netlink.Addr{
			IPNet: ipNet,
		}
		if err := m.networkMgr.AddAddress(link, addr); err != nil {
			return fmt.Errorf("failed to add IP address %s: %w", ipNet.String(), err)
		}
		logger.WithField("ip", ipNet.String()).Info("Successfully added IP address")
	}

	if m.staticConfig.Gateway != "" {
		gateway := net.ParseIP(m.staticConfig.Gateway)
		if gateway == nil {
			return fmt.Errorf("invalid gateway address: %s", m.staticConfig.Gateway)
		}

		logger.WithField("gateway", gateway.String()).Info("Setting default gateway")

		if err := m.configureDefaultRoute(ctx, link, gateway); err != nil {
			return fmt.Errorf("failed to set default gateway: %w", err)
		}
	}

	if len(m.staticConfig.DNS) > 0 {
		if err := m.configureDNS(ctx); err != nil {
			logger.WithError(err).Warn("Failed to configure DNS")
		}
	}

	return nil
}

// configureDefaultRoute configures the default gateway for the interface.
func (m *Manager) configureDefaultRoute(ctx context.Context, link netlink.Link, gateway net.IP) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name).WithField("gateway", gateway.String())

	routes, err := m.networkMgr.ListRoutes()
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	// Check for existing default route
	hasDefaultRoute := false
	for _, route := range routes {
		if route.Dst == nil && route.Gw != nil {
			if route.Gw.Equal(gateway) && route.LinkIndex == link.Attrs().Index {
				logger.Debug("Default route already configured, skipping")
				hasDefaultRoute = true
				break
			} else {
				// Remove conflicting default route
				if err := m.networkMgr.DeleteRoute(&route); err != nil {
					logger.WithError(err).WithField("existing_gateway", route.Gw.String()).
						Warn("Failed to remove existing default route")
				} else {
					logger.WithField("existing_gateway", route.Gw.String()).
						Debug("Removed conflicting default route")
				}
			}
		}
	}

	if !hasDefaultRoute {
		route := &netlink.Route{
			LinkIndex: link.Attrs().Index,
			Gw:        gateway,
		}

		if err := m.networkMgr.AddRoute(route); err != nil {
			if strings.Contains(err.Error(), "file exists") {
				logger.WithField("gateway", gateway.String()).
					Debug("Default route already exists, ignoring error")
			} else {
				return fmt.Errorf("failed to add default route: %w", err)
			}
		} else {
			logger.Info("Successfully configured default route")
		}
	}

	return nil
}

// configureDNS writes the configured DNS servers (primary first, then the
// optional secondary) to /etc/resolv.conf.
func (m *Manager) configureDNS(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name)

	newContent := "# Generated by smartpowerd\n"
	for _, dns := range m.staticConfig.DNS {
		newContent += fmt.Sprintf("nameserver %s\n", dns)
	}

	if currentContent, err := m.fileMgr.ReadFile("/etc/resolv.conf"); err == nil {
		if string(currentContent) == newContent {
			logger.Debug("DNS configuration already up to date, skipping")
			return nil
		}
	}

	if err := m.fileMgr.WriteFile("/etc/resolv.conf", []byte(newContent), 0644); err != nil {
		return fmt.Errorf("failed to write /etc/resolv.conf: %w", err)
	}

	logger.WithField("dns_servers", strings.Join(m.staticConfig.DNS, ", ")).Info("Updated /etc/resolv.conf with DNS servers")
	return nil
}

// monitorInterface monitors the interface and reapplies configuration if needed.
func (m *Manager) monitorInterface(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name)
	logger.Info("Starting interface monitoring")

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Interface monitoring stopped due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			if err := m.checkAndRepairConfiguration(ctx); err != nil {
				logger.WithError(err).Error("Configuration check failed")
			}
		}
	}
}

// checkAndRepairConfiguration checks if the static configuration is still
// applied and repairs it if needed.
func (m *Manager) checkAndRepairConfiguration(ctx context.Context) error {
	logger := logging.WithComponentAndInterface("static", m.iface.Name)

	// Refresh interface information
	iface, err := net.InterfaceByName(m.iface.Name)
	if err != nil {
		return fmt.Errorf("interface %s not found: %w", m.iface.Name, err)
	}
	m.iface = iface

	link, err := m.networkMgr.GetLinkByName(m.iface.Name)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	if m.iface.Flags&net.FlagUp == 0 {
		logger.Warn("Interface is down, bringing it up")
		if err := m.networkMgr.SetLinkUp(link); err != nil {
			return fmt.Errorf("failed to bring interface up: %w", err)
		}
	}

	addrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return fmt.Errorf("failed to get interface addresses: %w", err)
	}

	expectedIP := net.ParseIP(m.staticConfig.IP)
	hasStaticIP := false

	for _, addr := range addrs {
		if addr.IPNet.IP.Equal(expectedIP) {
			hasStaticIP = true
			break
		}
	}

	if !hasStaticIP {
		logger.WithField("ip", m.staticConfig.IP).
			Warn("Static IP not found on interface, reapplying configuration")
		if err := m.applyStaticConfig(ctx); err != nil {
			return fmt.Errorf("failed to reapply static configuration: %w", err)
		}
		logger.Info("Static configuration reapplied successfully")
	}

	return nil
}
