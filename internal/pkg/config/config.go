package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"

	"gopkg.in/yaml.v3"
)

// MaxWiFiNetworks is the maximum number of WiFi credentials that can be
// configured. Credentials are tried in the order they appear.
const MaxWiFiNetworks = 3

// Duration wraps time.Duration so interval values can be written in YAML
// as "15s", "1h" etc.
type Duration time.Duration

// UnmarshalYAML parses a duration string into a Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// WiFiNetwork is a single WiFi credential (network name and pre-shared key).
type WiFiNetwork struct {
	SSID string `yaml:"ssid"`
	PSK  string `yaml:"psk"`
}

// WiFiConfig holds the wireless interface name and the prioritized list of
// credentials to try when associating.
type WiFiConfig struct {
	Interface string        `yaml:"interface"`
	Networks  []WiFiNetwork `yaml:"networks"`
}

// StaticConfig represents static IP configuration for an interface.
type StaticConfig struct {
	IP      string   `yaml:"ip"`
	Netmask string   `yaml:"netmask"`
	Gateway string   `yaml:"gateway"`
	DNS     []string `yaml:"dns,omitempty"` // primary, then optional secondary
}

// InterfaceConfig represents the addressing configuration for a network
// interface: either DHCP or static, never both.
type InterfaceConfig struct {
	DHCP   bool          `yaml:"dhcp,omitempty"`
	Static *StaticConfig `yaml:"static,omitempty"`
}

// NTPConfig holds the time server hostname and how often to resynchronize.
type NTPConfig struct {
	Server       string   `yaml:"server"`
	SyncInterval Duration `yaml:"sync_interval,omitempty"`
}

// WakeTarget is a machine that can be woken by magic packet.
type WakeTarget struct {
	Name      string `yaml:"name"`
	MAC       string `yaml:"mac"`
	Broadcast string `yaml:"broadcast"`
	Port      int    `yaml:"port,omitempty"`      // defaults to 9
	ProbeURL  string `yaml:"probe_url,omitempty"` // polled after waking to confirm the target is up
}

// WakeConfig holds the remote command endpoint and the wake targets.
type WakeConfig struct {
	PollURL      string       `yaml:"poll_url"`
	PollInterval Duration     `yaml:"poll_interval,omitempty"`
	Targets      []WakeTarget `yaml:"targets"`
}

// Config represents the main configuration structure.
type Config struct {
	Debug   bool                       `yaml:"debug"`
	Logging logging.LogConfig          `yaml:"logging"`
	WiFi    *WiFiConfig                `yaml:"wifi,omitempty"`
	Network map[string]InterfaceConfig `yaml:"network"`
	NTP     *NTPConfig                 `yaml:"ntp,omitempty"`
	Wake    *WakeConfig                `yaml:"wake,omitempty"`
}

// Default values applied when the config omits them.
const (
	DefaultSyncInterval = Duration(1 * time.Hour)
	DefaultPollInterval = Duration(15 * time.Second)
	DefaultWakePort     = 9
)

// Load loads configuration from a YAML file and applies defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.NTP != nil && c.NTP.SyncInterval == 0 {
		c.NTP.SyncInterval = DefaultSyncInterval
	}
	if c.Wake != nil {
		if c.Wake.PollInterval == 0 {
			c.Wake.PollInterval = DefaultPollInterval
		}
		for i := range c.Wake.Targets {
			if c.Wake.Targets[i].Port == 0 {
				c.Wake.Targets[i].Port = DefaultWakePort
			}
		}
	}
}

// GetInterfaceConfig returns the addressing configuration for a specific interface.
func (c *Config) GetInterfaceConfig(interfaceName string) (InterfaceConfig, bool) {
	config, exists := c.Network[interfaceName]
	return config, exists
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Network) == 0 {
		return fmt.Errorf("no interfaces configured")
	}

	for name, iface := range c.Network {
		if !iface.DHCP && iface.Static == nil {
			return fmt.Errorf("interface %s: must specify either dhcp or static configuration", name)
		}
		if iface.DHCP && iface.Static != nil {
			return fmt.Errorf("interface %s: cannot specify both dhcp and static configuration", name)
		}
		if iface.Static != nil {
			if err := validateStaticConfig(name, iface.Static); err != nil {
				return err
			}
		}
	}

	if c.WiFi != nil {
		if err := c.WiFi.validate(); err != nil {
			return err
		}
	}

	if c.NTP != nil && c.NTP.Server == "" {
		return fmt.Errorf("ntp: server hostname is required")
	}

	if c.Wake != nil {
		if err := c.Wake.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (w *WiFiConfig) validate() error {
	if w.Interface == "" {
		return fmt.Errorf("wifi: interface name is required")
	}
	if len(w.Networks) == 0 {
		return fmt.Errorf("wifi: at least one network is required")
	}
	if len(w.Networks) > MaxWiFiNetworks {
		return fmt.Errorf("wifi: at most %d networks are supported, got %d", MaxWiFiNetworks, len(w.Networks))
	}
	for i, nw := range w.Networks {
		if nw.SSID == "" {
			return fmt.Errorf("wifi: network %d: ssid is required", i+1)
		}
		if nw.PSK == "" {
			return fmt.Errorf("wifi: network %d (%s): psk is required", i+1, nw.SSID)
		}
	}
	return nil
}

func (w *WakeConfig) validate() error {
	if len(w.Targets) > 0 && w.PollURL == "" {
		return fmt.Errorf("wake: poll_url is required when targets are configured")
	}
	seen := make(map[string]bool)
	for i, target := range w.Targets {
		if target.Name == "" {
			return fmt.Errorf("wake: target %d: name is required", i+1)
		}
		if seen[target.Name] {
			return fmt.Errorf("wake: duplicate target name %s", target.Name)
		}
		seen[target.Name] = true

		hw, err := net.ParseMAC(target.MAC)
		if err != nil {
			return fmt.Errorf("wake: target %s: invalid mac address %q: %w", target.Name, target.MAC, err)
		}
		if len(hw) != 6 {
			return fmt.Errorf("wake: target %s: mac address must be 6 octets, got %d", target.Name, len(hw))
		}
		if err := validateIPv4("broadcast address", target.Broadcast); err != nil {
			return fmt.Errorf("wake: target %s: %w", target.Name, err)
		}
		if target.Port < 1 || target.Port > 65535 {
			return fmt.Errorf("wake: target %s: invalid port %d", target.Name, target.Port)
		}
	}
	return nil
}

func validateStaticConfig(interfaceName string, static *StaticConfig) error {
	if static.IP == "" {
		return fmt.Errorf("interface %s: static IP address is required", interfaceName)
	}
	if static.Netmask == "" {
		return fmt.Errorf("interface %s: static netmask is required", interfaceName)
	}
	if err := validateIPv4("IP address", static.IP); err != nil {
		return fmt.Errorf("interface %s: %w", interfaceName, err)
	}
	if err := validateIPv4("netmask", static.Netmask); err != nil {
		return fmt.Errorf("interface %s: %w", interfaceName, err)
	}
	if static.Gateway != "" {
		if err := validateIPv4("gateway", static.Gateway); err != nil {
			return fmt.Errorf("interface %s: %w", interfaceName, err)
		}
	}
	if len(static.DNS) > 2 {
		return fmt.Errorf("interface %s: at most 2 DNS servers are supported (primary, secondary), got %d", interfaceName, len(static.DNS))
	}
	for _, dns := range static.DNS {
		if err := validateIPv4("DNS server", dns); err != nil {
			return fmt.Errorf("interface %s: %w", interfaceName, err)
		}
	}
	return nil
}

// validateIPv4 checks that the value is a well-formed dotted-decimal IPv4
// address, i.e. exactly four octets in the 0-255 range.
func validateIPv4(what, value string) error {
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid %s %q: must be a dotted-decimal IPv4 address", what, value)
	}
	return nil
}
