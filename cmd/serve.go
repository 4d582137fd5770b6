package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kazu-1234/SmartPowerManager/internal/adapter/dhcp"
	infraDhcp "github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/dhcp"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/file"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/network"
	infraNtp "github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/ntp"
	infraWake "github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/wake"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/wireless"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/static"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/timesync"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/wake"
	"github.com/kazu-1234/SmartPowerManager/internal/adapter/wifi"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/logging"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/spf13/cobra"
)

var (
	configFlag string
)

// createAddressingManager creates an addressing supervisor for the given
// interface and configuration
func createAddressingManager(ifaceName string, ifaceConfig config.InterfaceConfig, networkMgr port.NetworkManager, fileMgr port.FileManager) (port.Supervisor, error) {
	logger := logging.GetLogger()

	if ifaceConfig.DHCP {
		dhcpClient := infraDhcp.NewClientAdapter()

		manager, err := dhcp.NewManager(ifaceName, dhcpClient, networkMgr, fileMgr)
		if err != nil {
			return nil, err
		}
		logger.WithField("interface", ifaceName).Info("Created DHCP addressing supervisor")
		return manager, nil
	} else if ifaceConfig.Static != nil {
		manager, err := static.NewManager(ifaceName, ifaceConfig, networkMgr, fileMgr)
		if err != nil {
			return nil, err
		}
		logger.WithField("interface", ifaceName).WithFields(map[string]interface{}{
			"ip":      ifaceConfig.Static.IP,
			"netmask": ifaceConfig.Static.Netmask,
			"gateway": ifaceConfig.Static.Gateway,
		}).Info("Created static addressing supervisor")
		return manager, nil
	}

	return nil, fmt.Errorf("invalid interface configuration: must specify either DHCP or static")
}

// createSupervisors builds every supervisor the configuration asks for
func createSupervisors(cfg *config.Config) []port.Supervisor {
	logger := logging.GetLogger()

	// Shared infrastructure adapters
	networkMgr := network.NewManagerAdapter()
	fileMgr := file.NewManagerAdapter()

	var supervisors []port.Supervisor

	for ifaceName, ifaceConfig := range cfg.Network {
		manager, err := createAddressingManager(ifaceName, ifaceConfig, networkMgr, fileMgr)
		if err != nil {
			logger.WithField("interface", ifaceName).WithError(err).Error("Failed to create addressing supervisor")
			continue
		}
		supervisors = append(supervisors, manager)
	}

	if cfg.WiFi != nil {
		manager, err := wifi.NewManager(cfg.WiFi, wireless.NewClientAdapter(), networkMgr)
		if err != nil {
			logger.WithField("interface", cfg.WiFi.Interface).WithError(err).Error("Failed to create WiFi supervisor")
		} else {
			logger.WithField("interface", cfg.WiFi.Interface).
				WithField("networks", len(cfg.WiFi.Networks)).Info("Created WiFi supervisor")
			supervisors = append(supervisors, manager)
		}
	}

	if cfg.NTP != nil {
		manager, err := timesync.NewManager(cfg.NTP, infraNtp.NewClientAdapter())
		if err != nil {
			logger.WithError(err).Error("Failed to create time synchronization supervisor")
		} else {
			logger.WithField("server", cfg.NTP.Server).Info("Created time synchronization supervisor")
			supervisors = append(supervisors, manager)
		}
	}

	if cfg.Wake != nil && len(cfg.Wake.Targets) > 0 {
		manager, err := wake.NewManager(cfg.Wake, infraWake.NewTransportAdapter())
		if err != nil {
			logger.WithError(err).Error("Failed to create wake command supervisor")
		} else {
			logger.WithField("targets", len(cfg.Wake.Targets)).Info("Created wake command supervisor")
			supervisors = append(supervisors, manager)
		}
	}

	return supervisors
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the power management daemon",
	Run: func(cmd *cobra.Command, args []string) {
		// Load and validate configuration
		cfg, err := config.Load(configFlag)
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Printf("Config validation error: %v\n", err)
			return
		}

		// Initialize logging
		logCfg := cfg.Logging
		logCfg.Debug = cfg.Debug
		logging.InitLogger(logCfg)

		logger := logging.GetLogger()
		logger.WithField("config_file", configFlag).Info("Starting daemon")

		// Create context for graceful shutdown
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			cancel()
		}()

		supervisors := createSupervisors(cfg)

		if len(supervisors) == 0 {
			logger.Warn("No supervisors created")
			return
		}

		logger.WithField("supervisor_count", len(supervisors)).Info("Starting supervisors")

		// Start all supervisors concurrently
		var wg sync.WaitGroup
		for _, supervisor := range supervisors {
			wg.Add(1)
			go func(s port.Supervisor) {
				defer wg.Done()

				if err := s.Run(ctx); err != nil {
					if err != context.Canceled {
						logger.WithField("supervisor", s.Name()).WithError(err).Error("Supervisor failed")
					}
				}
			}(supervisor)
		}

		// Wait for all supervisors to complete
		wg.Wait()
		logger.Info("All supervisors stopped")
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configFlag, "config", "f", "", "Path to config file (YAML)")
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(err) // This should never happen during initialization
	}
	rootCmd.AddCommand(serveCmd)
}
