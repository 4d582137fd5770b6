package cmd

import (
	"fmt"
	"net"
	"strconv"
	"time"

	infraWake "github.com/kazu-1234/SmartPowerManager/internal/adapter/infrastructure/wake"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/wol"

	"github.com/spf13/cobra"
)

var waitFlag bool

var wakeCmd = &cobra.Command{
	Use:   "wake <target>",
	Short: "Send a Wake-on-LAN magic packet to a configured target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation error: %w", err)
		}
		if cfg.Wake == nil {
			return fmt.Errorf("no wake targets configured")
		}

		var target *config.WakeTarget
		for i := range cfg.Wake.Targets {
			if cfg.Wake.Targets[i].Name == args[0] {
				target = &cfg.Wake.Targets[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("unknown wake target %q", args[0])
		}

		packet, err := wol.MagicPacket(target.MAC)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		transport := infraWake.NewTransportAdapter()
		addr := net.JoinHostPort(target.Broadcast, strconv.Itoa(target.Port))

		if err := transport.Broadcast(ctx, packet, addr); err != nil {
			return err
		}
		fmt.Printf("Magic packet sent to %s (%s via %s)\n", target.Name, target.MAC, addr)

		if waitFlag && target.ProbeURL != "" {
			fmt.Printf("Waiting for %s to answer on %s...\n", target.Name, target.ProbeURL)
			deadline := time.Now().Add(90 * time.Second)
			for {
				if err := transport.Probe(ctx, target.ProbeURL); err == nil {
					fmt.Printf("%s is up\n", target.Name)
					return nil
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("%s did not answer before the timeout", target.Name)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
				}
			}
		}

		return nil
	},
}

func init() {
	wakeCmd.Flags().StringVarP(&configFlag, "config", "f", "", "Path to config file (YAML)")
	if err := wakeCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	wakeCmd.Flags().BoolVarP(&waitFlag, "wait", "w", false, "Wait for the target's probe URL to answer")
	rootCmd.AddCommand(wakeCmd)
}
