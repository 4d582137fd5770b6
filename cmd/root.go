package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smartpowerd",
	Short: "smartpowerd is a home power and Wake-on-LAN management daemon",
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
