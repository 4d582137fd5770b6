package main

import "github.com/kazu-1234/SmartPowerManager/cmd"

func main() {
	cmd.Execute()
}
