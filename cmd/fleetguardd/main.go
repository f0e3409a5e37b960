package main

import (
	"log"

	"github.com/fleetguard/fleetguard/fleetguardd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleetguardd",
		Short: "FleetGuard Daemon",
		Long:  `FleetGuard Daemon is a daemon that manages the lifecycle of FleetGuard components.`,
	}

	coordinatorCmd := fleetguardd.NewCoordinatorCmd()
	agentCmd := fleetguardd.NewAgentCmd()

	rootCmd.AddCommand(coordinatorCmd)
	rootCmd.AddCommand(agentCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
