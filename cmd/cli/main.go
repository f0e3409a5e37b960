package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/cli"
	"github.com/fleetguard/fleetguard/pkg/sdk"
)

const (
	defCoordinatorURL  = "http://localhost:8080"
	defTLSVerification = false
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleetguard-cli",
		Short: "FleetGuard CLI",
		Long:  `FleetGuard CLI is a command line interface for interacting with FleetGuard components.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  defCoordinatorURL,
				TLSVerification: defTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewAgentsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(cli.NewSnapshotsCmd())
	rootCmd.AddCommand(cli.NewAlertsCmd())
	rootCmd.AddCommand(cli.NewHoneypotsCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
