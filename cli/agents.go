package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/pkg/sdk"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

var fsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	fsdk = s
}

func NewAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents [register|view|list]",
		Short: "Agents manager",
		Long:  `Register, view and list endpoint agents.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register <id> <organization> <schema_version>",
		Short: "Register agent",
		Long:  `Register an endpoint agent with the coordinator.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 3 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			schemaVersion, err := strconv.Atoi(args[2])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			a, err := fsdk.RegisterAgent(sdk.Agent{
				ID:            args[0],
				Organization:  args[1],
				SchemaVersion: schemaVersion,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, a)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View agent",
		Long:  `View agent.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			a, err := fsdk.GetAgent(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, a)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Long:  `List registered agents.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListAgents(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(registerCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
