package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [view|list]",
		Short: "Rounds manager",
		Long:  `View and list federated training rounds.`,
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View round",
		Long:  `View round summary.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			r, err := fsdk.GetRound(id)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rounds",
		Long:  `List round summaries.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListRounds(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)

	return cmd
}

func NewSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots [latest|view]",
		Short: "Snapshots manager",
		Long:  `View global model snapshots.`,
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Latest snapshot",
		Long:  `View the current global model snapshot.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := fsdk.LatestSnapshot()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <version>",
		Short: "View snapshot",
		Long:  `View a snapshot by version.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			s, err := fsdk.GetSnapshot(version)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	cmd.AddCommand(latestCmd)
	cmd.AddCommand(viewCmd)

	return cmd
}
