package cli

import (
	"strconv"

	"github.com/0x6flab/namegenerator"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/pkg/sdk"
)

var namegen = namegenerator.NewGenerator()

var provisionCmd = &cobra.Command{
	Use:   "provision <output>",
	Short: "Provision an agent",
	Long: `Provision a new endpoint agent: register it with the coordinator and
write its TOML configuration file.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			logUsageCmd(*cmd, cmd.Use)

			return
		}

		var (
			brokerURL     = "tcp://localhost:1883"
			channelID     = "fleet"
			organization  string
			datasetPath   = "dataset.json"
			schemaVersion = "1"
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Broker URL").
					Value(&brokerURL),
				huh.NewInput().
					Title("Fleet channel ID").
					Value(&channelID),
				huh.NewInput().
					Title("Organization").
					Value(&organization),
				huh.NewInput().
					Title("Dataset path").
					Value(&datasetPath),
				huh.NewInput().
					Title("Feature schema version").
					Value(&schemaVersion),
			),
		)

		if err := form.Run(); err != nil {
			logErrorCmd(*cmd, err)

			return
		}

		sv, err := strconv.Atoi(schemaVersion)
		if err != nil {
			logErrorCmd(*cmd, err)

			return
		}

		cfg := agent.Config{
			BrokerURL:     brokerURL,
			AgentID:       uuid.NewString(),
			AgentKey:      uuid.NewString(),
			ChannelID:     channelID,
			Name:          namegen.Generate(),
			Organization:  organization,
			SchemaVersion: sv,
			DatasetPath:   datasetPath,
		}

		a, err := fsdk.RegisterAgent(sdk.Agent{
			ID:            cfg.AgentID,
			Name:          cfg.Name,
			Organization:  cfg.Organization,
			SchemaVersion: cfg.SchemaVersion,
		})
		if err != nil {
			logErrorCmd(*cmd, err)

			return
		}
		logSuccessCmd(*cmd, "Successfully registered agent "+a.ID)

		if err := cfg.Save(args[0]); err != nil {
			logErrorCmd(*cmd, err)

			return
		}
		logSuccessCmd(*cmd, "Successfully created "+args[0])

		logJSONCmd(*cmd, a)
	},
}

func NewProvisionCmd() *cobra.Command {
	return provisionCmd
}
