package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trip-planner-service/internal/config"
	"trip-planner-service/internal/platform/obs"
)

func Execute() error {
	return NewRoot().Execute()
}

// NewRoot builds the operator CLI. Database commands read DATABASE_URL from
// the environment or .env.
func NewRoot() *cobra.Command {
	var (
		policyPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Operate the trip planner: schema, seed data and offline plans",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := obs.NewLogger(config.Get("APP_ENV", "development"), logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().StringVar(&policyPath, "policy", "", "Planner policy YAML (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		MigrateCmd(),
		SeedCmd(),
		PlanCmd(&policyPath),
	)
	return root
}
