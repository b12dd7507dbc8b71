package cli

import (
	"os"

	"github.com/spf13/cobra"
	"testyourself-core/internal/config"
)

var (
	port       string
	configPath string
	envPath    string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "testyourself",
		Short:        "Catalog, leaderboard and registry backend for TestYourself",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envPath)
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "optional dotenv file")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewSyncCmd(&configPath))
	cmd.AddCommand(NewRegistryCmd(&configPath))
	cmd.AddCommand(NewTokenCmd(&configPath))
	return cmd
}
