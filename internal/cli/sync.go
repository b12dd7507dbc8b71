package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"testyourself-core/internal/config"
	"testyourself-core/internal/domain"
)

// NewSyncCmd copies registry collections into their runtime collections.
func NewSyncCmd(configPath *string) *cobra.Command {
	var (
		collections []string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync registry collections into runtime collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			report := svc.sync.Sync(cmd.Context(), collections, dryRun)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.OK {
				return fmt.Errorf("sync finished with %d collection errors", len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&collections, "collections", domain.RegistryCollections(), "registry collections to sync")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count records without writing")
	return cmd
}
