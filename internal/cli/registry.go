package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"testyourself-core/internal/config"
	"testyourself-core/internal/domain"
)

// NewRegistryCmd groups registry maintenance subcommands.
func NewRegistryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Maintain the chunked registry",
	}
	cmd.AddCommand(newRegistryPublishCmd(configPath))
	return cmd
}

func newRegistryPublishCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish <collection>.json files from a directory into the registry",
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

			published := 0
			for _, name := range domain.RegistryCollections() {
				records, err := readRegistryFile(filepath.Join(dir, name+".json"))
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				chunks, err := svc.registry.Write(cmd.Context(), name, records)
				if err != nil {
					return fmt.Errorf("publish %s: %w", name, err)
				}
				svc.logger.Info("registry published", "collection", name, "records", len(records), "chunks", chunks)
				published++
			}
			if published == 0 {
				svc.logger.Warn("no registry files found", "dir", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "registry", "directory holding <collection>.json arrays")
	return cmd
}

func readRegistryFile(path string) ([]domain.RegistryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.RegistryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
