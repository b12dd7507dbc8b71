package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"testyourself-core/internal/config"
	"testyourself-core/internal/security"
)

// NewTokenCmd mints a signed bearer token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("jwt secret not configured")
			}
			token, err := security.NewJWTAuthorizer([]byte(cfg.Auth.JWTSecret)).GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "admin", "subject of the token")
	cmd.Flags().StringVar(&role, "role", security.RoleAdmin, "role claim (admin, or service for result submission)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
