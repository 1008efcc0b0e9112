package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satriahrh/learnvoice/internal/auth"
	"github.com/satriahrh/learnvoice/internal/config"
)

func newTokenCommand() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the cache administration API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleAdmin {
				return fmt.Errorf("unsupported role %q, only %q tokens can be minted", role, auth.RoleAdmin)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Server.PublicBaseURL)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AdminTokenTTL
			}

			token, err := signer.GenerateAdminToken(ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default ADMIN_TOKEN_TTL)")

	return cmd
}
