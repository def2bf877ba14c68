package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/config"
)

// TokenCmd returns the token command
func TokenCmd() *cobra.Command {
	var email, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Mint a development identity token",
		Long: `Sign a bearer token with JWT_SECRET for local development. Deployments
using Firebase Auth ignore these tokens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			tok, err := auth.NewJWTVerifier(cfg.JWTSecret).CreateToken(auth.Caller{UID: args[0], Email: email, Name: name}, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
