package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadbook/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		email  string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <agent-id>",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint an HS256 token for an agent. The signing secret is read from
JWT_SECRET and must match the server's.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewTokenProvider(secret, issuer).Issue(args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&issuer, "issuer", "leadbook", "Issuer claim, must match JWT_ISSUER")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
