package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

func newTokenCmd() *cobra.Command {
	var (
		account string
		role    string
		ttl     time.Duration
		issuer  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with SALES_AUTH_SECRET.",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("SALES_AUTH_SECRET")
			if secret == "" {
				return errors.New("SALES_AUTH_SECRET is not set")
			}
			r, err := org.ParseRole(role)
			if err != nil {
				return err
			}
			svc, err := auth.NewTokenService(secret, auth.WithIssuer(issuer))
			if err != nil {
				return err
			}
			token, exp, err := svc.GenerateToken(account, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Account id (token subject)")
	cmd.Flags().StringVar(&role, "role", "", "Role: owner, manager or contributor")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("SALES_AUTH_ISSUER", auth.DefaultIssuer), "Token issuer")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
