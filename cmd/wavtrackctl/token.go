package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	iauth "github.com/charlesng35/wavtrack/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development access token",
		Long: `Mint an HS256 access token signed with auth.jwt.secret. The token has
the same shape as those issued by the managed auth service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jwtCfg := opts.cfg.Auth.JWTServiceConfig()
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}
			svc, err := iauth.NewJWTService(jwtCfg)
			if err != nil {
				return err
			}
			token, err := svc.GenerateAccessToken(iauth.AccessTokenInput{UserID: args[0], Email: email})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.jwt.access_token_ttl)")
	return cmd
}
