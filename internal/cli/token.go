package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-recorder/pkg/jwt"
)

func NewTokenCmd(deps *Dependencies) *cobra.Command {
	var (
		client string
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := deps.Config.Auth
			if auth.Secret == "" {
				return errors.New("MEETREC_AUTH_SECRET is not set; the control API runs without auth")
			}

			manager := jwt.NewManager(auth.Secret, auth.TokenExpiry, auth.Issuer)
			token, err := manager.GenerateToken(client, scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "recorderctl", "client name stored in the token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{jwt.ScopeControl, jwt.ScopeRead}, "granted scopes")
	return cmd
}
