package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	config "github.com/phillip/pawshome-go/config"
	identity "github.com/phillip/pawshome-go/identity"
)

// tokenCmd mints an HS256 token for local development. The server only
// accepts it when AUTH_PROVIDER=hmac and JWT_SECRET match.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			signer, err := identity.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			sub, _ := flags.GetString("sub")
			email, _ := flags.GetString("email")
			name, _ := flags.GetString("name")
			role, _ := flags.GetString("role")
			ttl, _ := flags.GetDuration("ttl")

			token, err := signer.Mint(identity.Identity{Subject: sub, Email: email, Name: name, Role: role}, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			if cfg.AuthProvider != identity.ProviderHMAC {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: AUTH_PROVIDER is %q, the server will reject this token\n", cfg.AuthProvider)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("sub", "", "Subject id the token is issued for")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("name", "", "Display name claim")
	cmd.Flags().String("role", "", "Role claim (admin)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}
