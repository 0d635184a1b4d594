package cli

import (
	"fmt"
	"time"

	"cyberhoot-service/internal/auth"
	"cyberhoot-service/internal/config"
	"github.com/spf13/cobra"
)

// NewUserCmd manages the identities sessions are hosted and joined under.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <username>...",
		Short: "Register users; prints a bearer token for each when auth is enabled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStack(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var issuer *auth.JWT
			if cfg.Auth.JWTSecret != "" {
				issuer = auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			}
			for _, name := range args {
				user, err := st.store.AddUser(cmd.Context(), name)
				if err != nil {
					return err
				}
				if issuer == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.Username, user.ID)
					continue
				}
				token, err := issuer.Issue(user.Username, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.Username, user.ID, token)
			}
			return nil
		},
	})
	return cmd
}
