package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Env == "prod" {
				return fmt.Errorf("token issuing is disabled in prod")
			}
			role = strings.ToUpper(role)
			if role != middleware.RoleCustomer && role != middleware.RoleMerchant {
				return fmt.Errorf("role must be %s or %s", middleware.RoleCustomer, middleware.RoleMerchant)
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "dev-customer", "token subject")
	cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "CUSTOMER or MERCHANT")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
