package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default plans and platform settings",
	Long: `Install the default subscription plans and platform settings.

With --admin-email an account is created as super_admin, or an existing
account with that email is promoted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		// .env is only loaded once the command runs.
		if adminEmail == "" {
			adminEmail, adminPassword = os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
		}
		if err := seed(adminEmail, adminPassword); err != nil {
			return err
		}
		slog.Info("seed complete")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "", "Email of the super admin account (default $ADMIN_EMAIL)")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "Password for a newly created super admin (default $ADMIN_PASSWORD)")
}

func seed(email, password string) error {
	if err := db.SeedPlans(config.DB); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if err := db.SeedPlatformConfig(config.DB); err != nil {
		return fmt.Errorf("seed platform config: %w", err)
	}
	if err := db.SeedSuperAdmin(config.DB, email, password); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	return nil
}
