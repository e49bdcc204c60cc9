package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/autosysadmin/console-cli/internal/alert"
	"github.com/autosysadmin/console-cli/internal/api"
)

func newSettingsCommand() *cobra.Command {
	var (
		theme         string
		notifications bool
		twoFactor     bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Update dashboard preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			settings := api.UserSettings{
				Theme:         theme,
				Notifications: notifications,
				TwoFactor:     twoFactor,
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			updated, err := app.API.UpdateSettings(ctx, settings)
			if err != nil {
				app.Alerts.Publish("Failed to update settings", alert.SeverityError)
				printCurrentAlert(app)
				return err
			}

			// Replace the cached identity's preferences wholesale.
			app.Session.SetPreferences(updated)
			app.Alerts.Publish("Settings updated successfully", alert.SeveritySuccess)
			printCurrentAlert(app)
			return nil
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "light", "dashboard theme (light|dark)")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "enable email notifications")
	cmd.Flags().BoolVar(&twoFactor, "two-factor", false, "enable two-factor authentication")

	return cmd
}
