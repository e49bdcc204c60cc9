package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autosysadmin/console-cli/internal/session"
)

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Purge the local credential and return to anonymous",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			if app.Session.Phase() != session.PhaseAuthenticated {
				color.New(color.FgYellow).Println("No active session. Run `console login` to authenticate.")
				return nil
			}

			// Purely local: the bearer token is discarded, not revoked
			// server-side.
			app.Session.Logout()

			color.New(color.FgGreen).Println("🔒 Logged out. Local credentials destroyed.")
			return nil
		},
	}
}
