package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autosysadmin/console-cli/internal/session"
)

func newWhoamiCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			if app.Session.Phase() != session.PhaseAuthenticated {
				color.New(color.FgYellow).Println("Not logged in. Run `console login` to authenticate.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			// The restored identity is a local placeholder; fetch the real
			// profile so the output is trustworthy.
			user, err := app.API.Me(ctx)
			if err != nil {
				return fmt.Errorf("fetch profile: %w", err)
			}
			app.Session.SetPreferences(user.Settings)

			switch strings.ToLower(format) {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(user)
			default:
				color.New(color.FgGreen).Printf("👤 %s\n", user.Email)
				fmt.Printf("  id:    %s\n", user.ID)
				fmt.Printf("  roles: %s\n", strings.Join(user.Roles, ", "))
				if user.Settings != nil {
					fmt.Printf("  theme: %s\n", user.Settings.Theme)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	return cmd
}
