package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autosysadmin/console-cli/internal/fleet"
)

func newServersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Observe managed servers and dispatch commands",
	}

	cmd.AddCommand(
		newServersListCommand(),
		newServersCommandCommand(),
	)

	return cmd
}

func newServersListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed servers with status and recent metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Fleet.RefreshServers(ctx); err != nil {
				printCurrentAlert(app)
				return err
			}

			agents := app.Fleet.Agents()

			switch strings.ToLower(format) {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(agents)
			default:
				if len(agents) == 0 {
					fmt.Println("No servers registered.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCPU%\tMEM%\tLAST HEARTBEAT")
				for _, a := range agents {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						a.ID,
						a.Name,
						colorStatus(a.Status),
						formatSample(a.Metrics.CPU),
						formatSample(a.Metrics.Memory),
						formatHeartbeat(a.LastHeartbeat),
					)
				}
				return w.Flush()
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	return cmd
}

func newServersCommandCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "command <server-id> <restart|update|backup|status>",
		Short: "Dispatch a one-shot command to a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			kind, err := fleet.ParseCommand(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			err = app.Fleet.DispatchCommand(ctx, args[0], kind)
			printCurrentAlert(app)
			return err
		},
	}
}

func colorStatus(status string) string {
	switch strings.ToLower(status) {
	case "online":
		return color.GreenString(status)
	case "degraded":
		return color.YellowString(status)
	case "offline":
		return color.RedString(status)
	default:
		return status
	}
}

func formatSample(window []float64) string {
	if len(window) == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", window[len(window)-1])
}

func formatHeartbeat(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
