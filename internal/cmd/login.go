package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate to the console backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			if email == "" {
				var err error
				email, err = promptInput("Email")
				if err != nil {
					return err
				}
			}
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("email is required")
			}

			if password == "" {
				var err error
				password, err = promptPassword("Password")
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			signalChan := make(chan os.Signal, 1)
			signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signalChan)
			go func() {
				select {
				case <-signalChan:
					fmt.Fprintf(os.Stderr, "\nInterrupted, cancelling login...\n")
					cancel()
				case <-ctx.Done():
				}
			}()

			printDebug("attempting login for %s", email)

			if err := app.Session.Login(ctx, email, password); err != nil {
				printDebug("login failed: %v", err)
				return err
			}

			identity := app.Session.Identity()
			color.New(color.FgGreen).Printf("✅ Login successful — welcome, %s\n", identity.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (not recommended to use via flag)")

	return cmd
}
