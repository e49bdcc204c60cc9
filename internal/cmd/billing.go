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

	"github.com/autosysadmin/console-cli/internal/api"
)

func newBillingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Manage the billing subscription",
	}

	cmd.AddCommand(
		newBillingPlansCommand(),
		newBillingSubscriptionCommand(),
		newBillingHistoryCommand(),
		newBillingPayCommand(),
	)

	return cmd
}

func newBillingPlansCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Billing.RefreshPlans(ctx); err != nil {
				return fmt.Errorf("fetch plans: %w", err)
			}
			plans := app.Billing.Plans()

			switch strings.ToLower(format) {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(plans)
			default:
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPRICE\tFEATURES")
				for _, p := range plans {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						p.ID, p.Name, formatPrice(p.PriceCents, p.Currency), strings.Join(p.Features, ", "))
				}
				return w.Flush()
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	return cmd
}

func newBillingSubscriptionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscription",
		Short: "Show the current subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Billing.RefreshCurrentPlan(ctx); err != nil {
				return fmt.Errorf("fetch subscription: %w", err)
			}

			sub := app.Billing.CurrentPlan()
			if sub == nil {
				color.New(color.FgYellow).Println("No active subscription.")
				return nil
			}

			fmt.Printf("plan:    %s\n", sub.PlanID)
			fmt.Printf("status:  %s\n", sub.Status)
			fmt.Printf("renews:  %s\n", sub.RenewalDate.Local().Format("2006-01-02"))
			return nil
		},
	}
}

func newBillingHistoryCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the payment history",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Billing.RefreshPaymentHistory(ctx); err != nil {
				return fmt.Errorf("fetch payment history: %w", err)
			}
			payments := app.Billing.PaymentHistory()

			switch strings.ToLower(format) {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(payments)
			default:
				if len(payments) == 0 {
					fmt.Println("No payments recorded.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DATE\tAMOUNT\tSTATUS\tINVOICE")
				for _, p := range payments {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						p.Date.Local().Format("2006-01-02"),
						formatPrice(p.AmountCents, p.Currency),
						p.Status,
						p.InvoiceRef,
					)
				}
				return w.Flush()
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	return cmd
}

func newBillingPayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pay",
		Short: "Submit a payment for the current subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustApp()

			card, err := promptCardDetails()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			err = app.Billing.SubmitPayment(ctx, card)
			printCurrentAlert(app)
			return err
		},
	}
}

func promptCardDetails() (api.CardDetails, error) {
	var card api.CardDetails
	var err error

	if card.Number, err = promptInput("Card number"); err != nil {
		return card, err
	}
	if card.Name, err = promptInput("Name on card"); err != nil {
		return card, err
	}
	if card.Expiry, err = promptInput("Expiry (MM/YY)"); err != nil {
		return card, err
	}
	if card.CVC, err = promptPassword("CVC"); err != nil {
		return card, err
	}
	return card, nil
}

func formatPrice(cents int64, currency string) string {
	if currency == "" {
		currency = "usd"
	}
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}
