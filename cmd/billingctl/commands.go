package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database"
	"github.com/ManuelReschke/MoviAPI/pkg/convergence"
)

const defaultListLimit = 20

// openService connects to the ledger database without any cache or
// processor. Reads always hit the database.
func openService() (*billing.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	catalog, err := billing.LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database, false)
	if err != nil {
		return nil, err
	}
	return billing.NewServiceFromDB(db, billing.Options{Catalog: catalog, Billing: cfg.Billing}), nil
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the credit packs offered at checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := billing.LoadCatalog(cfg)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
}

func printCatalog(out io.Writer, catalog *billing.Catalog) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tCREDITS\tPRICE\tPER MINUTE\tPRICE ID")
	for _, p := range catalog.Products() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			p.SKU, p.Name, p.Credits, p.TotalPrice.StringFixed(2), p.PricePerUnit.StringFixed(2), p.PriceID)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\nUnknown prices grant %d credits.\n", catalog.FallbackCredits())
}

func balanceCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the credit balance of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			balance, err := svc.GetBalance(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d credits\n", userID, balance)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func ordersCmd() *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List fulfilled checkout sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			var orders []models.StripeOrder
			if userID != "" {
				orders, err = svc.ListOrders(cmd.Context(), userID, limit)
			} else {
				orders, err = svc.ListRecentOrders(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			printOrders(cmd.OutOrStdout(), orders)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Only orders of this user")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "Maximum rows")
	return cmd
}

func printOrders(out io.Writer, orders []models.StripeOrder) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSESSION\tUSER\tCREDITS\tAMOUNT\tDRIFT")
	for _, o := range orders {
		drift := ""
		if o.CatalogDrift {
			drift = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d %s\t%s\n",
			o.CreatedAt.Format(time.RFC3339), o.CheckoutSessionID, o.UserID,
			o.CreditsGranted, o.AmountTotal, o.Currency, drift)
	}
	_ = w.Flush()
}

func webhooksCmd() *cobra.Command {
	var (
		limit      int
		failedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "List recorded webhook deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			events, err := svc.ListWebhookEvents(cmd.Context(), limit, failedOnly)
			if err != nil {
				return err
			}
			printWebhookEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "Maximum rows")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only events whose processing failed")
	return cmd
}

func printWebhookEvents(out io.Writer, events []models.BillingWebhookEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No webhook events.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tEVENT\tTYPE\tOBJECT\tOUTCOME\tDELIVERIES\tERROR")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.ProviderEventID, e.EventType, e.ObjectID,
			e.Outcome, e.Deliveries, e.ProcessingError)
	}
	_ = w.Flush()
}

// convergeCmd runs the client-side balance convergence against a live
// deployment, which is handy when debugging slow webhook deliveries.
func convergeCmd() *cobra.Command {
	var (
		baseURL   string
		apiKey    string
		returnURL string
		lastKnown int64
		maxWait   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Poll the account balance the way a client does after checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			marker, cleaned, err := convergence.ParseReturnURL(returnURL)
			if err != nil {
				return err
			}
			if marker == convergence.MarkerNone {
				return errors.New("return url carries no payment marker")
			}
			fetcher := &convergence.HTTPBalanceFetcher{BaseURL: baseURL, APIKey: apiKey}
			return runConvergence(cmd.Context(), cmd.OutOrStdout(), fetcher, marker, cleaned, lastKnown, maxWait)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:4000", "API base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key of the account")
	cmd.Flags().StringVar(&returnURL, "return-url", "", "URL the checkout redirected to")
	cmd.Flags().Int64Var(&lastKnown, "last-known", 0, "Balance shown before checkout")
	cmd.Flags().DurationVar(&maxWait, "max-wait", convergence.DefaultConfig().MaxWait, "Give up after this long")
	_ = cmd.MarkFlagRequired("api-key")
	_ = cmd.MarkFlagRequired("return-url")
	return cmd
}

func runConvergence(ctx context.Context, out io.Writer, fetcher convergence.BalanceFetcher, marker convergence.Marker, cleaned string, lastKnown int64, maxWait time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := convergence.DefaultConfig()
	cfg.MaxWait = maxWait

	fmt.Fprintf(out, "marker=%s url=%s\n", marker, cleaned)
	c := convergence.New(fetcher, cfg, convergence.WithObserver(func(s convergence.Snapshot) {
		fmt.Fprintf(out, "state=%s balance=%d fetches=%d message=%q\n", s.State, s.Balance, s.Fetches, s.Message)
	}))
	c.HandleReturn(marker, lastKnown)
	defer c.Stop()

	if err := c.Wait(ctx); err != nil {
		return err
	}
	if c.Snapshot().State == convergence.StateTimedOut {
		return errors.New("balance did not change before the deadline")
	}
	return nil
}
