package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/env"
)

var Version = "dev"

func main() {
	env.SetupEnvFile()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operator tooling for the MoviAPI credit ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(webhooksCmd())
	rootCmd.AddCommand(convergeCmd())

	return rootCmd
}
