package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ordersctl",
		Short:         "Operator tools for the restaurant order service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(smsTestCmd())
	rootCmd.AddCommand(paymentStatusCmd())
	rootCmd.AddCommand(syncPaymentCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(adminTokenCmd())
	return rootCmd
}
