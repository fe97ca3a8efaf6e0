package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "splpay",
	Short: "SPL-token payment request and confirmation service",
	Long:  "splpay builds SPL-token payment requests, relays signed transfers, and reconciles orders against on-chain settlement.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml (default: working directory)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
