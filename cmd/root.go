package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vouchers",
	Short: "Hotspot voucher billing microservice",
	Long:  "A billing microservice for hotspot voucher sales: payment initiation, provider callbacks, voucher fulfillment, and maintenance jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
