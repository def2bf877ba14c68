package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch-api/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boxctl",
		Short: "Operator tools for the BoxWatch donation box tracker",
		Long: `boxctl runs one-off operator tasks against the configured backend:
reconciling suggestions into boxes, rotating the shared passcode, managing
volunteers and minting development tokens.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.GapfillCmd())
	rootCmd.AddCommand(cli.SetPasscodeCmd())
	rootCmd.AddCommand(cli.GrantCmd())
	rootCmd.AddCommand(cli.RevokeCmd())
	rootCmd.AddCommand(cli.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
