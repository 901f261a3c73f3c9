package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "salesctl",
		Short: "salesctl is the operator tool of the sales evaluation API.",
		Long: `salesctl mints development tokens and queries the gRPC report
service of a running sales evaluation API.`,
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(), newLeaderboardCmd(), newHealthCmd())
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
