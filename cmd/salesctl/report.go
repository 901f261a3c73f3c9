package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales/remote"
)

func newLeaderboardCmd() *cobra.Command {
	var (
		addr    string
		token   string
		limit   int
		from    string
		to      string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the global leaderboard (owner token required).",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := remote.Dial(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := remote.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			lb, err := client.Leaderboard(remote.WithToken(ctx, token), limit, from, to)
			if err != nil {
				return err
			}
			printLeaderboard(cmd, lb)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("SALES_GRPC_TARGET", "localhost:9090"), "gRPC address")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token")
	cmd.Flags().IntVar(&limit, "limit", sales.DefaultLeaderboardLimit, "Entries to show (1-50)")
	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Call timeout")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func printLeaderboard(cmd *cobra.Command, lb sales.Leaderboard) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tACCOUNT\tNAME\tSALES\tTOTAL")
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s %s\t%d\t%s\n", e.Rank, e.Account.ID, e.Account.FirstName, e.Account.LastName, e.Count, e.Total)
	}
	_ = tw.Flush()
}

func newHealthCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := remote.Dial(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := remote.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			st, err := client.Health(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("SALES_GRPC_TARGET", "localhost:9090"), "gRPC address")
	return cmd
}
