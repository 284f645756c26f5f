package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendpoints/internal/cli"
	applog "spendpoints/internal/log"
	"spendpoints/internal/services"
	"spendpoints/internal/worker"
)

func newHousesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "houses",
		Short: "List houses by points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			houses, err := services.NewReportService(repo, services.Caches{}).Standings(commandContext(cmd))
			if err != nil {
				return err
			}
			if len(houses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No houses yet.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "RANK\tHOUSE\tPOINTS\tMEMBERS")
			for i, h := range houses {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, h.Name, h.Points, h.MemberCount)
			}
			return tw.Flush()
		},
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a house",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			h, err := services.NewAccountService(repo, services.Caches{}).CreateHouse(commandContext(cmd), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created house %d %s\n", h.ID, h.Name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "House name")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the house standings to the leaderboard sheet once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			board, err := cli.NewLeaderboard(ctx, opts.cfg, opts.logger().WithComponent(applog.ComponentSheets))
			if err != nil {
				return err
			}
			w := worker.NewLeaderboardWorker(repo, board, worker.DefaultConfig())
			if err := w.Export(ctx); err != nil {
				return err
			}
			standings, err := board.ReadStandings(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d houses\n", len(standings))
			return nil
		},
	}
}
