package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spendpoints/internal/core"
	"spendpoints/internal/services"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		history int
		period  string
	)
	cmd := &cobra.Command{
		Use:   "report <userID>",
		Short: "Show a user's points and category progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			var p core.Period
			if period != "" {
				if p, err = core.ParsePeriod(period); err != nil {
					return err
				}
			}

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := commandContext(cmd)
			reports := services.NewReportService(repo, services.Caches{})
			o, err := reports.Overview(ctx, userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d points", o.User.Username, o.User.Points)
			if o.House != nil {
				fmt.Fprintf(out, " (house %s, %d points)", o.House.Name, o.House.Points)
			}
			fmt.Fprintln(out)

			tw := newTable(out)
			fmt.Fprintln(tw, "CATEGORY\tPERIOD\tSPENT\tLIMIT\tPROGRESS\tOVER")
			for _, c := range o.Categories {
				if p != "" {
					if c, err = reports.Progress(ctx, userID, c.CategoryID, p); err != nil {
						return err
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%t\n",
					c.Name, c.Period,
					core.FormatAmount(c.Spent), core.FormatAmount(c.Limit),
					c.Progress.StringFixed(2), c.OverLimit)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if history <= 0 {
				return nil
			}
			for _, c := range o.Categories {
				points, err := reports.History(ctx, userID, c.CategoryID, p, history)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s\n", c.Name)
				tw := newTable(out)
				fmt.Fprintln(tw, "FROM\tTO\tSPENT\tLIMIT\tPROGRESS")
				for _, h := range points {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\n",
						core.DateOf(h.Start), core.DateOf(h.End),
						core.FormatAmount(h.Spent), core.FormatAmount(h.Limit),
						h.Progress.StringFixed(2))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Measure every category in this period instead of its own")
	cmd.Flags().IntVar(&history, "history", 0, "Also print the last N windows per category")
	return cmd
}
