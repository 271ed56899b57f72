package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	var (
		path   string
		recent int
		prune  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dispatched request statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.tracker == nil {
				return errors.New("dispatch tracking is disabled in config")
			}
			ctx := cmd.Context()

			if prune > 0 {
				n, err := a.tracker.Prune(ctx, time.Now().UTC().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Printf("Pruned %d records.\n", n)
				return nil
			}

			// Recent dispatches view
			if recent > 0 {
				records, err := a.tracker.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No requests recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMETHOD\tPATH\tOUTCOME\tCODE\tLATENCY")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dms\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.Method, r.Path, r.Outcome, r.Code, r.LatencyMs)
				}
				return w.Flush()
			}

			// Default: summary
			summaries, err := a.tracker.Summary(ctx, path)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No requests recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tOUTCOME\tREQUESTS\tAVG LATENCY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0fms\n",
					s.Method, s.Path, s.Outcome, s.RequestCount, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "filter by request path")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent requests")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete records older than this and exit")
	return cmd
}
