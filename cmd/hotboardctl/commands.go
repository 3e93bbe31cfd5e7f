package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/loadtest"
)

func recordCmd(g *globalFlags) *cobra.Command {
	var ev loadtest.Event

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Submit one engagement event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ev.TS != "" {
				if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
					return fmt.Errorf("--ts must be RFC3339: %w", err)
				}
			}
			ack, err := loadtest.NewClient(g.url, g.timeout).PostEvent(cmd.Context(), ev)
			if err != nil {
				return err //nolint:wrapcheck // client errors carry method and path
			}
			return writeJSON(cmd.OutOrStdout(), ack)
		},
	}

	cmd.Flags().StringVar(&ev.EntityID, "entity", "", "entity id (required)")
	cmd.Flags().StringVar(&ev.Action, "action", string(model.ActionHit), "action: hit or reply")
	cmd.Flags().StringVar(&ev.EventID, "event-id", "", "idempotency key (generated by the server when empty)")
	cmd.Flags().StringVar(&ev.TS, "ts", "", "event time, RFC3339 (server clock when empty)")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func recomputeCmd(g *globalFlags) *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:       "recompute daily|weekly",
		Short:     "Rescore a leaderboard",
		Long:      "Rescore a leaderboard. Meant to be run by an external scheduler such as cron.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{model.Daily.String(), model.Weekly.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := model.ParseGranularity(args[0])
			if err != nil {
				return err //nolint:wrapcheck // names the bad value
			}
			var now time.Time
			if nowFlag != "" {
				if now, err = time.Parse(time.RFC3339, nowFlag); err != nil {
					return fmt.Errorf("--now must be RFC3339: %w", err)
				}
			}
			report, err := loadtest.NewClient(g.url, g.timeout).Recompute(cmd.Context(), board.String(), now)
			if err != nil {
				return err //nolint:wrapcheck // client errors carry method and path
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "reference instant, RFC3339 (server clock when empty)")
	return cmd
}

func topCmd(g *globalFlags) *cobra.Command {
	var (
		page       int
		size       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "top daily|weekly",
		Short: "Show one page of a leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := model.ParseGranularity(args[0])
			if err != nil {
				return err //nolint:wrapcheck // names the bad value
			}
			out, err := loadtest.NewClient(g.url, g.timeout).Leaderboard(cmd.Context(), board.String(), page, size)
			if err != nil {
				return err //nolint:wrapcheck // client errors carry method and path
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSCORE\tID\tTITLE")
			for _, row := range out.Entities {
				fmt.Fprintf(tw, "%d\t%.0f\t%s\t%s\n", row.Rank, row.Score, row.Entity.ID, row.Entity.Title)
			}
			fmt.Fprintf(tw, "\npage %d of %d\n", out.Page, out.TotalPages)
			return tw.Flush() //nolint:wrapcheck // writer errors are descriptive
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, 1-based")
	cmd.Flags().IntVar(&size, "size", 20, "rows per page")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v) //nolint:wrapcheck // encoder errors are descriptive
}
