package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"brandevo/internal/config"
	"brandevo/internal/stats"
)

func newParametersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parameters",
		Short: "Print the vector currently served to production",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			params, err := client.Parameters()
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "generation=%d ref=%s status=%s\n", params.GenerationID, params.Ref, params.Status)
			w := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			for _, dim := range client.Config().Evolution.Dimensions {
				fmt.Fprintf(w, "%s\t%.4f\t[%g, %g]\n", dim.Name, params.Named[dim.Name], dim.Min, dim.Max)
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generations, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			generations, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tBEST\tMEAN\tSCORED\tVIEWS\tSTALLS\tCREATED")
			for _, g := range generations {
				best, mean, scored, views := "-", "-", "-", "-"
				if d := g.Diagnostics; d != nil {
					best = strconv.FormatFloat(d.BestFitness, 'f', 4, 64)
					mean = strconv.FormatFloat(d.MeanFitness, 'f', 4, 64)
					scored = fmt.Sprintf("%d/%d", d.ScoredCount, len(g.Population))
					views = humanize.Comma(d.TotalViews)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					g.ID, g.Status, best, mean, scored, views, g.StallCount, humanize.Time(g.CreatedAt))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of generations to show (0 for all)")
	return cmd
}

func newGenerationCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generation <id>",
		Short: "Print one generation with its scored population",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid generation id %q", args[0])
			}
			client, _, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			g, err := client.Generation(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "generation=%d status=%s activated=%s stalls=%d trend=%t\n",
				g.ID, g.Status, g.ActivatedRef, g.StallCount, g.TrendConditioned)
			if g.SuccessorID != nil {
				fmt.Fprintf(opts.out, "successor=%d elites=%v\n", *g.SuccessorID, g.EliteIndices)
			}
			w := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tSTATUS\tFITNESS\tVIEWS\tVECTOR")
			for _, item := range g.Population {
				views := int64(0)
				if item.Engagement != nil {
					views = item.Engagement.Views
				}
				fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\t%v\n", item.Index, item.Status, item.Fitness, humanize.Comma(views), item.Vector.Values())
			}
			return w.Flush()
		},
	}
}

func newValidateConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration without starting anything",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			e := cfg.Evolution
			fmt.Fprintf(opts.out, "ok population=%d elites=%d dims=%d store=%s trend=%t interval=%s\n",
				e.PopulationSize, e.EliteCount, len(e.Dimensions), cfg.Store.Kind, cfg.Trend.Enabled, e.Interval)
			return nil
		},
	}
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the generation log and fitness series to a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			generations, err := client.History(cmd.Context(), 0)
			if err != nil {
				return err
			}
			dir, err := stats.WriteExport(outDir, generations)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "exported %d generations to %s\n", len(generations), dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "exports", "output directory")
	return cmd
}
