package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pbaille/barotrace/internal/config"
	"github.com/pbaille/barotrace/internal/domain"
	"github.com/pbaille/barotrace/internal/dtw"
	"github.com/pbaille/barotrace/internal/groundtruth"
	"github.com/pbaille/barotrace/internal/importer"
	"github.com/pbaille/barotrace/internal/logging"
	"github.com/pbaille/barotrace/internal/normalize"
	"github.com/pbaille/barotrace/internal/pipeline"
	"github.com/pbaille/barotrace/internal/plot"
	"github.com/pbaille/barotrace/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     config.Config
	logger  *zap.Logger
	verbose bool
	tz      string
)

func main() {
	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "barotrace",
		Short:        "Bucket barometer traces by vehicle label and plot them against ground truth",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("load time zone: %w", err)
				}
				cfg.Location = loc
			}
			logger, err = logging.New(verbose)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "run catalog database path")
	rootCmd.PersistentFlags().IntVarP(&cfg.Jobs, "jobs", "j", cfg.Jobs, "files processed concurrently per pass")
	rootCmd.PersistentFlags().StringVar(&tz, "tz", "", "time zone used to derive dates (default local)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(groundTruthCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(plotCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(labelsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Catalog)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	return store.New(cfg.Catalog)
}

// recorded runs fn inside a catalog run named after cmd
func recorded(cmd *cobra.Command, args []string, fn func(s *store.Store, run *domain.Run) error) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.StartRun(cmd.Name(), args)
	if err != nil {
		return err
	}

	runErr := fn(s, run)
	if err := s.FinishRun(run.ID, runErr); err != nil {
		logger.Warn("could not finish run", zap.String("run", run.ID), zap.Error(err))
	}
	return runErr
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [src] [dest]",
		Short: "Copy raw sensor dumps from the removable drive",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := config.Arg(args, 0, cfg.SourceDir)
			dest := config.Arg(args, 1, cfg.DataDir)

			return recorded(cmd, []string{src, dest}, func(_ *store.Store, _ *domain.Run) error {
				sum, err := importer.New(logger).Import(cmd.Context(), src, dest)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d dates (%d sensor files, %d merged outputs)\n", sum.Dates, sum.Files, sum.Merged)
				return nil
			})
		},
	}
}

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [dataDir] [outputDir]",
		Short: "Bucket barometer readings by vehicle label and date",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir := config.Arg(args, 0, cfg.DataDir)
			outputDir := config.Arg(args, 1, cfg.OutputDir)

			return recorded(cmd, []string{dataDir, outputDir}, func(s *store.Store, run *domain.Run) error {
				m := pipeline.NewMerger(cfg.Jobs, cfg.Location, logger)
				res, err := m.Merge(cmd.Context(), dataDir, outputDir)
				if err != nil {
					return err
				}
				if err := s.RecordBuckets(run.ID, res.Written); err != nil {
					return err
				}

				for _, label := range res.Buckets.Labels() {
					fmt.Printf("You travelled in %s on:\n", label)
					for _, date := range res.Buckets.Dates(label) {
						fmt.Printf("  %s (%d readings)\n", date, len(res.Buckets.Lines(label, date)))
					}
				}
				return nil
			})
		},
	}
}

func groundTruthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groundtruth [outputDir] [dataDir]",
		Short: "Pick the shortest trace with a location log as each label's ground truth",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := config.Arg(args, 0, cfg.OutputDir)
			dataDir := config.Arg(args, 1, cfg.DataDir)

			return recorded(cmd, []string{outputDir, dataDir}, func(s *store.Store, run *domain.Run) error {
				sel := groundtruth.New(groundtruth.CompanionTree{Root: dataDir}, logger)
				marks, err := sel.Select(cmd.Context(), outputDir)
				if err != nil {
					return err
				}

				labels := make([]string, 0, len(marks))
				for label := range marks {
					labels = append(labels, label)
				}
				sort.Strings(labels)

				for _, label := range labels {
					m := marks[label]
					if err := s.RecordGroundTruth(run.ID, m); err != nil {
						return err
					}
					fmt.Printf("%-24s %s  %.1f min\n", label, m.Date, float64(m.ElapsedMs)/60000)
				}
				return nil
			})
		},
	}
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [outputDir]",
		Short: "Rewrite trace timestamps relative to their first reading",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := config.Arg(args, 0, cfg.OutputDir)

			return recorded(cmd, []string{outputDir}, func(_ *store.Store, _ *domain.Run) error {
				n, err := normalize.Tree(cmd.Context(), outputDir, cfg.Jobs, logger)
				if err != nil {
					return err
				}
				fmt.Printf("Normalized %d files\n", n)
				return nil
			})
		},
	}
}

func plotCmd() *cobra.Command {
	var (
		renderer string
		template string
		params   = dtw.DefaultParams
	)

	cmd := &cobra.Command{
		Use:   "plot [outputDir] [plotsDir]",
		Short: "Render every trace against its label's ground truth",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := config.Arg(args, 0, cfg.OutputDir)
			plotsDir := config.Arg(args, 1, cfg.PlotsDir)

			var r plot.Renderer
			if renderer != "" {
				fields := strings.Fields(renderer)
				r = plot.ExecRenderer{Command: fields[0], Args: fields[1:]}
			} else {
				g := plot.NewGnuplotRenderer(logger)
				g.Params = params
				if template != "" {
					f, err := os.Open(template)
					if err != nil {
						return fmt.Errorf("open template: %w", err)
					}
					g.Template, err = dtw.ParseTemplate(f)
					f.Close()
					if err != nil {
						return err
					}
				}
				r = g
			}

			return recorded(cmd, []string{outputDir, plotsDir}, func(_ *store.Store, _ *domain.Run) error {
				done, err := plot.NewPlotter(r, cfg.Jobs, logger).Run(cmd.Context(), outputDir, plotsDir)
				if err != nil {
					return err
				}
				fmt.Printf("Rendered %d plots, gallery at %s\n", len(done), filepath.Join(plotsDir, plot.GalleryFile))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&renderer, "renderer", "", "external command called with <groundTruth> <trace> <image>")
	cmd.Flags().StringVar(&template, "template", "", "gnuplot template with #DTW-ARROW-START/#DTW-ARROW-END/#DTW-END markers")
	cmd.Flags().IntVar(&params.Spacing, "spacing", params.Spacing, "samples between warp arrows")
	cmd.Flags().Float64Var(&params.HeightOffset, "offset", params.HeightOffset, "vertical offset of the ground truth curve")
	cmd.Flags().IntVar(&params.Window, "window", params.Window, "warp window constraint")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs yet. Start with 'barotrace import'.")
				return nil
			}

			for _, r := range runs {
				fmt.Printf("%s  %-12s %s  %s\n", r.ID[:8], r.Command, r.StartedAt.Format("2006-01-02 15:04:05"), status(r))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.FindRun(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:      %s\n", run.ID)
			fmt.Printf("Command: %s %s\n", run.Command, run.Args)
			fmt.Printf("Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Status:  %s\n", status(*run))

			if len(run.Buckets) > 0 {
				fmt.Printf("\nBuckets:\n")
				for _, b := range run.Buckets {
					fmt.Printf("  %-24s %-10s %6d lines\n", b.Label, b.Date, b.Lines)
				}
			}
			if len(run.GroundTruths) > 0 {
				fmt.Printf("\nGround truths:\n")
				for _, g := range run.GroundTruths {
					fmt.Printf("  %-24s %s\n", g.Label, g.Date)
				}
			}

			return nil
		},
	}
}

func labelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels bucketed by the latest merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			labels, err := s.ListLabels()
			if err != nil {
				return err
			}

			if len(labels) == 0 {
				fmt.Println("No labels yet. Run 'barotrace merge' first.")
				return nil
			}

			for _, l := range labels {
				fmt.Printf("%-24s %3d dates %8d readings\n", l.Label, l.Dates, l.Lines)
			}

			return nil
		},
	}
}

func status(r domain.Run) string {
	switch {
	case r.Error != "":
		return "failed: " + r.Error
	case r.FinishedAt == nil:
		return "running"
	}
	return "ok in " + r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
