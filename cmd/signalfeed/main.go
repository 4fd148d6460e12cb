package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/signalfeed/internal/app"
	"github.com/deusflow/signalfeed/internal/config"
	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/logger"
)

var (
	rotateKind      string
	rotateCount     int
	reclassifyAll   bool
	reclassifyLimit int
	reclassifyKind  string
	dryRun          bool
)

var rootCmd = &cobra.Command{
	Use:           "signalfeed",
	Short:         "Curate industry news and market metrics for sales teams",
	Long:          `Fetches configured feeds, keeps relevant and novel items, enriches them with talking points and rotates a small selection for display and email.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass over all feeds",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		sum, err := a.RunIngest(ctx)
		if err != nil {
			return err
		}
		t := sum.Totals
		logger.Info("ingestion finished", "fetched", t.Fetched, "ingested", t.Ingested,
			"duplicates", t.Duplicates, "irrelevant", t.Irrelevant, "failed", t.Failed)
		return nil
	}),
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Select and publish a new set of articles or metrics",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		kind, err := content.ParseKind(rotateKind)
		if err != nil {
			return err
		}
		res, err := a.Rotate(ctx, kind, rotateCount)
		if err != nil {
			return err
		}
		for _, r := range res.Published {
			logger.Info("published", "id", r.ID, "vertical", r.Vertical, "score", r.ImportanceScore, "title", r.Title)
		}
		return nil
	}),
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive records whose publication window has ended",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		n, err := a.ArchiveExpired(ctx)
		if err != nil {
			return err
		}
		logger.Info("archived expired records", "count", n)
		return nil
	}),
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Ask the model to place records the keyword classifier left as Other",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		var kind content.Kind
		if reclassifyKind != "" {
			k, err := content.ParseKind(reclassifyKind)
			if err != nil {
				return err
			}
			kind = k
		}
		rep, err := a.Reclassify(ctx, app.ReclassifyOptions{
			Kind:   kind,
			All:    reclassifyAll,
			Limit:  reclassifyLimit,
			DryRun: dryRun,
		})
		logger.Info("reclassification finished", "checked", rep.Checked, "changed", rep.Changed, "unresolved", rep.Unresolved)
		return err
	}),
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old archived records and duplicates",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		rep, err := a.Cleanup(ctx, dryRun)
		logger.Info("cleanup finished", "expired", rep.Expired, "duplicates", rep.Duplicates, "dry_run", rep.DryRun)
		return err
	}),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		return a.Migrate(ctx)
	}),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled jobs and the monitoring server",
	RunE: withApp(func(ctx context.Context, a *app.App) error {
		return a.Serve(ctx)
	}),
}

// withApp loads config, builds the app and cancels on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log := logger.Init(cfg.Debug, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}
}

func init() {
	rotateCmd.Flags().StringVar(&rotateKind, "kind", "article", "article or metric")
	rotateCmd.Flags().IntVar(&rotateCount, "count", 0, "number of records to select (0 = configured default)")

	reclassifyCmd.Flags().BoolVar(&reclassifyAll, "all", false, "reclassify every record, not only Other")
	reclassifyCmd.Flags().IntVar(&reclassifyLimit, "limit", 0, "maximum records to check (0 = no limit)")
	reclassifyCmd.Flags().StringVar(&reclassifyKind, "kind", "", "restrict to article or metric")
	reclassifyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without saving them")

	cleanupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted")

	rootCmd.AddCommand(runCmd, rotateCmd, archiveCmd, reclassifyCmd, cleanupCmd, migrateCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
