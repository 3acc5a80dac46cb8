// Command kanari runs one brand-mention collection pass and writes the
// consolidated table as CSV. The dashboard that renders the table lives
// elsewhere; this binary is only the pipeline plus glue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/kanari/internal/collect"
	"github.com/FranksOps/kanari/internal/config"
	"github.com/FranksOps/kanari/internal/metrics"
	"github.com/FranksOps/kanari/internal/pipeline"
	"github.com/FranksOps/kanari/internal/report"
	"github.com/FranksOps/kanari/internal/search"
	"github.com/FranksOps/kanari/internal/storage"
	"github.com/FranksOps/kanari/internal/storage/csvbackend"
	"github.com/FranksOps/kanari/internal/storage/jsonbackend"
	"github.com/FranksOps/kanari/internal/storage/postgres"
	"github.com/FranksOps/kanari/internal/storage/sqlite"
	"github.com/FranksOps/kanari/pkg/ratelimit"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kanari:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "kanari.yaml", "path to the YAML config file")
		outPath    = flag.String("out", "", "CSV output path (default stdout)")
		envPath    = flag.String("env", ".env", "dotenv file holding the API credentials")
		verbose    = flag.Bool("progress", false, "log pagination progress")
	)
	flag.Parse()

	// Credentials come from the environment, optionally seeded from a
	// dotenv file. A missing file is fine; missing credentials are not.
	_ = godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort)
		defer srv.Stop(context.Background())
	}

	limiter := ratelimit.NewLimiter(cfg.RequestInterval, cfg.RequestJitter)
	defer limiter.Stop()

	provider, err := search.NewClient(search.ClientConfig{
		ClientID:     os.Getenv("NAVER_CLIENT_ID"),
		ClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),
		Timeout:      cfg.Timeout,
		Limiter:      limiter,
	})
	if err != nil {
		return err
	}

	archive, err := newArchive(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	var observer collect.Observer
	if *verbose {
		observer = func(category search.Category, queryText string, offset int) {
			logger.Info("fetching", "category", category, "query", queryText, "offset", offset)
		}
	}

	p := &pipeline.Pipeline{
		Provider: provider,
		Archive:  archive,
		Observer: observer,
		Logger:   logger,
	}

	result, err := p.Run(ctx, pipeline.Config{
		Keywords:       cfg.Keywords,
		Excluded:       cfg.Excluded,
		Categories:     cfg.SearchCategories(),
		Display:        cfg.PageSize,
		MaxPages:       cfg.MaxPages,
		LookbackDays:   cfg.LookbackDays,
		CleanMode:      cfg.CleanMode,
		UnifiedBrand:   cfg.UnifiedBrand,
		AllowedSources: cfg.AllowedSources,
		Concurrency:    cfg.Concurrency,
	})
	if err != nil {
		return err
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := report.WriteCSV(out, result.Records); err != nil {
		return err
	}

	summary := report.GenerateSummary(result.Records, result.StartedAt)
	return report.WriteText(os.Stderr, summary, result.Warnings)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "csv":
		return csvbackend.New(cfg.DSN)
	case "json":
		return jsonbackend.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
