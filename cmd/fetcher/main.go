// Command fetcher pulls bed-space exports from the configured sources
// and ingests them into the history store. It is meant to run from cron
// or a task scheduler; a duplicate snapshot is a normal outcome when the
// upstream feed has not refreshed, so it exits zero.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"bedpulse/internal/config"
	"bedpulse/internal/dataprocessing"
	"bedpulse/internal/infrastructure"
	"bedpulse/internal/services"
	"bedpulse/internal/store"
)

type export struct {
	source string
	name   string
	data   []byte
}

func main() {
	sourcesFlag := flag.String("sources", "", "comma-separated source URLs or file paths (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	sources := cfg.Fetch.Sources
	if *sourcesFlag != "" {
		sources = strings.Split(*sourcesFlag, ",")
	}
	if len(sources) == 0 {
		logger.Error("no sources configured, set fetch.sources or pass -sources")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout)
	defer cancel()

	exports, err := fetchAll(ctx, logger, sources)
	if err != nil {
		logger.Error("fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	parser := dataprocessing.NewParser(logger, cfg.DST.Rule())
	aggregator := dataprocessing.NewAggregator(logger)
	historyStore := store.New(cfg.Paths.HistoryPath(), logger)
	service := services.NewHousingService(parser, aggregator, historyStore, logger)

	// Ingest serially so the append-only store sees one writer and the
	// snapshot order stays deterministic.
	failed := false
	for _, ex := range exports {
		result, err := service.Ingest(ctx, ex.name, ex.data)
		switch {
		case errors.Is(err, services.ErrDuplicateSnapshot):
			logger.Info("snapshot already recorded, skipping",
				slog.String("source", ex.source))
		case err != nil:
			logger.Error("ingestion failed",
				slog.String("source", ex.source),
				slog.String("error", err.Error()))
			failed = true
		default:
			logger.Info("snapshot ingested",
				slog.String("source", ex.source),
				slog.Int("rows", result.RowsImported),
				slog.Int("snapshots", result.SnapshotCount),
				slog.Time("timestamp", result.Timestamp))
		}
	}

	if failed {
		os.Exit(1)
	}
}

// fetchAll retrieves every source concurrently. One failing source fails
// the run; partial histories are worse than a loud cron error.
func fetchAll(ctx context.Context, logger *slog.Logger, sources []string) ([]export, error) {
	exports := make([]export, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			data, err := fetchOne(ctx, source)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", source, err)
			}
			logger.Info("source fetched",
				slog.String("source", source),
				slog.Int("bytes", len(data)))

			exports[i] = export{source: source, name: path.Base(source), data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return exports, nil
}

// fetchOne reads a single source, either over HTTP or from disk.
func fetchOne(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(source)
}
