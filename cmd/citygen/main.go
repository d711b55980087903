package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/config"
	"github.com/lawnchairsociety/citygen/internal/export"
	"github.com/lawnchairsociety/citygen/internal/logger"
	"github.com/lawnchairsociety/citygen/internal/preview"
	"github.com/lawnchairsociety/citygen/internal/store"
)

func main() {
	configFile := flag.String("config", "citygen.yaml", "Path to config YAML file (also read for the logging section)")
	seed := flag.Int64("seed", 0, "Override the configured seed (0 keeps the config value)")
	output := flag.String("out", "", "Write the city to this file (.geojson/.json for GeoJSON, otherwise YAML)")
	save := flag.Bool("save", false, "Save the city to the configured database")
	listRuns := flag.Int("runs", 0, "List the N most recent stored runs and exit")
	serve := flag.Bool("serve", false, "Serve the city on the preview server until interrupted")
	timeout := flag.Duration("timeout", 0, "Abort generation after this long (0 for no limit)")
	flag.Parse()

	logConfig, err := logger.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listRuns > 0 {
		if err := printRuns(ctx, cfg, *listRuns); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	genCtx := ctx
	if *timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	city, err := citygen.Generate(genCtx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating city: %v\n", err)
		os.Exit(1)
	}
	logger.Always("City generated",
		"seed", cfg.Seed,
		"streets", humanize.Comma(int64(len(city.Streets))),
		"blocks", humanize.Comma(int64(city.Stats.Blocks)),
		"parcels", humanize.Comma(int64(city.Stats.Parcels)),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if *output != "" {
		if err := export.SaveFile(*output, city); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
			os.Exit(1)
		}
		logger.Info("City written", "path", *output)
	}

	if *save {
		if err := saveRun(ctx, cfg, city); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *serve {
		srv := preview.New(cfg.Preview)
		if err := srv.Publish(city); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := srv.ListenAndServe(ctx, cfg.Preview.Address); err != nil {
			fmt.Fprintf(os.Stderr, "Preview server error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("Preview server stopped")
	}
}

func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.OpenWithConfig(store.ConfigFrom(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Storage.Driver, err)
	}
	return s, nil
}

func saveRun(ctx context.Context, cfg *config.Config, city *citygen.City) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if prev, err := s.LatestByDigest(ctx, city.Digest); err == nil {
		logger.Info("Identical city already stored", "run", prev.UUID, "saved", humanize.Time(prev.CreatedAt))
	}

	run, err := s.SaveCity(ctx, city)
	if err != nil {
		return fmt.Errorf("save city: %w", err)
	}
	logger.Always("City saved", "run", run.UUID, "driver", cfg.Storage.Driver)
	return nil
}

func printRuns(ctx context.Context, cfg *config.Config, limit int) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  seed %-6d %8s parcels  %6s streets  %s  (%s)\n",
			r.UUID, r.Seed, humanize.Comma(int64(r.Parcels)), humanize.Comma(int64(r.Streets)),
			r.Digest[:min(12, len(r.Digest))], humanize.Time(r.CreatedAt))
	}
	return nil
}
