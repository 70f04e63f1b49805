package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"bidwatch-engine/internal/config"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/scrape"
	"bidwatch-engine/internal/scrape/bidnet"
	"bidwatch-engine/internal/scrape/govfeeds"
	"bidwatch-engine/internal/scrape/samgov"
	"bidwatch-engine/internal/scrape/txsmartbuy"
	"bidwatch-engine/internal/scrape/types"
	"bidwatch-engine/internal/secrets"
	"bidwatch-engine/internal/store"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to config.yml (default: bootstrapped copy in data dir)")
		dataDirFlag = flag.String("data-dir", "", "engine data directory (default: $BIDWATCH_DATA_DIR or .)")
		sourcesCSV  = flag.String("sources", "", "comma-separated source ids to run (default: all enabled)")
		concurrency = flag.Int("concurrency", 0, "override run.concurrency")
		timeout     = flag.Duration("timeout", 0, "override per-adapter timeout")
		dryRun      = flag.Bool("dry-run", false, "collect and report without persisting")
	)
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv("BIDWATCH_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
		os.Exit(1)
	}

	userCfgPath := *cfgPath
	if userCfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "config bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		userCfgPath = p
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed (%s): %v\n", userCfgPath, err)
		os.Exit(1)
	}
	cfg, validation := config.NormalizeAndValidate(cfg)

	log, err := logging.New(cfg.App.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, w := range validation.Warnings {
		log.Warn("config warning", "warning", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Error("config error", "error", e)
		}
		os.Exit(1)
	}

	// An external scheduler double-firing must not run two engines over
	// the same data dir.
	runLock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := runLock.TryLock()
	if err != nil {
		log.Fatal("run lock", "err", err)
	}
	if !locked {
		log.Warn("another run holds the lock; exiting")
		return
	}
	defer func() { _ = runLock.Unlock() }()

	client := fetch.NewClient(fetch.Options{
		Timeout:        time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		HostRatePerSec: cfg.Fetch.HostRatePerSec,
		HostBurst:      cfg.Fetch.HostBurst,
		Logger:         log,
	})

	adapters := buildAdapters(cfg, client, log)
	if include := splitCSV(*sourcesCSV); len(include) > 0 {
		adapters = filterAdapters(adapters, include)
	}
	if len(adapters) == 0 {
		log.Error("no adapters selected")
		os.Exit(1)
	}

	persist := cfg.Run.Persist && !*dryRun
	var st store.Upserter
	if persist {
		st, err = openStore(cfg, dataDir)
		if err != nil {
			log.Fatal("store open", "driver", cfg.Storage.Driver, "err", err)
		}
		if st != nil {
			defer st.Close()
		} else {
			persist = false
		}
	}

	runConcurrency := cfg.Run.Concurrency
	if *concurrency > 0 {
		runConcurrency = *concurrency
	}
	adapterTimeout := time.Duration(cfg.Run.AdapterTimeoutSeconds) * time.Second
	if *timeout > 0 {
		adapterTimeout = *timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := scrape.Run(ctx, scrape.Options{
		Adapters:       adapters,
		Concurrency:    runConcurrency,
		AdapterTimeout: adapterTimeout,
		Persist:        persist,
		Store:          st,
		Logger:         log,
	})
	if err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(stats)
}

func buildAdapters(cfg config.Config, client *fetch.Client, log *logging.Logger) []types.Adapter {
	keywords := scrape.Keywords(cfg.Filters.Keywords)

	var out []types.Adapter

	if cfg.Sources.SAMGov.Enabled {
		key, err := secrets.GetAPIKey(cfg.Sources.SAMGov.KeyringAccount, "SAMGOV_API_KEY")
		if err != nil {
			log.Warn("samgov disabled for this run", "err", err)
		} else {
			out = append(out, samgov.New(samgov.Config{
				BaseURL:  cfg.Sources.SAMGov.BaseURL,
				APIKey:   key,
				PageSize: cfg.Sources.SAMGov.PageSize,
				MaxPages: cfg.Sources.SAMGov.MaxPages,
			}, client, keywords, log))
		}
	}
	if cfg.Sources.BidNet.Enabled {
		out = append(out, bidnet.New(bidnet.Config{
			BaseURL: cfg.Sources.BidNet.BaseURL,
			Regions: cfg.Sources.BidNet.Regions,
		}, client, keywords, log))
	}
	if cfg.Sources.TXSmartBuy.Enabled {
		out = append(out, txsmartbuy.New(txsmartbuy.Config{
			BaseURL: cfg.Sources.TXSmartBuy.BaseURL,
		}, client, keywords, log))
	}
	if cfg.Sources.GovFeeds.Enabled {
		out = append(out, govfeeds.New(govfeeds.Config{
			Feeds: cfg.Sources.GovFeeds.Feeds,
		}, client, keywords, log))
	}

	return out
}

func filterAdapters(adapters []types.Adapter, include []string) []types.Adapter {
	want := map[string]bool{}
	for _, s := range include {
		want[strings.ToLower(s)] = true
	}
	var out []types.Adapter
	for _, a := range adapters {
		if want[strings.ToLower(a.Name())] {
			out = append(out, a)
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func openStore(cfg config.Config, dataDir string) (store.Upserter, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, "bidwatch.db")
		}
		return store.OpenSQLite(path)
	case "postgres":
		return store.OpenPostgres(cfg.Storage.PostgresDSN)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
