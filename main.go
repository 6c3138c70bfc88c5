package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"menu-companion/api"
	"menu-companion/bot"
	"menu-companion/cache"
	"menu-companion/config"
	"menu-companion/db"
	"menu-companion/docstore"
	"menu-companion/lang"
	"menu-companion/logger"
	"menu-companion/metric"
	"menu-companion/prefs"
	"menu-companion/services"
	"menu-companion/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: menu-companion [command]

commands:
  serve                         run the Telegram bot and HTTP API (default)
  migrate                       apply database migrations
  seed <file.json> [images-dir] load categories and meals, optionally upload category images
  export <file.json|-> [lang]   write the sorted menu as JSON`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	var args []string
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "serve":
		err = serve(ctx, cfg)
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "seed":
		err = runSeed(ctx, cfg, args)
	case "export":
		err = runExport(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("failed")
	}
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()
	return applyMigrations(ctx, true)
}

// initPostgres opens the pool when a component needs it and applies
// migrations when AUTO_MIGRATE is set.
func initPostgres(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.NeedsPostgres() {
		return func() {}, nil
	}
	if err := db.Init(ctx, cfg.DB); err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(ctx, false); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db.Close, nil
}

func openDocStore(ctx context.Context, cfg *config.Config) (docstore.ReadWriter, func(), error) {
	if cfg.DocStore == config.DocStoreMongo {
		m, err := docstore.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo: %w", err)
		}
		return m, func() { _ = m.Close(context.Background()) }, nil
	}
	return docstore.NewPostgres(db.Pool), func() {}, nil
}

func openPrefs(ctx context.Context, cfg *config.Config) (prefs.Store, func(), error) {
	if cfg.Prefs.Driver == config.PrefsSQLite {
		s, err := prefs.OpenSQLite(ctx, cfg.Prefs.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return prefs.NewPostgres(db.Pool), func() {}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Telegram.Token == "" && cfg.HTTP.Addr == "" {
		return fmt.Errorf("nothing to serve: set TOKEN and/or HTTP_ADDR")
	}

	closeDB, err := initPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	store, closeStore, err := openDocStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	prefStore, closePrefs, err := openPrefs(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePrefs()

	objects, err := storage.NewGCS(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	dir, err := cache.New(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metric.NewSet(reg)

	sessions := services.NewMenuSessions(store, metrics)
	images := services.NewImageService(objects, dir,
		services.WithMaxBytes(cfg.Cache.ImageMaxBytes),
		services.WithFetchTimeout(cfg.Cache.FetchTimeout),
		services.WithPrefetchLimit(cfg.Cache.Prefetch),
		services.WithImageMetrics(metrics),
	)
	restaurant := services.NewRestaurant(cfg.Restaurant)
	defaultLang := lang.FromLocale(cfg.Locale)

	log.Info().
		Str("docstore", cfg.DocStore).
		Str("prefs", cfg.Prefs.Driver).
		Str("cache", dir.Root()).
		Str("lang", defaultLang).
		Msg("starting")

	// Warm the default session and its category images.
	go func() {
		cats, err := sessions.For(defaultLang).LoadCategories(ctx)
		if err != nil {
			return
		}
		if err := images.Prefetch(ctx, cats); err != nil {
			log.Debug().Err(err).Msg("prefetch stopped")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTP.Addr != "" {
		srv := api.New(sessions, images, restaurant, reg, defaultLang)
		g.Go(func() error { return srv.Run(gctx, cfg.HTTP.Addr) })
	}
	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg, bot.Deps{
			Sessions:   sessions,
			Images:     images,
			Prefs:      prefStore,
			Restaurant: restaurant,
			Locale:     cfg.Locale,
		})
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		g.Go(func() error {
			b.Start(gctx)
			return nil
		})
	}
	return g.Wait()
}

func runSeed(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("seed: missing file\n%s", usage)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	cats, err := services.ReadSeedFile(f)
	f.Close()
	if err != nil {
		return err
	}

	closeDB, err := initPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	store, closeStore, err := openDocStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := services.Seed(ctx, store, cats, nil)
	if err != nil {
		return err
	}
	log.Info().Int("categories", res.Categories).Int("meals", res.Meals).Int("skipped", res.Skipped).Msg("seeded")

	if len(args) > 1 {
		up, err := storage.NewGCS(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		n, err := services.UploadCategoryImages(ctx, up, args[1], cats)
		if err != nil {
			return err
		}
		log.Info().Int("images", n).Msg("uploaded")
	}
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("export: missing file\n%s", usage)
	}
	code := lang.FromLocale(cfg.Locale)
	if len(args) > 1 {
		code = lang.Normalize(args[1])
	}

	closeDB, err := initPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	store, closeStore, err := openDocStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var w io.Writer = os.Stdout
	if args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return services.Export(ctx, store, code, w)
}
