package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lodgekit/lodgekit/modules/access"
	"github.com/lodgekit/lodgekit/pkg/config"
	"github.com/lodgekit/lodgekit/pkg/entitlement"
	"github.com/lodgekit/lodgekit/pkg/httpserver"
	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/pg"
	"github.com/lodgekit/lodgekit/pkg/redis"
	"github.com/lodgekit/lodgekit/pkg/resolver"
	"github.com/lodgekit/lodgekit/pkg/role"
	"github.com/lodgekit/lodgekit/pkg/seed"
)

type appConfig struct {
	Env          string        `env:"APP_ENV" envDefault:"development"`
	SeedManifest string        `env:"SEED_MANIFEST"`
	CacheTTL     time.Duration `env:"RESOLUTION_CACHE_TTL" envDefault:"5m"`

	HTTP  httpserver.Config
	Pg    pg.Config
	Redis redis.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("fatal", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpt := logger.WithDevelopment("lodgekit")
	if cfg.Env == "production" {
		logOpt = logger.WithProduction("lodgekit")
	}
	log := logger.New(logOpt,
		logger.WithContextValue("request_id", middleware.RequestIDKey))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.Pg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, cfg.Pg, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	permStore := permission.NewPgStore(pool)
	roleStore := role.NewPgStore(pool)
	entStore := entitlement.NewPgStore(pool)
	menuStore := menu.NewPgStore(pool)

	cache := resolver.NewRedisCache(rdb, cfg.CacheTTL, resolver.WithCacheLogger(log))

	// The engine and the services that feed it reference each other through
	// invalidation hooks, so the engine is built against the stores first.
	var engine *resolver.Engine

	roleSvc := role.NewService(roleStore, permStore,
		role.WithLogger(log),
		role.WithGrantsChangedHook(func(ctx context.Context, roleID int64) {
			engine.GrantsChanged(ctx, roleID)
		}))

	mapper := entitlement.NewMapper(entStore, permStore,
		entitlement.WithLogger(log),
		entitlement.WithTenantChangedHook(func(ctx context.Context, tenantID uuid.UUID) {
			engine.TenantChanged(ctx, tenantID)
		}))

	engine = resolver.NewEngine(permStore, roleSvc, mapper,
		resolver.WithCache(cache),
		resolver.WithMetrics(resolver.NewMetrics(registry)),
		resolver.WithLogger(log))

	menuSvc := menu.NewService(menuStore, permStore, engine, menu.WithLogger(log))

	permSvc := permission.NewService(permStore,
		permission.WithLogger(log),
		permission.WithReferenceSources(roleSvc, mapper, menuSvc))

	if cfg.SeedManifest != "" {
		manifest, err := seed.ParseFile(cfg.SeedManifest)
		if err != nil {
			return err
		}
		seeder := seed.New(permStore, roleSvc, menuSvc, seed.WithLogger(log))
		if err := seeder.Apply(ctx, manifest); err != nil {
			return err
		}
	}

	mod := access.New(pgUserSource{db: pool}, engine, permSvc, roleSvc, mapper, menuSvc,
		access.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthHandler(pg.Healthcheck(pool), redis.Healthcheck(rdb)))
	r.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/access", mod.Router())

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
