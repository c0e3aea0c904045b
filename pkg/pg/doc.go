// Package pg bootstraps the PostgreSQL layer used by the access-control
// stores: a pgx/v5 connection pool with startup retries, goose schema
// migrations, a health check closure, and error classification helpers for
// translating driver errors into domain errors (duplicate key, missing row,
// foreign-key violation).
//
// Typical startup:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil { ... }
package pg
