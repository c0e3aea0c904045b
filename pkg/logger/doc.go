// Package logger builds configured slog.Logger instances for the toolkit.
//
// It wraps log/slog with a small option-based factory: output format (JSON or
// text), level, static attributes, and context extractors that pull
// request-scoped values (tenant ID, acting user) into every record.
//
// Basic usage:
//
//	log := logger.New(
//	    logger.WithProduction("access-core"),
//	    logger.WithAttr(slog.String("version", version)),
//	)
//	log.InfoContext(ctx, "role grants replaced", logger.RoleID(roleID))
package logger
