// Package main provides the one-off data backfill for legacy tenant
// records: rewrites every readable aggregate in the canonical JSON encoding
// and materializes missing per-component keys from the aggregate arrays.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"strings"

	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/config"
	"github.com/jacobparis/registry-registry/internal/kv"
	"github.com/jacobparis/registry-registry/internal/schema"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	backend, err := kv.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to key-value backend", zap.Error(err))
	}
	defer backend.Close()

	ctx := context.Background()

	keys, err := backend.Keys(ctx, "tenant:")
	if err != nil {
		logger.Fatal("failed to list tenant keys", zap.Error(err))
	}
	logger.Info("found tenants", zap.Int("count", len(keys)))

	var migrated, skipped, componentsWritten int
	for _, key := range keys {
		id := strings.TrimPrefix(key, "tenant:")

		raw, err := backend.Get(ctx, key)
		if err != nil {
			logger.Warn("failed to read tenant", zap.String("tenant", id), zap.Error(err))
			skipped++
			continue
		}

		tenant, _ := schema.DecodeTenant([]byte(raw))
		if tenant == nil {
			logger.Warn("unreadable tenant record, leaving as is", zap.String("tenant", id))
			skipped++
			continue
		}
		if tenant.Name == "" {
			tenant.Name = id
		}
		if tenant.Description == "" {
			tenant.Description = id + " registry"
		}

		canonical, err := json.Marshal(tenant)
		if err != nil {
			logger.Warn("failed to encode tenant", zap.String("tenant", id), zap.Error(err))
			skipped++
			continue
		}

		needsRewrite := string(canonical) != raw
		if needsRewrite && !*dryRun {
			if err := backend.Set(ctx, key, string(canonical)); err != nil {
				logger.Warn("failed to rewrite tenant", zap.String("tenant", id), zap.Error(err))
				skipped++
				continue
			}
		}
		if needsRewrite {
			migrated++
			logger.Info("rewrote tenant record", zap.String("tenant", id), zap.Bool("dry_run", *dryRun))
		}

		// Materialize per-component keys the aggregate knows about but the
		// component key space is missing.
		for _, c := range tenant.Registry {
			componentKey := "component:" + id + ":" + c.Name
			if _, err := backend.Get(ctx, componentKey); err == nil {
				continue
			} else if !errors.Is(err, kv.ErrNotFound) {
				logger.Warn("failed to probe component key", zap.String("key", componentKey), zap.Error(err))
				continue
			}

			data, err := json.Marshal(c)
			if err != nil {
				logger.Warn("failed to encode component",
					zap.String("tenant", id),
					zap.String("component", c.Name),
					zap.Error(err),
				)
				continue
			}
			if !*dryRun {
				if err := backend.Set(ctx, componentKey, string(data)); err != nil {
					logger.Warn("failed to write component key", zap.String("key", componentKey), zap.Error(err))
					continue
				}
			}
			componentsWritten++
			logger.Info("materialized component key",
				zap.String("tenant", id),
				zap.String("component", c.Name),
				zap.Bool("dry_run", *dryRun),
			)
		}
	}

	logger.Info("migration complete",
		zap.Int("tenants_rewritten", migrated),
		zap.Int("tenants_skipped", skipped),
		zap.Int("component_keys_written", componentsWritten),
		zap.Bool("dry_run", *dryRun),
	)
}
