package service

import (
	"context"
	"fmt"

	"github.com/okian/focusengine/internal/adapters/cache"
	"github.com/okian/focusengine/internal/adapters/repository"
	"github.com/okian/focusengine/internal/config"
	"github.com/okian/focusengine/pkg/logger"
)

// FromConfig opens the configured store and cache and builds a Service over
// them. The caller owns the returned Service; Stop closes both.
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NamedOrNop("service")
	}

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN,
		repository.WithLogger(log.Named("repository")),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	opts := []Option{
		WithLogger(log),
		WithCacheTTL(cfg.CacheTTL),
		WithCalibrationDefaults(cfg.WindowSize, cfg.MinPlayers),
		WithTargetPercentile(cfg.TargetPercentile),
		WithSplitBounds(cfg.SplitFloor, cfg.SplitCeiling),
		WithMaxTestResults(cfg.MaxTestResults),
		WithAdherence(cfg.AdherenceThreshold, cfg.AdherenceWindow()),
		WithRosterConcurrency(cfg.RosterConcurrency),
		WithRecalibrateInterval(cfg.RecalibrateInterval),
		WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCacheFromURL(cfg.RedisURL, cache.WithRedisLogger(log.Named("cache")))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, WithCache(rc))
		log.Info(ctx, "using redis focus cache")
	}

	svc, err := New(store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Info(ctx, "store opened", logger.String("driver", cfg.DBDriver))
	return svc, nil
}
