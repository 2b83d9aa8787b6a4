package commands

import (
	"context"
	"fmt"

	"github.com/wonny/lens/backend/internal/backtest"
	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/evaluation"
	"github.com/wonny/lens/backend/internal/external/naver"
	"github.com/wonny/lens/backend/internal/pricedata"
	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/config"
	"github.com/wonny/lens/backend/pkg/database"
	"github.com/wonny/lens/backend/pkg/httputil"
	"github.com/wonny/lens/backend/pkg/logger"
	"github.com/wonny/lens/backend/pkg/redis"
)

// app holds the shared resources of one command invocation
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB  // nil unless PostgreSQL is used
	redis   *redis.Client // disabled client unless REDIS_ENABLED
	closers []func()
}

// newApp loads config and opens the connections the config asks for
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}

	if cfg.NeedsDatabase() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		a.log.Info("Connected to database")
	}

	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.closers = append(a.closers, func() { rc.Close() })

	return a, nil
}

// Close releases resources in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// provider builds the configured price provider
func (a *app) provider() (contracts.PriceProvider, error) {
	switch a.cfg.Prices.Source {
	case config.PriceSourceDB:
		return pricedata.NewRepository(a.db.Pool), nil
	case config.PriceSourceCSV:
		return pricedata.NewCSVProvider(a.cfg.Prices.CSVDir), nil
	case config.PriceSourceNaver:
		n := a.cfg.Prices.Naver
		hc := httputil.NewWithTimeout(a.log, n.Timeout).WithRateLimit(n.RequestsPerSec, 1)
		return naver.NewClient(hc, a.log, n.BaseURL).WithMaxPages(n.MaxPages), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", a.cfg.Prices.Source)
	}
}

// cache builds the result cache over the configured backend
func (a *app) cache(ctx context.Context) (*resultcache.Cache, error) {
	var store resultcache.Store

	switch a.cfg.Cache.Backend {
	case config.CacheBackendMemory:
		store = resultcache.NewMemoryStore()
	case config.CacheBackendPostgres:
		pg := resultcache.NewPostgresStore(a.db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("create cache schema: %w", err)
		}
		store = pg
	case config.CacheBackendRedis:
		store = resultcache.NewRedisStore(a.redis.Redis(), a.cfg.Cache.RedisPrefix)
	case config.CacheBackendSQLite:
		lite, err := resultcache.OpenSQLiteStore(ctx, a.cfg.Cache.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		a.closers = append(a.closers, func() { lite.Close() })
		store = lite
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}

	a.log.WithField("backend", a.cfg.Cache.Backend).Debug("Result cache ready")
	return resultcache.New(store, a.log), nil
}

// evaluatorOptions maps engine config onto evaluator options
func (a *app) evaluatorOptions() evaluation.Options {
	opts := evaluation.DefaultOptions()
	opts.Metrics.AnnualizationFactor = a.cfg.Engine.AnnualizationFactor
	opts.Metrics.RiskFreeRate = a.cfg.Engine.RiskFreeRate
	opts.Accounting = backtest.Accounting(a.cfg.Engine.Accounting)
	opts.DisclaimerVersion = a.cfg.Engine.DisclaimerVersion
	opts.CacheTTL = a.cfg.Cache.TTL
	return opts
}

// evaluator wires provider and cache into an Evaluator
func (a *app) evaluator(ctx context.Context, useCache bool) (*evaluation.Evaluator, *resultcache.Cache, error) {
	provider, err := a.provider()
	if err != nil {
		return nil, nil, err
	}

	var cache *resultcache.Cache
	if useCache {
		if cache, err = a.cache(ctx); err != nil {
			return nil, nil, err
		}
	}

	return evaluation.NewEvaluator(provider, cache, a.evaluatorOptions(), a.log), cache, nil
}
