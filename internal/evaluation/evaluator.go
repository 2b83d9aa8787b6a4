package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/lens/backend/internal/backtest"
	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/performance"
	"github.com/wonny/lens/backend/internal/quality"
	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/logger"
)

// DefaultDisclaimerVersion tags payloads with the disclaimer text revision
const DefaultDisclaimerVersion = "v2"

// Options configures an Evaluator
type Options struct {
	Metrics           performance.Options
	Quality           quality.Config
	Accounting        backtest.Accounting
	DisclaimerVersion string
	CacheTTL          time.Duration // ≤ 0: cached results never expire
}

// DefaultOptions returns the default evaluator options
func DefaultOptions() Options {
	return Options{
		Metrics:           performance.DefaultOptions(),
		Quality:           quality.DefaultConfig(),
		Accounting:        backtest.AccountingFloat,
		DisclaimerVersion: DefaultDisclaimerVersion,
		CacheTTL:          24 * time.Hour,
	}
}

// Period is the aligned evaluation window
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RebalancingSummary reports the executed rebalances
type RebalancingSummary struct {
	Count     int                       `json:"count"`
	TotalCost float64                   `json:"total_cost"`
	Events    []backtest.RebalanceEvent `json:"events"`
}

// Payload is the deterministic evaluation result
type Payload struct {
	Period            Period                       `json:"period"`
	Metrics           contracts.PerformanceMetrics `json:"metrics"`
	Extensions        contracts.ExtensionData      `json:"extensions"`
	Rebalancing       RebalancingSummary           `json:"rebalancing"`
	NAV               []contracts.NAVPoint         `json:"nav"`
	QualityWarnings   []quality.CheckResult        `json:"quality_warnings"`
	DisclaimerVersion string                       `json:"disclaimer_version"`
}

// Result is a payload with its audit fingerprint and cache metadata
type Result struct {
	Payload     Payload `json:"result"`
	ResultHash  string  `json:"result_hash"`
	RequestHash string  `json:"request_hash"`
	CacheHit    bool    `json:"cache_hit"`
}

// Evaluator runs the evaluation pipeline:
// fetch → quality gate → align → simulate → metrics + extensions
// ⭐ SSOT: 포트폴리오 평가 파이프라인은 여기서만
type Evaluator struct {
	provider  contracts.PriceProvider
	cache     *resultcache.Cache
	gate      *quality.Gate
	simulator *backtest.Simulator
	opts      Options
	logger    *logger.Logger
}

// NewEvaluator creates an evaluator. cache may be nil to always compute.
func NewEvaluator(provider contracts.PriceProvider, cache *resultcache.Cache, opts Options, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Accounting == "" {
		opts.Accounting = backtest.AccountingFloat
	}
	if opts.DisclaimerVersion == "" {
		opts.DisclaimerVersion = DefaultDisclaimerVersion
	}
	return &Evaluator{
		provider:  provider,
		cache:     cache,
		gate:      quality.NewGate(opts.Quality),
		simulator: backtest.NewSimulator(log),
		opts:      opts,
		logger:    log,
	}
}

// Evaluate validates req and serves the result from cache or computes it
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	v, err := validate(req, e.opts)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(map[string]interface{}{
		"request_id": req.RequestID,
		"start":      v.req.StartDate,
		"end":        v.req.EndDate,
		"items":      len(v.req.Portfolio),
	})

	if e.cache == nil {
		payload, err := e.compute(ctx, v)
		if err != nil {
			return nil, err
		}
		return e.uncached(v, payload)
	}

	lookup, err := e.cache.GetOrCompute(ctx, RequestType, v.fingerprint(e.opts), e.opts.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return e.compute(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal(lookup.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation payload: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"cache_hit":   lookup.CacheHit,
		"result_hash": lookup.ResultHash,
	}).Info("Evaluation completed")

	return &Result{
		Payload:     payload,
		ResultHash:  lookup.ResultHash,
		RequestHash: lookup.RequestHash,
		CacheHit:    lookup.CacheHit,
	}, nil
}

func (e *Evaluator) uncached(v *validated, payload *Payload) (*Result, error) {
	canonical, err := resultcache.Canonicalize(v.fingerprint(e.opts))
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize request: %w", err)
	}
	resultHash, err := resultcache.ResultHash(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to hash result: %w", err)
	}
	return &Result{
		Payload:     *payload,
		ResultHash:  resultHash,
		RequestHash: resultcache.RequestHash(RequestType, canonical),
	}, nil
}

// compute runs the pipeline for a validated request
func (e *Evaluator) compute(ctx context.Context, v *validated) (*Payload, error) {
	keys := v.portfolio.Keys()
	series := make([]contracts.PriceSeries, 0, len(keys))
	byKey := make(map[string]contracts.PriceSeries, len(keys))
	for _, key := range keys {
		s, err := e.provider.GetSeries(ctx, key, v.start, v.end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices for %s: %w", key, err)
		}
		s.ItemKey = key
		series = append(series, s)
		byKey[key] = s
	}

	report := e.gate.Check(series, v.start, v.end)
	if err := quality.EnforcePolicy(report); err != nil {
		return nil, err
	}

	aligned, err := backtest.Align(series...)
	if err != nil {
		return nil, err
	}

	sim, err := e.simulator.Run(aligned, backtest.Config{
		Weights:     v.portfolio.Weights(),
		Rebalancing: v.req.Rebalancing,
		Accounting:  v.req.Accounting,
	})
	if err != nil {
		return nil, err
	}

	metricOpts := e.opts.Metrics
	metricOpts.RiskFreeRate = *v.req.RiskFreeRate
	calc := performance.NewCalculator(metricOpts)

	periodDays := int(aligned.End().Sub(aligned.Start()).Hours() / 24)
	metrics := calc.Calculate(contracts.NAVValues(sim.NAV), periodDays)
	extensions := performance.NewExtensionBuilder(calc).Build(sim.NAV, v.portfolio, byKey)

	events := sim.Rebalances
	if events == nil {
		events = make([]backtest.RebalanceEvent, 0)
	}
	warnings := report.Warnings()
	if warnings == nil {
		warnings = make([]quality.CheckResult, 0)
	}

	return &Payload{
		Period: Period{
			Start: aligned.Start().Format(contracts.DateLayout),
			End:   aligned.End().Format(contracts.DateLayout),
		},
		Metrics:    metrics,
		Extensions: extensions,
		Rebalancing: RebalancingSummary{
			Count:     sim.RebalanceCount(),
			TotalCost: sim.TotalCost,
			Events:    events,
		},
		NAV:               sim.NAV,
		QualityWarnings:   warnings,
		DisclaimerVersion: e.opts.DisclaimerVersion,
	}, nil
}
