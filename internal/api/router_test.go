package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lens/backend/internal/api/handlers"
	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/evaluation"
	"github.com/wonny/lens/backend/internal/pricedata"
	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/redis"
)

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, cfg redis.RateLimitConfig) (bool, int, error) {
	f.keys = append(f.keys, cfg.Key)
	if f.err != nil {
		return false, 0, f.err
	}
	if f.allow {
		return true, cfg.Limit - 1, nil
	}
	return false, 0, nil
}

func testSeries() []contracts.PriceSeries {
	a := map[time.Time]float64{}
	b := map[time.Time]float64{}
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		day := d.AddDate(0, 0, i)
		a[day] = 100 + float64(i)
		b[day] = 200 - float64(i%3)
	}
	bad := map[time.Time]float64{d: 1, d.AddDate(0, 0, 1): math.NaN(), d.AddDate(0, 0, 2): 1}
	return []contracts.PriceSeries{
		contracts.NewPriceSeries("A", a),
		contracts.NewPriceSeries("B", b),
		contracts.NewPriceSeries("NAN", bad),
	}
}

func newTestRouter(limiter RateLimiter) (http.Handler, *resultcache.Cache) {
	cache := resultcache.New(resultcache.NewMemoryStore(), nil)
	ev := evaluation.NewEvaluator(pricedata.NewStaticProvider(testSeries()...), cache, evaluation.DefaultOptions(), nil)
	return NewRouter(Dependencies{
		Evaluator:     ev,
		Cache:         cache,
		RateLimiter:   limiter,
		EvalRateLimit: 10,
	}), cache
}

const validBody = `{
	"start_date": "2024-01-01",
	"end_date": "2024-02-09",
	"portfolio": [{"item_key": "A", "weight": 0.5}, {"item_key": "B", "weight": 0.5}],
	"rebalancing": {"type": "DRIFT", "drift_threshold": 0.05, "cost_rate": 0.001}
}`

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestEvaluate_MissThenHit(t *testing.T) {
	h, cache := newTestRouter(nil)

	first := post(t, h, "/api/evaluations", validBody)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := post(t, h, "/api/evaluations", validBody)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b evaluation.Result
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))

	assert.False(t, a.CacheHit)
	assert.True(t, b.CacheHit)
	assert.Equal(t, a.RequestHash, b.RequestHash)
	assert.Equal(t, a.ResultHash, b.ResultHash)
	assert.Equal(t, "v2", b.Payload.DisclaimerVersion)
	assert.NotEqual(t, first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader))

	stats, err := cache.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Entries)
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	h, _ := newTestRouter(nil)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed", `{"start_date": `, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"start_date": "2024-01-01", "score": 1}`, http.StatusBadRequest, "invalid_request"},
		{"period", `{"start_date": "2024-02-01", "end_date": "2024-01-01", "portfolio": [{"item_key": "A", "weight": 1}]}`,
			http.StatusBadRequest, "invalid_period"},
		{"weights", `{"start_date": "2024-01-01", "end_date": "2024-02-01", "portfolio": [{"item_key": "A", "weight": 0.3}]}`,
			http.StatusBadRequest, "invalid_portfolio"},
		{"unsupported input", `{"start_date": "2024-01-01", "end_date": "2024-02-01", "portfolio": [{"item_key": "A", "weight": 1}],
			"input": {"asset_class": "BOND", "currency": "USD", "return_type": "TOTAL"}}`,
			http.StatusUnprocessableEntity, "unsupported_input"},
		{"no data", `{"start_date": "2024-01-01", "end_date": "2024-02-01", "portfolio": [{"item_key": "ZZZ", "weight": 1}]}`,
			http.StatusUnprocessableEntity, "insufficient_data"},
		{"non-finite prices", `{"start_date": "2024-01-01", "end_date": "2024-02-01", "portfolio": [{"item_key": "NAN", "weight": 1}]}`,
			http.StatusUnprocessableEntity, "data_quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/api/evaluations", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

func TestEvaluate_MethodNotAllowed(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/evaluations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvaluate_RateLimited(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	h, _ := newTestRouter(limiter)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluations", bytes.NewBufferString(validBody))
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 172.16.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"eval:10.0.0.7"}, limiter.keys)
}

func TestEvaluate_RateLimiterFailsOpen(t *testing.T) {
	h, _ := newTestRouter(&fakeLimiter{err: errors.New("redis down")})
	rec := post(t, h, "/api/evaluations", validBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheEndpoints(t *testing.T) {
	h, _ := newTestRouter(&fakeLimiter{allow: true})
	require.Equal(t, http.StatusOK, post(t, h, "/api/evaluations", validBody).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats resultcache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, int64(1), stats.Entries)

	sweep := post(t, h, "/api/cache/sweep", "")
	assert.Equal(t, http.StatusOK, sweep.Code)
	assert.JSONEq(t, `{"removed": 0}`, sweep.Body.String())
}

func TestRequestIDPropagation(t *testing.T) {
	h, _ := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-chosen")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-chosen", rec.Header().Get(RequestIDHeader))
}
