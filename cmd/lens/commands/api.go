package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lens/backend/internal/api"
	"github.com/wonny/lens/backend/internal/scheduler"
	"github.com/wonny/lens/backend/internal/scheduler/jobs"
	"github.com/wonny/lens/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 포트폴리오 평가 엔드포인트 제공
- 결과 캐시 조회/정리 엔드포인트 제공
- 만료 캐시 정리 스케줄 실행 (--no-sweep로 비활성화)

Endpoints:
  GET  /health            - Health check
  POST /api/evaluations   - 포트폴리오 평가
  GET  /api/cache/stats   - 결과 캐시 통계
  POST /api/cache/sweep   - 만료 항목 정리

Example:
  go run ./cmd/lens api
  go run ./cmd/lens api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiNoSweep bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiNoSweep, "no-sweep", false, "do not run the cache sweep schedule")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Lens API Server ===")

	// 1. Config, logger and connections
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	// 2. Evaluator and cache
	ev, cache, err := a.evaluator(context.Background(), true)
	if err != nil {
		return err
	}

	// 3. Router
	deps := api.Dependencies{
		Evaluator:     ev,
		Cache:         cache,
		EvalRateLimit: a.cfg.API.EvalRateLimit,
		Logger:        a.log,
	}
	if a.redis.Enabled() {
		deps.RateLimiter = redis.NewRateLimiter(a.redis, "lens")
	}
	server := api.New(a.cfg, a.log, api.NewRouter(deps))

	// 4. Cache sweep schedule
	if !apiNoSweep && a.cfg.Cache.TTL > 0 {
		sched := scheduler.New(a.log).WithRetry(1, 10*time.Second)
		if err := sched.AddJob(jobs.NewCacheSweepJob(cache, a.cfg.Cache.SweepSchedule, a.log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/evaluations")
	fmt.Println("  GET  /api/cache/stats")
	fmt.Println("  POST /api/cache/sweep")
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
