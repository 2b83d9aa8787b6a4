package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/internal/scheduler"
	"github.com/wonny/lens/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `결과 캐시 유지보수 스케줄러를 시작하거나 작업을 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/lens scheduler start
  go run ./cmd/lens scheduler list
  go run ./cmd/lens scheduler run cache_sweep`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- cache_sweep: CACHE_SWEEP_SCHEDULE (기본 10분마다, 만료 결과 삭제)
- cache_stats: 매시간 (캐시 통계 로그)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers the maintenance jobs
func newScheduler(a *app, cache *resultcache.Cache) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	if err := s.AddJob(jobs.NewCacheSweepJob(cache, a.cfg.Cache.SweepSchedule, a.log)); err != nil {
		return nil, err
	}
	if err := s.AddJob(jobs.NewCacheStatsJob(cache, a.log)); err != nil {
		return nil, err
	}
	return s, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Lens Scheduler ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, err := a.cache(context.Background())
	if err != nil {
		return err
	}

	s, err := newScheduler(a, cache)
	if err != nil {
		return err
	}

	s.Start()
	fmt.Println("\n✅ Scheduler running")
	for _, name := range s.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, err := a.cache(context.Background())
	if err != nil {
		return err
	}

	s, err := newScheduler(a, cache)
	if err != nil {
		return err
	}

	stats := s.GetJobStats()
	PrintDoubleSeparator()
	fmt.Println("  Registered Jobs")
	PrintSeparator()
	for _, name := range s.GetAllJobs() {
		fmt.Printf("  %-12s : %s\n", name, stats[name].Schedule)
	}
	PrintDoubleSeparator()
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cache, err := a.cache(ctx)
	if err != nil {
		return err
	}

	s, err := newScheduler(a, cache)
	if err != nil {
		return err
	}

	result, err := s.WithRetry(0, 0).RunJob(ctx, args[0])
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", result.JobName, result.Duration.Seconds()))
	return nil
}
