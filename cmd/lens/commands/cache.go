package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "결과 캐시 관리",
	Long: `평가 결과 캐시를 조회하거나 정리합니다.
CACHE_BACKEND (memory|postgres|redis|sqlite) 설정을 따릅니다.

Subcommands:
  stats  - 캐시 통계
  sweep  - 만료 항목 삭제

Example:
  CACHE_BACKEND=sqlite go run ./cmd/lens cache stats
  CACHE_BACKEND=postgres go run ./cmd/lens cache sweep`,
}

var (
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "캐시 통계",
		RunE:  runCacheStats,
	}

	cacheSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "만료 항목 삭제",
		RunE:  runCacheSweep,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cache, err := a.cache(ctx)
	if err != nil {
		return err
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Println("  Result Cache")
	PrintSeparator()
	fmt.Printf("  Backend    : %s\n", stats.Backend)
	fmt.Printf("  Entries    : %d\n", stats.Entries)
	fmt.Printf("  Expired    : %d\n", stats.Expired)
	fmt.Printf("  Total hits : %d\n", stats.TotalHits)
	PrintDoubleSeparator()
	return nil
}

func runCacheSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cache, err := a.cache(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	removed, err := cache.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("cache sweep: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Removed %d expired entries in %.2fs", removed, time.Since(start).Seconds()))
	return nil
}
