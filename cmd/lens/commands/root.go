package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lens",
	Short: "Lens - 포트폴리오 과거 성과 평가 엔진",
	Long: `Lens Unified CLI

결정적(deterministic) 포트폴리오 평가 엔진.
가격 정렬 → 포지션 시뮬레이션(리밸런싱, 거래비용) → 성과 지표 → 확장 분석.
결과는 교육용 과거 통계이며 종목 추천이나 순위를 제공하지 않습니다.

Usage:
  go run ./cmd/lens [command]

Examples:
  go run ./cmd/lens evaluate -f examples/portfolios/balanced_krx.yaml --source naver
  go run ./cmd/lens api
  go run ./cmd/lens cache stats
  go run ./cmd/lens scheduler start
  go run ./cmd/lens test-db`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// flags are applied through the environment so config.Load stays the only reader
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", env)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
