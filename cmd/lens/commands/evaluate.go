package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/lens/backend/internal/portfolioconfig"
	"github.com/wonny/lens/backend/internal/report"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "포트폴리오 YAML 평가",
	Long: `YAML 포트폴리오 정의를 읽어 과거 성과를 평가합니다.

이 명령어는:
- 포트폴리오 파일 검증 (알 수 없는 필드는 즉시 실패)
- 가격 시계열 조회 (db | csv | naver)
- 데이터 품질 게이트 → 날짜 정렬 → 시뮬레이션 → 지표/확장 분석
- result_hash 출력 (감사용 지문)

Example:
  go run ./cmd/lens evaluate -f examples/portfolios/balanced_krx.yaml
  go run ./cmd/lens evaluate -f p.yaml --source csv --csv-dir data/prices --json
  go run ./cmd/lens evaluate -f p.yaml --chart nav.png --capital 10000000 --currency KRW`,
	RunE: runEvaluate,
}

var (
	evalFile     string
	evalSource   string
	evalCSVDir   string
	evalJSON     bool
	evalChart    string
	evalCapital  string
	evalCurrency string
	evalNoCache  bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evalFile, "file", "f", "", "portfolio YAML file (required)")
	evaluateCmd.Flags().StringVar(&evalSource, "source", "", "price source override (db|csv|naver)")
	evaluateCmd.Flags().StringVar(&evalCSVDir, "csv-dir", "", "CSV price directory override")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print the full result as JSON")
	evaluateCmd.Flags().StringVar(&evalChart, "chart", "", "write a NAV chart PNG to this path")
	evaluateCmd.Flags().StringVar(&evalCapital, "capital", "", "restate NAV in currency terms for this starting amount")
	evaluateCmd.Flags().StringVar(&evalCurrency, "currency", "", "currency for --capital (default: portfolio input currency)")
	evaluateCmd.Flags().BoolVar(&evalNoCache, "no-cache", false, "always compute, skip the result cache")
	evaluateCmd.MarkFlagRequired("file")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evalSource != "" {
		os.Setenv("PRICE_SOURCE", evalSource)
	}
	if evalCSVDir != "" {
		os.Setenv("PRICE_CSV_DIR", evalCSVDir)
	}

	// 1. Load portfolio
	pcfg, _, err := portfolioconfig.Load(evalFile)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}
	hash, err := portfolioconfig.Hash(pcfg)
	if err != nil {
		return fmt.Errorf("hash portfolio: %w", err)
	}
	req, err := portfolioconfig.ToRequest(pcfg)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.RequestID = "cli:" + hash[:12]

	// 2. Wire dependencies
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ev, _, err := a.evaluator(ctx, !evalNoCache)
	if err != nil {
		return err
	}

	// 3. Evaluate
	start := time.Now()
	result, err := ev.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", pcfg.Meta.PortfolioID, err)
	}
	a.log.WithFields(map[string]interface{}{
		"portfolio": pcfg.Meta.PortfolioID,
		"duration":  time.Since(start),
	}).Debug("Evaluation finished")

	// 4. Optional capital view
	var capital *report.CapitalView
	if evalCapital != "" {
		amount, err := decimal.NewFromString(evalCapital)
		if err != nil {
			return fmt.Errorf("invalid --capital %q: %w", evalCapital, err)
		}
		code := evalCurrency
		if code == "" {
			code = string(req.Input.Currency())
		}
		if capital, err = report.NewCapitalView(result.Payload.NAV, amount, code); err != nil {
			return err
		}
	}

	// 5. Optional chart
	if evalChart != "" {
		png, err := report.NAVChart(pcfg.Meta.PortfolioID, result.Payload.NAV, result.Payload.Metrics)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(evalChart); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create chart directory: %w", err)
			}
		}
		if err := os.WriteFile(evalChart, png, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}

	// 6. Output
	if evalJSON {
		out := struct {
			PortfolioHash string              `json:"portfolio_hash"`
			Capital       *report.CapitalView `json:"capital,omitempty"`
			Evaluation    interface{}         `json:"evaluation"`
		}{hash, capital, result}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	title := fmt.Sprintf("Portfolio Evaluation: %s", pcfg.Meta.PortfolioID)
	if err := report.WriteSummary(cmd.OutOrStdout(), title, result, capital); err != nil {
		return err
	}
	if evalChart != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "📈 Chart written to %s\n", evalChart)
	}
	return nil
}
