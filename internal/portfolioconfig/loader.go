package portfolioconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/lens/backend/internal/backtest"
	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/evaluation"
)

// Load reads a YAML portfolio file and returns the validated Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ToRequest converts the file into an evaluation request.
// Rebalancing and input go through their validating constructors.
func ToRequest(cfg *Config) (evaluation.Request, error) {
	rebalancing, err := contracts.NewRebalancingConfig(
		contracts.RebalanceType(cfg.Rebalancing.Type),
		contracts.RebalanceFrequency(cfg.Rebalancing.Frequency),
		cfg.Rebalancing.DriftThreshold,
		cfg.Rebalancing.CostRate,
	)
	if err != nil {
		return evaluation.Request{}, err
	}

	input, err := contracts.NewInputExtension(
		contracts.AssetClass(cfg.Input.AssetClass),
		contracts.Currency(cfg.Input.Currency),
		contracts.ReturnType(cfg.Input.ReturnType),
	)
	if err != nil {
		return evaluation.Request{}, err
	}

	items := make([]contracts.PortfolioItem, len(cfg.Items))
	for i, it := range cfg.Items {
		items[i] = contracts.PortfolioItem{ItemKey: it.ItemKey, Weight: it.Weight}
	}

	return evaluation.Request{
		StartDate:    cfg.Period.Start,
		EndDate:      cfg.Period.End,
		Portfolio:    items,
		Rebalancing:  rebalancing,
		Input:        input,
		Accounting:   backtest.Accounting(cfg.Accounting),
		RiskFreeRate: cfg.Metrics.RiskFreeRate,
	}, nil
}
