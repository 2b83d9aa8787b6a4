package portfolioconfig

// Config는 CLI로 평가할 포트폴리오 정의 (YAML)
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Period      Period      `yaml:"period" json:"period"`
	Items       []Item      `yaml:"items" json:"items"`
	Rebalancing Rebalancing `yaml:"rebalancing" json:"rebalancing"`
	Input       Input       `yaml:"input" json:"input"`
	Metrics     Metrics     `yaml:"metrics" json:"metrics"`
	Accounting  string      `yaml:"accounting" json:"accounting"` // float | decimal
}

// Meta 메타 정보
type Meta struct {
	PortfolioID string `yaml:"portfolio_id" json:"portfolio_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Period is the requested evaluation window (YYYY-MM-DD)
type Period struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Item is one target allocation
type Item struct {
	ItemKey string  `yaml:"item_key" json:"item_key"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// Rebalancing mirrors contracts.RebalancingConfig
type Rebalancing struct {
	Type           string  `yaml:"type" json:"type"`                       // NONE | PERIODIC | DRIFT | HYBRID
	Frequency      string  `yaml:"frequency" json:"frequency"`             // MONTHLY | QUARTERLY
	DriftThreshold float64 `yaml:"drift_threshold" json:"drift_threshold"` // 절대 편차
	CostRate       float64 `yaml:"cost_rate" json:"cost_rate"`
}

// Input mirrors contracts.InputExtension
type Input struct {
	AssetClass string `yaml:"asset_class" json:"asset_class"`
	Currency   string `yaml:"currency" json:"currency"`
	ReturnType string `yaml:"return_type" json:"return_type"`
}

// Metrics overrides per portfolio
type Metrics struct {
	RiskFreeRate *float64 `yaml:"risk_free_rate" json:"risk_free_rate,omitempty"`
}
