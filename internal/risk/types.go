package risk

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실)
const VaRConvention = "loss_positive"

// MinSamples 최소 샘플 수 (미만이면 계산하지 않음, fail-closed)
const MinSamples = 30

// DefaultConfidenceLevels 기본 신뢰수준
var DefaultConfidenceLevels = []float64{0.95, 0.99}

// VaRResult VaR 계산 결과
// - VaR=0.05 → 과거 일별 수익률 중 하위 5% 경계 손실이 5%
// - CVaR=0.07 → 그 tail의 평균 손실이 7%
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
	Samples    int     `json:"samples"`
}
