package risk

import (
	"math"
	"sort"
)

// HistoricalVaR 과거 수익률 기반 VaR/CVaR (Historical Simulation)
// returns: 일별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (0, 1)
// 실현된 수익률 분포의 통계일 뿐 예측이 아님
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	result := VaRResult{Confidence: confidence, Samples: len(returns)}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return result
	}

	// 오름차순: 손실이 앞에
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 95% VaR = 하위 5% 백분위수
	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	result.VaR = lossOf(sorted[idx])
	result.CVaR = tailLoss(sorted, idx)
	return result
}

// tailLoss 정렬된 수익률에서 varIdx까지의 평균 손실
func tailLoss(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}

	var sum float64
	for i := 0; i <= varIdx && i < len(sorted); i++ {
		sum += sorted[i]
	}
	return lossOf(sum / float64(varIdx+1))
}

// lossOf 수익률을 손실(양수)로 변환, 이익이면 0
func lossOf(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
