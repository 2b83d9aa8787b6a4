package performance

import (
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// DrawdownSegments splits nav into maximal intervals spent below a prior peak.
// A segment opens at the peak date on the first dip and closes on the first
// date the NAV is back at or above that peak. A segment still open at the last
// point closes there with Recovered=false.
func DrawdownSegments(nav []contracts.NAVPoint) []contracts.DrawdownSegment {
	segments := make([]contracts.DrawdownSegment, 0)
	if len(nav) < 2 {
		return segments
	}

	peak, peakDate := nav[0].NAV, nav[0].Date
	var (
		open    bool
		current contracts.DrawdownSegment
	)

	for _, p := range nav[1:] {
		if !open {
			if p.NAV >= peak {
				peak, peakDate = p.NAV, p.Date
				continue
			}
			open = true
			current = contracts.DrawdownSegment{
				Start:     peakDate,
				Trough:    p.Date,
				PeakNAV:   peak,
				TroughNAV: p.NAV,
			}
			continue
		}

		if p.NAV >= peak {
			segments = append(segments, closeSegment(current, p.Date, true))
			open = false
			peak, peakDate = p.NAV, p.Date
			continue
		}
		if p.NAV < current.TroughNAV {
			current.TroughNAV = p.NAV
			current.Trough = p.Date
		}
	}

	if open {
		segments = append(segments, closeSegment(current, nav[len(nav)-1].Date, false))
	}
	return segments
}

func closeSegment(s contracts.DrawdownSegment, end time.Time, recovered bool) contracts.DrawdownSegment {
	s.End = end
	s.Recovered = recovered
	if s.PeakNAV > 0 {
		s.Drawdown = s.TroughNAV/s.PeakNAV - 1
	}
	s.LengthDays = int(end.Sub(s.Start).Hours() / 24)
	return s
}

// DeepestDrawdown returns the most negative segment drawdown, 0 when none
func DeepestDrawdown(segments []contracts.DrawdownSegment) float64 {
	deepest := 0.0
	for _, s := range segments {
		if s.Drawdown < deepest {
			deepest = s.Drawdown
		}
	}
	return deepest
}
