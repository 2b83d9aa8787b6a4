package evaluation

import (
	"math"
	"strings"
	"time"

	"github.com/wonny/lens/backend/internal/backtest"
	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/quality"
)

// RequestType identifies evaluation results in the result cache
const RequestType = "portfolio_evaluation"

// Request is one portfolio evaluation request.
// RequestID, UserID and RequestedAt are volatile and never affect the result.
type Request struct {
	RequestID   string     `json:"request_id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`

	StartDate    string                      `json:"start_date"`
	EndDate      string                      `json:"end_date"`
	Portfolio    []contracts.PortfolioItem   `json:"portfolio"`
	Rebalancing  contracts.RebalancingConfig `json:"rebalancing"`
	Input        contracts.InputExtension    `json:"input"`
	Accounting   backtest.Accounting         `json:"accounting,omitempty"`
	RiskFreeRate *float64                    `json:"risk_free_rate,omitempty"`
}

// validated is a request after parsing and defaulting
type validated struct {
	req       Request
	start     time.Time
	end       time.Time
	portfolio contracts.PortfolioSpec
}

// validate parses dates and portfolio and fills defaults from opts.
// The returned request is the canonical form used for fingerprinting.
func validate(req Request, opts Options) (*validated, error) {
	start, err := contracts.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		return nil, contracts.InvalidPeriod("start_date %q is not YYYY-MM-DD", req.StartDate)
	}
	end, err := contracts.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		return nil, contracts.InvalidPeriod("end_date %q is not YYYY-MM-DD", req.EndDate)
	}
	if start.After(end) {
		return nil, contracts.InvalidPeriod("start_date %s is after end_date %s", req.StartDate, req.EndDate)
	}

	portfolio, err := contracts.NewPortfolioSpec(req.Portfolio)
	if err != nil {
		return nil, err
	}

	out := req
	out.StartDate = start.Format(contracts.DateLayout)
	out.EndDate = end.Format(contracts.DateLayout)
	input, err := contracts.NewInputExtension(req.Input.AssetClass(), req.Input.Currency(), req.Input.ReturnType())
	if err != nil {
		return nil, err
	}
	out.Input = input

	switch req.Accounting {
	case "":
		out.Accounting = opts.Accounting
	case backtest.AccountingFloat, backtest.AccountingDecimal:
	default:
		return nil, contracts.InvalidPortfolio("accounting must be float or decimal, got %q", req.Accounting)
	}

	rf := opts.Metrics.RiskFreeRate
	if req.RiskFreeRate != nil {
		rf = *req.RiskFreeRate
	}
	if math.IsNaN(rf) || math.IsInf(rf, 0) {
		return nil, contracts.InvalidPortfolio("risk_free_rate must be finite")
	}
	out.RiskFreeRate = &rf

	return &validated{req: out, start: start, end: end, portfolio: portfolio}, nil
}

// engineSettings are the server-side options that change the payload
type engineSettings struct {
	AnnualizationFactor float64        `json:"annualization_factor"`
	Quality             quality.Config `json:"quality"`
	DisclaimerVersion   string         `json:"disclaimer_version"`
}

// fingerprint is what request_hash covers: the canonical request plus the
// engine settings, so a config change never serves results computed under
// the old settings
type fingerprint struct {
	Request
	Engine engineSettings `json:"engine"`
}

func (v *validated) fingerprint(opts Options) fingerprint {
	return fingerprint{
		Request: v.req,
		Engine: engineSettings{
			AnnualizationFactor: opts.Metrics.AnnualizationFactor,
			Quality:             opts.Quality,
			DisclaimerVersion:   opts.DisclaimerVersion,
		},
	}
}
