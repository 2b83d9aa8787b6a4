package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/wonny/lens/backend/internal/contracts"
)

// CapitalView restates a NAV path in currency terms for display only
type CapitalView struct {
	Currency string `json:"currency"`
	Initial  string `json:"initial"`
	Final    string `json:"final"`
	Change   string `json:"change"`
	Low      string `json:"low"`
	High     string `json:"high"`
}

// FormatAmount formats a major-unit amount in the currency's own style
func FormatAmount(amount decimal.Decimal, code string) (string, error) {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return "", fmt.Errorf("unknown currency %q", code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display(), nil
}

// NewCapitalView scales nav (starting at 1.0) by capital
func NewCapitalView(nav []contracts.NAVPoint, capital decimal.Decimal, code string) (*CapitalView, error) {
	if len(nav) == 0 {
		return nil, fmt.Errorf("empty NAV series")
	}
	if !capital.IsPositive() {
		return nil, fmt.Errorf("capital must be positive, got %s", capital)
	}

	base := decimal.NewFromFloat(nav[0].NAV)
	if !base.IsPositive() {
		return nil, fmt.Errorf("initial NAV must be positive")
	}
	value := func(nav float64) decimal.Decimal {
		return capital.Mul(decimal.NewFromFloat(nav)).Div(base)
	}

	low, high := nav[0].NAV, nav[0].NAV
	for _, p := range nav {
		if p.NAV < low {
			low = p.NAV
		}
		if p.NAV > high {
			high = p.NAV
		}
	}

	final := value(nav[len(nav)-1].NAV)
	view := &CapitalView{Currency: strings.ToUpper(code)}
	fields := []struct {
		dst    *string
		amount decimal.Decimal
	}{
		{&view.Initial, capital},
		{&view.Final, final},
		{&view.Change, final.Sub(capital)},
		{&view.Low, value(low)},
		{&view.High, value(high)},
	}
	for _, f := range fields {
		s, err := FormatAmount(f.amount, code)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}
	return view, nil
}
