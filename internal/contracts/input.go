package contracts

import (
	"encoding/json"
	"strings"
)

// AssetClass of the evaluated instruments
type AssetClass string

const (
	AssetClassEquity AssetClass = "EQUITY"
	AssetClassETF    AssetClass = "ETF"
	AssetClassBond   AssetClass = "BOND"
)

// Currency of the price series
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
)

// ReturnType selects price-only or total-return series
type ReturnType string

const (
	ReturnTypePrice ReturnType = "PRICE"
	ReturnTypeTotal ReturnType = "TOTAL"
)

// supportedInputs is the closed allow-list of input combinations.
// 목록 외 조합은 계산 전에 거부 (fail-closed, 근사 계산 금지)
var supportedInputs = map[InputExtension]struct{}{
	{AssetClassEquity, CurrencyKRW, ReturnTypePrice}: {},
	{AssetClassEquity, CurrencyUSD, ReturnTypePrice}: {},
	{AssetClassEquity, CurrencyUSD, ReturnTypeTotal}: {},
	{AssetClassETF, CurrencyKRW, ReturnTypePrice}:    {},
	{AssetClassETF, CurrencyUSD, ReturnTypePrice}:    {},
	{AssetClassETF, CurrencyUSD, ReturnTypeTotal}:    {},
	{AssetClassBond, CurrencyKRW, ReturnTypePrice}:   {},
}

// InputExtension is a validated (asset_class, currency, return_type) triple
type InputExtension struct {
	assetClass AssetClass
	currency   Currency
	returnType ReturnType
}

// DefaultInputExtension is used when a request omits the input extension
func DefaultInputExtension() InputExtension {
	return InputExtension{AssetClassEquity, CurrencyKRW, ReturnTypePrice}
}

// NewInputExtension validates the combination against the allow-list
func NewInputExtension(assetClass AssetClass, currency Currency, returnType ReturnType) (InputExtension, error) {
	ext := InputExtension{
		assetClass: AssetClass(strings.ToUpper(strings.TrimSpace(string(assetClass)))),
		currency:   Currency(strings.ToUpper(strings.TrimSpace(string(currency)))),
		returnType: ReturnType(strings.ToUpper(strings.TrimSpace(string(returnType)))),
	}
	if ext == (InputExtension{}) {
		return DefaultInputExtension(), nil
	}
	if _, ok := supportedInputs[ext]; !ok {
		return InputExtension{}, UnsupportedInput("combination (%s, %s, %s) is not supported",
			ext.assetClass, ext.currency, ext.returnType)
	}
	return ext, nil
}

// AssetClass returns the asset class
func (e InputExtension) AssetClass() AssetClass { return e.normalized().assetClass }

// Currency returns the currency
func (e InputExtension) Currency() Currency { return e.normalized().currency }

// ReturnType returns the return type
func (e InputExtension) ReturnType() ReturnType { return e.normalized().returnType }

func (e InputExtension) normalized() InputExtension {
	if e == (InputExtension{}) {
		return DefaultInputExtension()
	}
	return e
}

type inputExtensionJSON struct {
	AssetClass AssetClass `json:"asset_class"`
	Currency   Currency   `json:"currency"`
	ReturnType ReturnType `json:"return_type"`
}

// MarshalJSON implements json.Marshaler
func (e InputExtension) MarshalJSON() ([]byte, error) {
	n := e.normalized()
	return json.Marshal(inputExtensionJSON{n.assetClass, n.currency, n.returnType})
}

// UnmarshalJSON implements json.Unmarshaler; input goes through the allow-list
func (e *InputExtension) UnmarshalJSON(data []byte) error {
	var raw inputExtensionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ext, err := NewInputExtension(raw.AssetClass, raw.Currency, raw.ReturnType)
	if err != nil {
		return err
	}
	*e = ext
	return nil
}
