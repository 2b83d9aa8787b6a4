package contracts

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the evaluation engine.
// 엔진 내부에서 재시도하지 않음: 동일 입력은 동일 실패를 재현함
var (
	// ErrInsufficientData: fewer than 2 overlapping dates, or a non-positive price
	// where a division is required
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidPeriod: start date after end date
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrUnsupportedInput: asset class / currency / return type outside the allow-list
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrInvalidPortfolio: malformed portfolio or rebalancing configuration
	ErrInvalidPortfolio = errors.New("invalid portfolio")

	// ErrDataQuality: the data-quality gate reported at least one FAIL
	ErrDataQuality = errors.New("data quality gate failed")
)

// EngineError is the single structured failure shape returned by the engine
type EngineError struct {
	Kind    error
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Kind
}

func newEngineError(kind error, format string, args ...interface{}) error {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InsufficientData builds an ErrInsufficientData error
func InsufficientData(format string, args ...interface{}) error {
	return newEngineError(ErrInsufficientData, format, args...)
}

// InvalidPeriod builds an ErrInvalidPeriod error
func InvalidPeriod(format string, args ...interface{}) error {
	return newEngineError(ErrInvalidPeriod, format, args...)
}

// UnsupportedInput builds an ErrUnsupportedInput error
func UnsupportedInput(format string, args ...interface{}) error {
	return newEngineError(ErrUnsupportedInput, format, args...)
}

// InvalidPortfolio builds an ErrInvalidPortfolio error
func InvalidPortfolio(format string, args ...interface{}) error {
	return newEngineError(ErrInvalidPortfolio, format, args...)
}

// DataQuality builds an ErrDataQuality error
func DataQuality(format string, args ...interface{}) error {
	return newEngineError(ErrDataQuality, format, args...)
}

// IsEngineError reports whether err carries one of the engine error kinds
func IsEngineError(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr)
}

// UserMessage renders err for end users without internal detail
func UserMessage(err error) string {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Error()
	}
	return "internal error"
}
