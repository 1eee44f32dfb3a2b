package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CalcConfig holds a user's combination search settings.
type CalcConfig struct {
	MinCount     int             `json:"min_count"`
	MaxCount     int             `json:"max_count"`
	TargetValue  decimal.Decimal `json:"target_value"`
	MaxValue     decimal.Decimal `json:"max_value"`
	AllowRepeats bool            `json:"allow_repeats"`
}

// DefaultCalcConfig returns the settings a new user starts with.
func DefaultCalcConfig() CalcConfig {
	return CalcConfig{
		MinCount:    1,
		MaxCount:    2,
		TargetValue: decimal.NewFromInt(75),
		MaxValue:    decimal.NewFromInt(100),
	}
}

// Validate checks 1 <= min <= max and target <= max value.
func (c CalcConfig) Validate() error {
	if c.MinCount < 1 {
		return errors.New("min count must be at least 1")
	}
	if c.MinCount > c.MaxCount {
		return errors.New("min count must not exceed max count")
	}
	if c.TargetValue.GreaterThan(c.MaxValue) {
		return errors.New("target value must not exceed max value")
	}
	if c.TargetValue.IsNegative() {
		return errors.New("target value must not be negative")
	}
	return nil
}
