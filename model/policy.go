package model

import "github.com/shopspring/decimal"

type AmountMode string

const (
	AmountFixed  AmountMode = "fixed"
	AmountRandom AmountMode = "random"
)

// AmountConfig selects how smart withdrawals size each item. Amount is used
// in fixed mode, Min and Max in random mode.
type AmountConfig struct {
	Mode   AmountMode      `json:"mode"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	Min    decimal.Decimal `json:"min,omitempty"`
	Max    decimal.Decimal `json:"max,omitempty"`
}

func FixedAmount(amount decimal.Decimal) AmountConfig {
	return AmountConfig{Mode: AmountFixed, Amount: amount}
}

func RandomAmount(min, max decimal.Decimal) AmountConfig {
	return AmountConfig{Mode: AmountRandom, Min: min, Max: max}
}

// IntervalConfig bounds the pause between smart withdrawal items, in seconds.
type IntervalConfig struct {
	Min int `json:"min"`
	Max int `json:"max"`
}
