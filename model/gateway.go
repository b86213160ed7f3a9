package model

import "github.com/shopspring/decimal"

// WithdrawRequest is what the exchange gateway needs to submit one withdrawal.
type WithdrawRequest struct {
	Coin       string          `json:"coin"`
	Address    string          `json:"address"`
	Amount     decimal.Decimal `json:"amount"`
	Network    string          `json:"network,omitempty"`
	AddressTag string          `json:"address_tag,omitempty"`
}

// WithdrawResult mirrors the exchange answer. OK false carries the rejection
// reason in Message.
type WithdrawResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	TxID    string `json:"tx_id,omitempty"`
}
