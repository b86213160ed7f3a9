package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountPrecision is the number of fraction digits carried by withdrawal amounts.
const AmountPrecision = 8

type WithdrawalStatus string

const (
	StatusPending   WithdrawalStatus = "PENDING"
	StatusSubmitted WithdrawalStatus = "SUBMITTED"
	StatusFailed    WithdrawalStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == StatusSubmitted || s == StatusFailed
}

// WithdrawalItem is one recipient of a withdrawal.
type WithdrawalItem struct {
	Address    string          `json:"address"`
	Amount     decimal.Decimal `json:"amount"`
	AddressTag string          `json:"address_tag,omitempty"`
	Coin       string          `json:"coin"`
	Network    string          `json:"network"`
}

// WithdrawalRecord is the persisted outcome of one attempted item.
type WithdrawalRecord struct {
	ID           int64            `json:"id"`
	Coin         string           `json:"coin"`
	Network      string           `json:"network"`
	Address      string           `json:"address"`
	Amount       decimal.Decimal  `json:"amount"`
	Fee          decimal.Decimal  `json:"fee"`
	Status       WithdrawalStatus `json:"status"`
	TxID         string           `json:"tx_id,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ItemResult is the outcome of driving one item through the gateway. It
// always carries the amount that was actually requested for the item.
type ItemResult struct {
	Index    int              `json:"index"`
	Address  string           `json:"address"`
	Amount   decimal.Decimal  `json:"amount"`
	RecordID int64            `json:"record_id,omitempty"`
	Status   WithdrawalStatus `json:"status"`
	TxID     string           `json:"tx_id,omitempty"`
	Message  string           `json:"message"`
}

func (r ItemResult) OK() bool {
	return r.Status == StatusSubmitted
}
