package model

import "github.com/shopspring/decimal"

type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

type AccountInfo struct {
	AccountType string    `json:"account_type"`
	CanTrade    bool      `json:"can_trade"`
	CanWithdraw bool      `json:"can_withdraw"`
	CanDeposit  bool      `json:"can_deposit"`
	Balances    []Balance `json:"balances"`
}
