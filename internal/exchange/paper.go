/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrBalanceNotFound    = errors.New("balance not found")
	ErrInvalidCredentials = errors.New("invalid api key or secret")
)

// PaperGateway is an in-memory exchange account. Withdrawals debit the free
// balance and get a generated transaction id; nothing leaves the process.
type PaperGateway struct {
	mu          sync.Mutex
	balances    map[string]*model.Balance
	accountType string
	canWithdraw bool
}

func NewPaperGateway(balances map[string]decimal.Decimal) *PaperGateway {
	g := &PaperGateway{
		balances:    make(map[string]*model.Balance, len(balances)),
		accountType: "SPOT",
		canWithdraw: true,
	}
	for asset, free := range balances {
		asset = strings.ToUpper(asset)
		g.balances[asset] = &model.Balance{Asset: asset, Free: free, Locked: decimal.Zero}
	}
	return g
}

// NewPaperGatewayFromConfig builds a gateway from the exchange section,
// parsing each paper balance as a decimal string.
func NewPaperGatewayFromConfig(cnf config.ExchangeConfig) (*PaperGateway, error) {
	balances := make(map[string]decimal.Decimal, len(cnf.PaperBalances))
	for asset, raw := range cnf.PaperBalances {
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid paper balance for %s: %w", asset, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("paper balance for %s cannot be negative", asset)
		}
		balances[asset] = amount
	}

	g := NewPaperGateway(balances)
	if cnf.AccountType != "" {
		g.accountType = strings.ToUpper(cnf.AccountType)
	}
	return g, nil
}

func (g *PaperGateway) CheckBalance(ctx context.Context, asset string) (*model.Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.balances[strings.ToUpper(asset)]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	balance := *b
	return &balance, nil
}

func (g *PaperGateway) Withdraw(ctx context.Context, req model.WithdrawRequest) (model.WithdrawResult, error) {
	if err := ctx.Err(); err != nil {
		return model.WithdrawResult{}, err
	}
	if !req.Amount.IsPositive() {
		return model.WithdrawResult{OK: false, Message: "amount must be greater than zero"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.canWithdraw {
		return model.WithdrawResult{OK: false, Message: "withdrawals are disabled for this account"}, nil
	}

	coin := strings.ToUpper(req.Coin)
	b, ok := g.balances[coin]
	if !ok || b.Free.LessThan(req.Amount) {
		return model.WithdrawResult{OK: false, Message: fmt.Sprintf("insufficient %s balance", coin)}, nil
	}

	b.Free = b.Free.Sub(req.Amount)
	txID := model.GenerateUUIDWithSuffix("tx")

	logrus.WithFields(logrus.Fields{
		"coin":    coin,
		"network": req.Network,
		"address": req.Address,
		"amount":  req.Amount.String(),
		"tx_id":   txID,
	}).Info("paper withdrawal submitted")

	return model.WithdrawResult{OK: true, Message: "withdrawal submitted", TxID: txID}, nil
}

func (g *PaperGateway) AccountInfo(ctx context.Context) (*model.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	info := &model.AccountInfo{
		AccountType: g.accountType,
		CanTrade:    true,
		CanWithdraw: g.canWithdraw,
		CanDeposit:  true,
		Balances:    make([]model.Balance, 0, len(g.balances)),
	}
	for _, b := range g.balances {
		if b.Total().IsPositive() {
			info.Balances = append(info.Balances, *b)
		}
	}
	sort.Slice(info.Balances, func(i, j int) bool { return info.Balances[i].Asset < info.Balances[j].Asset })
	return info, nil
}

// Deposit credits the free balance of asset.
func (g *PaperGateway) Deposit(asset string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	asset = strings.ToUpper(asset)
	b, ok := g.balances[asset]
	if !ok {
		b = &model.Balance{Asset: asset}
		g.balances[asset] = b
	}
	b.Free = b.Free.Add(amount)
}

// SetWithdrawEnabled toggles the account level withdraw permission.
func (g *PaperGateway) SetWithdrawEnabled(enabled bool) {
	g.mu.Lock()
	g.canWithdraw = enabled
	g.mu.Unlock()
}

// PaperExchange hands out one paper account per api key and network, each
// opened with the configured paper balances. When the configuration names
// an api key only that key and its secret are accepted.
type PaperExchange struct {
	mu       sync.Mutex
	cnf      config.ExchangeConfig
	accounts map[string]*PaperGateway
}

func NewPaperExchange(cnf config.ExchangeConfig) (*PaperExchange, error) {
	// fail on bad balances at startup, not on the first connect
	if _, err := NewPaperGatewayFromConfig(cnf); err != nil {
		return nil, err
	}
	return &PaperExchange{cnf: cnf, accounts: make(map[string]*PaperGateway)}, nil
}

// Connect returns the account for apiKey on the requested network, creating
// it on first use.
func (e *PaperExchange) Connect(ctx context.Context, apiKey, apiSecret string, testnet bool) (*PaperGateway, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if apiKey == "" || apiSecret == "" {
		return nil, ErrInvalidCredentials
	}
	if e.cnf.ApiKey != "" && (apiKey != e.cnf.ApiKey || apiSecret != e.cnf.ApiSecret) {
		return nil, ErrInvalidCredentials
	}

	network := "mainnet"
	if testnet {
		network = "testnet"
	}
	key := network + ":" + apiKey

	e.mu.Lock()
	defer e.mu.Unlock()
	if g, ok := e.accounts[key]; ok {
		return g, nil
	}
	g, err := NewPaperGatewayFromConfig(e.cnf)
	if err != nil {
		return nil, err
	}
	e.accounts[key] = g
	logrus.WithFields(logrus.Fields{"network": network}).Info("paper exchange account opened")
	return g, nil
}
