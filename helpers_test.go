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

package withdrawer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

// memoryLedger is an in-memory IDataSource that counts status transitions.
type memoryLedger struct {
	mu          sync.Mutex
	nextID      int64
	records     map[int64]*model.WithdrawalRecord
	transitions map[int64]int
	operations  []model.OperationLog
	settings    map[string]string
	createErr   func(address string) error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		records:     make(map[int64]*model.WithdrawalRecord),
		transitions: make(map[int64]int),
		settings:    make(map[string]string),
	}
}

func (l *memoryLedger) CreatePending(_ context.Context, coin, network, address string, amount, fee decimal.Decimal) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		if err := l.createErr(address); err != nil {
			return 0, err
		}
	}
	l.nextID++
	now := time.Now()
	l.records[l.nextID] = &model.WithdrawalRecord{
		ID: l.nextID, Coin: coin, Network: network, Address: address, Amount: amount, Fee: fee,
		Status: model.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	return l.nextID, nil
}

func (l *memoryLedger) finish(id int64, status model.WithdrawalStatus, txID, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "Withdrawal record not found", nil)
	}
	if rec.Status != model.StatusPending {
		return apierror.NewAPIError(apierror.ErrConflict, "Withdrawal record is not pending", nil)
	}
	rec.Status, rec.TxID, rec.ErrorMessage, rec.UpdatedAt = status, txID, message, time.Now()
	l.transitions[id]++
	return nil
}

func (l *memoryLedger) MarkSubmitted(_ context.Context, id int64, txID string) error {
	return l.finish(id, model.StatusSubmitted, txID, "")
}

func (l *memoryLedger) MarkFailed(_ context.Context, id int64, errorMessage string) error {
	return l.finish(id, model.StatusFailed, "", errorMessage)
}

func (l *memoryLedger) GetWithdrawal(_ context.Context, id int64) (*model.WithdrawalRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Withdrawal record not found", nil)
	}
	copied := *rec
	return &copied, nil
}

func (l *memoryLedger) ListRecent(_ context.Context, limit int) ([]model.WithdrawalRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.WithdrawalRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *memoryLedger) AppendOperation(_ context.Context, name, details string, status model.OperationStatus, errorMessage string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operations = append(l.operations, model.OperationLog{
		ID: int64(len(l.operations) + 1), Operation: name, Details: details, Status: status,
		ErrorMessage: errorMessage, Timestamp: time.Now(),
	})
	return nil
}

func (l *memoryLedger) ListOperations(_ context.Context, limit int) ([]model.OperationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.OperationLog, 0, len(l.operations))
	for i := len(l.operations) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, l.operations[i])
	}
	return out, nil
}

func (l *memoryLedger) SaveSetting(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings[key] = value
	return nil
}

func (l *memoryLedger) GetSetting(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	value, ok := l.settings[key]
	if !ok {
		return "", apierror.NewAPIError(apierror.ErrNotFound, "Setting not found", nil)
	}
	return value, nil
}

func (l *memoryLedger) all() []model.WithdrawalRecord {
	records, _ := l.ListRecent(context.Background(), 0)
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func (l *memoryLedger) ops() []model.OperationLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.OperationLog(nil), l.operations...)
}

func (l *memoryLedger) transitionCount(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitions[id]
}

// stubGateway accepts every withdrawal unless the address is listed in
// reject or panics.
type stubGateway struct {
	mu           sync.Mutex
	txID         string
	balances     map[string]decimal.Decimal
	balanceErr   error
	reject       map[string]string
	panics       map[string]bool
	block        chan struct{}
	calls        []model.WithdrawRequest
	accountCalls int
	accountErr   error
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(1_000_000)},
		reject:   make(map[string]string),
		panics:   make(map[string]bool),
	}
}

func (g *stubGateway) CheckBalance(_ context.Context, asset string) (*model.Balance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balanceErr != nil {
		return nil, g.balanceErr
	}
	free, ok := g.balances[asset]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	return &model.Balance{Asset: asset, Free: free, Locked: decimal.Zero}, nil
}

func (g *stubGateway) Withdraw(ctx context.Context, req model.WithdrawRequest) (model.WithdrawResult, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return model.WithdrawResult{}, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.panics[req.Address] {
		panic("gateway exploded")
	}
	if reason, ok := g.reject[req.Address]; ok {
		return model.WithdrawResult{OK: false, Message: reason}, nil
	}
	txID := g.txID
	if txID == "" {
		txID = fmt.Sprintf("tx%d", len(g.calls))
	}
	return model.WithdrawResult{OK: true, Message: "ok", TxID: txID}, nil
}

func (g *stubGateway) AccountInfo(_ context.Context) (*model.AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accountCalls++
	if g.accountErr != nil {
		return nil, g.accountErr
	}
	info := &model.AccountInfo{AccountType: "SPOT", CanTrade: true, CanWithdraw: true, CanDeposit: true}
	for asset, free := range g.balances {
		info.Balances = append(info.Balances, model.Balance{Asset: asset, Free: free})
	}
	return info, nil
}

func (g *stubGateway) requests() []model.WithdrawRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.WithdrawRequest(nil), g.calls...)
}

func (g *stubGateway) accountCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accountCalls
}

// recordingSleeper returns immediately and remembers every requested pause.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	hook   func(ctx context.Context, call int, d time.Duration) error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	call := len(s.sleeps)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		return hook(ctx, call, d)
	}
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// drain collects everything buffered on sub without blocking.
func drain(sub *Subscription) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventsNamed(events []Event, name string) []Event {
	var out []Event
	for _, e := range events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func fakeAddress() string {
	return "0x" + gofakeit.LetterN(40)
}

func fakeAddresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fakeAddress()
	}
	return out
}

var errLedgerDown = errors.New("ledger unavailable")

type fixture struct {
	ledger  *memoryLedger
	gateway *stubGateway
	sleeper *recordingSleeper
	w       *Withdrawer
	events  *Subscription
}

func stubConnector(g Gateway) Connector {
	return func(context.Context, ExchangeCredentials) (Gateway, error) { return g, nil }
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		ledger:  newMemoryLedger(),
		gateway: newStubGateway(),
		sleeper: &recordingSleeper{},
	}
	opts = append([]Option{WithSleeper(f.sleeper.Sleep)}, opts...)
	f.w = New(f.ledger, f.gateway, opts...)
	f.events = f.w.Subscribe(4096)
	return f
}
