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
	"strconv"

	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const operationWithdraw = "withdraw"

// WithdrawAck acknowledges a single withdrawal. The outcome is reported by
// a WithdrawalUpdate event once the worker is done.
type WithdrawAck struct {
	RecordID int64 `json:"log_id"`
}

func withdrawalKey(recordID int64) string {
	return "withdrawal:" + strconv.FormatInt(recordID, 10)
}

// Withdraw validates req, checks the free balance and launches the
// submission on a background worker.
//
// A balance problem is returned as an *ItemExecutionError. The attempt is
// still recorded as FAILED and announced with a WithdrawalUpdate.
func (w *Withdrawer) Withdraw(ctx context.Context, req SingleWithdrawal) (WithdrawAck, error) {
	ctx, span := tracer.Start(ctx, "Withdraw", trace.WithAttributes(
		attribute.String("withdrawal.coin", req.Coin),
		attribute.String("withdrawal.amount", req.Amount.String()),
	))
	defer span.End()

	if w.isClosed() {
		return WithdrawAck{}, ErrClosed
	}
	gateway, err := w.currentGateway()
	if err != nil {
		return WithdrawAck{}, err
	}

	req, err = w.validator.ValidateSingle(req)
	if err != nil {
		span.RecordError(err)
		return WithdrawAck{}, err
	}
	it := item{coin: req.Coin, network: req.Network, address: req.Address, tag: req.AddressTag, amount: req.Amount}

	if reason, cause := checkFunds(ctx, gateway, req.Coin, req.Amount); reason != "" {
		span.RecordError(cause)
		return WithdrawAck{}, w.rejectWithdrawal(ctx, it, reason, cause)
	}

	recordID, err := w.datasource.CreatePending(ctx, it.coin, it.network, it.address, it.amount, decimal.Zero)
	if err != nil {
		span.RecordError(err)
		return WithdrawAck{}, err
	}

	err = w.launch(withdrawalKey(recordID), func(ctx context.Context) {
		w.runWithdrawal(ctx, it, recordID)
	})
	if err != nil {
		if mErr := w.datasource.MarkFailed(context.WithoutCancel(ctx), recordID, err.Error()); mErr != nil {
			logrus.Errorf("failed to mark withdrawal %d failed: %v", recordID, mErr)
		}
		return WithdrawAck{}, err
	}

	return WithdrawAck{RecordID: recordID}, nil
}

// checkFunds returns a non empty reason when the free balance cannot cover
// amount.
func checkFunds(ctx context.Context, gateway Gateway, coin string, amount decimal.Decimal) (string, error) {
	balance, err := gateway.CheckBalance(ctx, coin)
	switch {
	case errors.Is(err, ErrBalanceNotFound):
		return fmt.Sprintf("no %s balance on the account", coin), err
	case err != nil:
		return fmt.Sprintf("failed to check %s balance: %v", coin, err), err
	case balance == nil:
		return fmt.Sprintf("no %s balance on the account", coin), ErrBalanceNotFound
	case balance.Free.LessThan(amount):
		reason := fmt.Sprintf("insufficient %s balance: free %s, requested %s", coin, balance.Free.String(), amount.String())
		return reason, errors.New(reason)
	}
	return "", nil
}

// rejectWithdrawal records a synchronous failure for the attempt itself.
func (w *Withdrawer) rejectWithdrawal(ctx context.Context, it item, reason string, cause error) error {
	rejection := &ItemExecutionError{Address: it.address, Amount: it.amount, Reason: reason, Err: cause}

	recordID, err := w.datasource.CreatePending(ctx, it.coin, it.network, it.address, it.amount, decimal.Zero)
	if err != nil {
		logrus.Errorf("failed to record rejected withdrawal: %v", err)
		return rejection
	}
	rejection.RecordID = recordID
	if err := w.datasource.MarkFailed(ctx, recordID, reason); err != nil {
		logrus.Errorf("failed to mark withdrawal %d failed: %v", recordID, err)
	}

	w.appendOperation(ctx, operationWithdraw, it.details(), model.OperationError, reason)
	w.publisher.Publish(WithdrawalUpdate{RecordID: recordID, Status: model.StatusFailed, Message: reason})
	return rejection
}

func (w *Withdrawer) runWithdrawal(ctx context.Context, it item, recordID int64) {
	res := model.ItemResult{Address: it.address, Amount: it.amount, RecordID: recordID, Status: model.StatusFailed}
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Status = model.StatusFailed
				res.Message = fmt.Sprintf("unexpected error: %v", r)
				if err := w.datasource.MarkFailed(context.WithoutCancel(ctx), recordID, res.Message); err != nil {
					logrus.Errorf("failed to mark withdrawal %d failed: %v", recordID, err)
				}
			}
		}()
		res = w.execute(ctx, it, recordID)
	}()

	if res.OK() {
		w.appendOperation(ctx, operationWithdraw, it.details(), model.OperationSuccess, "")
	} else {
		w.appendOperation(ctx, operationWithdraw, it.details(), model.OperationError, res.Message)
	}

	w.publisher.Publish(WithdrawalUpdate{
		RecordID: recordID,
		Status:   res.Status,
		TxID:     res.TxID,
		Message:  res.Message,
	})
}
