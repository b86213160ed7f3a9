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
	"testing"
	"time"

	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(addresses []string, amount int64) BatchWithdrawal {
	req := BatchWithdrawal{Coin: "USDT", Network: "TRC20"}
	for _, a := range addresses {
		req.Items = append(req.Items, BatchItem{Address: a, Amount: decimal.NewFromInt(amount)})
	}
	return req
}

func TestBatchWithdrawIsolatesItemFailure(t *testing.T) {
	f := newFixture()
	addresses := fakeAddresses(5)
	f.gateway.reject[addresses[2]] = "invalid address"

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(addresses, 10))
	require.NoError(t, err)
	assert.Len(t, ack.TaskID, 8)
	assert.Equal(t, 5, ack.Total)
	<-f.w.Done(ack.TaskID)

	task, err := f.w.GetTask(ack.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, model.TaskKindBatch, task.Kind)
	assert.Equal(t, 4, task.Completed)
	assert.Equal(t, 1, task.Failed)

	records := f.ledger.all()
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, addresses[i], rec.Address)
		assert.Equal(t, 1, f.ledger.transitionCount(rec.ID))
		if i == 2 {
			assert.Equal(t, model.StatusFailed, rec.Status)
			assert.Equal(t, "invalid address", rec.ErrorMessage)
		} else {
			assert.Equal(t, model.StatusSubmitted, rec.Status)
		}
	}

	events := drain(f.events)
	require.NotEmpty(t, events)
	assert.Equal(t, "batch_update", events[0].Name())
	assert.Equal(t, "batch_complete", events[len(events)-1].Name())

	progress := eventsNamed(events, "batch_progress")
	require.Len(t, progress, 5)
	for i, e := range progress {
		p := e.(ItemProgress)
		assert.Equal(t, i+1, p.Current)
		assert.Equal(t, 5, p.Total)
		assert.Equal(t, addresses[i], p.Address)
		if i == 2 {
			assert.Equal(t, ProgressFailed, p.Status)
			assert.Equal(t, "invalid address", p.Message)
		} else {
			assert.Equal(t, ProgressSuccess, p.Status)
		}
	}

	complete := events[len(events)-1].(TaskCompleted)
	assert.Equal(t, 4, complete.Completed)
	assert.Equal(t, 1, complete.Failed)

	// the courtesy delay follows every item, the last one included
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second, time.Second}, f.sleeper.recorded())

	ops := f.ledger.ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "batch_withdraw_start", ops[0].Operation)
	assert.Equal(t, "batch_withdraw_complete", ops[1].Operation)
}

func TestBatchWithdrawItemCeiling(t *testing.T) {
	f := newFixture(WithLimits(config.WithdrawalConfig{BatchMaxItems: 3}))

	_, err := f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(4), 1))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	f.w.Wait()
	assert.Empty(t, f.ledger.all())
	assert.Empty(t, f.w.ListTasks())

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(3), 1))
	require.NoError(t, err)
	<-f.w.Done(ack.TaskID)
	assert.Len(t, f.ledger.all(), 3)
}

func TestBatchWithdrawLedgerFailureOnItem(t *testing.T) {
	f := newFixture()
	addresses := fakeAddresses(3)
	f.ledger.createErr = func(address string) error {
		if address == addresses[0] {
			return errLedgerDown
		}
		return nil
	}

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(addresses, 1))
	require.NoError(t, err)
	<-f.w.Done(ack.TaskID)

	task, _ := f.w.GetTask(ack.TaskID)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, 2, task.Completed)
	assert.Equal(t, 1, task.Failed)
	assert.Len(t, f.ledger.all(), 2)
	assert.Len(t, f.gateway.requests(), 2)

	progress := eventsNamed(drain(f.events), "batch_progress")
	require.Len(t, progress, 3)
	first := progress[0].(ItemProgress)
	assert.Equal(t, addresses[0], first.Address)
	assert.Contains(t, first.Message, "ledger unavailable")
}

func TestBatchWithdrawGatewayPanicIsItemFailure(t *testing.T) {
	f := newFixture()
	addresses := fakeAddresses(3)
	f.gateway.panics[addresses[1]] = true

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(addresses, 2))
	require.NoError(t, err)
	<-f.w.Done(ack.TaskID)

	task, _ := f.w.GetTask(ack.TaskID)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, 2, task.Completed)
	assert.Equal(t, 1, task.Failed)

	records := f.ledger.all()
	require.Len(t, records, 3)
	assert.Equal(t, model.StatusFailed, records[1].Status)
	assert.Contains(t, records[1].ErrorMessage, "gateway exploded")

	// the failure is attributed to the item that failed
	progress := eventsNamed(drain(f.events), "batch_progress")
	require.Len(t, progress, 3)
	failed := progress[1].(ItemProgress)
	assert.Equal(t, addresses[1], failed.Address)
	assert.True(t, failed.Amount.Equal(decimal.NewFromInt(2)))
}

func TestBatchWithdrawExecutorFailure(t *testing.T) {
	f := newFixture()
	f.sleeper.hook = func(context.Context, int, time.Duration) error {
		panic("clock broke")
	}

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(3), 1))
	require.NoError(t, err)
	<-f.w.Done(ack.TaskID)

	task, _ := f.w.GetTask(ack.TaskID)
	assert.Equal(t, model.TaskFailed, task.Status)
	assert.Equal(t, 1, task.Completed)
	assert.Len(t, f.ledger.all(), 1)

	events := drain(f.events)
	assert.Empty(t, eventsNamed(events, "batch_complete"))
	errs := eventsNamed(events, "batch_error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].(TaskError).Message, "clock broke")

	ops := f.ledger.ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "batch_withdraw_error", ops[1].Operation)
	assert.Equal(t, model.OperationError, ops[1].Status)
}

func TestBatchWithdrawCancelledByClose(t *testing.T) {
	f := newFixture()
	sleeping := make(chan struct{})
	f.sleeper.hook = func(ctx context.Context, call int, _ time.Duration) error {
		if call == 1 {
			close(sleeping)
		}
		<-ctx.Done()
		return ctx.Err()
	}

	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(3), 1))
	require.NoError(t, err)
	<-sleeping

	events := f.w.Subscribe(64)
	go f.w.Close()
	<-f.w.Done(ack.TaskID)

	task, _ := f.w.GetTask(ack.TaskID)
	assert.Equal(t, model.TaskFailed, task.Status)
	assert.Equal(t, 1, task.Attempted())
	assert.Len(t, f.ledger.all(), 1)

	var taskErr TaskError
	for e := range events.Events() {
		if te, ok := e.(TaskError); ok {
			taskErr = te
		}
	}
	assert.Equal(t, "task cancelled", taskErr.Message)

	_, err = f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(1), 1))
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestGetTaskIsStable(t *testing.T) {
	f := newFixture()
	ack, err := f.w.BatchWithdraw(context.Background(), batchOf(fakeAddresses(2), 1))
	require.NoError(t, err)
	<-f.w.Done(ack.TaskID)

	first, err := f.w.GetTask(ack.TaskID)
	require.NoError(t, err)
	second, err := f.w.GetTask(ack.TaskID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = f.w.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
