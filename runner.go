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
	"time"

	"github.com/lorenzopapa2/withdrawer/internal/notification"
	redlock "github.com/lorenzopapa2/withdrawer/internal/lock"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	destinationLockTimeout = 30 * time.Second
	destinationLockWait    = 10 * time.Second
)

var (
	errTaskCancelled   = errors.New("task cancelled")
	errBookkeepingLost = errors.New("task is no longer tracked by the registry")
)

// item is one withdrawal as the workers see it. Smart tasks resolve the
// amount right before the item is recorded.
type item struct {
	index   int
	coin    string
	network string
	address string
	tag     string
	amount  decimal.Decimal
}

func (it item) request() model.WithdrawRequest {
	return model.WithdrawRequest{
		Coin:       it.coin,
		Address:    it.address,
		Amount:     it.amount,
		Network:    it.network,
		AddressTag: it.tag,
	}
}

func (it item) details() string {
	return fmt.Sprintf("%s %s -> %s", it.coin, it.amount.String(), it.address)
}

// taskPlan describes how a task walks its items.
type taskPlan struct {
	kind      model.TaskKind
	operation string
	coin      string
	network   string
	items     []item
	// amount resolves the amount of every item when set.
	amount func() decimal.Decimal
	// interval is the pause between two items when set.
	interval func() time.Duration
	// delay is the pause after every item, the last one included.
	delay time.Duration
}

func (w *Withdrawer) appendOperation(ctx context.Context, name, details string, status model.OperationStatus, errorMessage string) {
	if err := w.datasource.AppendOperation(context.WithoutCancel(ctx), name, details, status, errorMessage); err != nil {
		logrus.WithFields(logrus.Fields{"operation": name}).Errorf("failed to append operation log: %v", err)
	}
}

// lockDestination holds the per destination lock when a locker is
// configured. The returned release is always safe to call.
func (w *Withdrawer) lockDestination(ctx context.Context, coin, address string) (func(), error) {
	if w.locks == nil {
		return func() {}, nil
	}
	locker := redlock.NewWithdrawalLocker(w.locks, coin, address)
	if err := locker.WaitLock(ctx, destinationLockTimeout, w.lockWait); err != nil {
		return func() {}, err
	}
	return func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.Warnf("failed to release %s: %v", locker.Key(), err)
		}
	}, nil
}

// execute submits a recorded item to the gateway and moves its record to a
// terminal status. The ledger writes survive cancellation of ctx.
func (w *Withdrawer) execute(ctx context.Context, it item, recordID int64) model.ItemResult {
	ctx, span := tracer.Start(ctx, "Execute Withdrawal", trace.WithAttributes(
		attribute.Int64("record.id", recordID),
		attribute.String("withdrawal.coin", it.coin),
		attribute.String("withdrawal.amount", it.amount.String()),
	))
	defer span.End()

	res := model.ItemResult{
		Index:    it.index,
		Address:  it.address,
		Amount:   it.amount,
		RecordID: recordID,
		Status:   model.StatusFailed,
	}
	logger := logrus.WithFields(logrus.Fields{"record_id": recordID, "coin": it.coin, "address": it.address})

	gateway, err := w.currentGateway()
	release := func() {}
	if err == nil {
		release, err = w.lockDestination(ctx, it.coin, it.address)
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		res.Message = err.Error()
	case err != nil:
		res.Message = "destination is locked by another withdrawal"
		logger.Warnf("%s: %v", res.Message, err)
	default:
		result, gErr := gateway.Withdraw(ctx, it.request())
		release()
		switch {
		case gErr != nil:
			res.Message = gErr.Error()
		case !result.OK:
			res.Message = result.Message
			if res.Message == "" {
				res.Message = "withdrawal rejected by the exchange"
			}
		default:
			res.Status = model.StatusSubmitted
			res.TxID = result.TxID
			res.Message = result.Message
			if res.Message == "" {
				res.Message = "withdrawal submitted"
			}
		}
	}

	ledgerCtx := context.WithoutCancel(ctx)
	if res.OK() {
		if err := w.datasource.MarkSubmitted(ledgerCtx, recordID, res.TxID); err != nil {
			// The exchange accepted the withdrawal, the ledger now understates it.
			logger.Errorf("failed to mark withdrawal submitted: %v", err)
			span.RecordError(err)
		}
		w.invalidateAccount(ledgerCtx)
		logger.WithField("tx_id", res.TxID).Info("withdrawal submitted")
	} else {
		if err := w.datasource.MarkFailed(ledgerCtx, recordID, res.Message); err != nil {
			logger.Errorf("failed to mark withdrawal failed: %v", err)
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, res.Message)
		logger.Warnf("withdrawal failed: %s", res.Message)
	}
	return res
}

// attempt records and executes one task item. Any failure, a panic
// included, is turned into a failed result carrying the item's own values.
func (w *Withdrawer) attempt(ctx context.Context, plan *taskPlan, it item) (res model.ItemResult) {
	res = model.ItemResult{Index: it.index, Address: it.address, Amount: it.amount, Status: model.StatusFailed}
	defer func() {
		if r := recover(); r != nil {
			res.Status = model.StatusFailed
			res.TxID = ""
			res.Message = fmt.Sprintf("unexpected error: %v", r)
			logrus.WithFields(logrus.Fields{"address": res.Address, "index": res.Index}).Error(res.Message)
			if res.RecordID != 0 {
				if err := w.datasource.MarkFailed(context.WithoutCancel(ctx), res.RecordID, res.Message); err != nil {
					logrus.Errorf("failed to mark withdrawal %d failed: %v", res.RecordID, err)
				}
			}
		}
	}()

	if plan.amount != nil {
		it.amount = plan.amount()
		res.Amount = it.amount
	}

	recordID, err := w.datasource.CreatePending(context.WithoutCancel(ctx), it.coin, it.network, it.address, it.amount, decimal.Zero)
	if err != nil {
		res.Message = fmt.Sprintf("failed to record withdrawal: %v", err)
		logrus.WithFields(logrus.Fields{"address": it.address}).Error(res.Message)
		return res
	}
	res.RecordID = recordID

	return w.execute(ctx, it, recordID)
}

// runTask is the body of a batch or smart worker.
func (w *Withdrawer) runTask(ctx context.Context, task model.Task, plan *taskPlan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("Run %s Task", task.Kind), trace.WithAttributes(
		attribute.String("task.id", task.TaskID),
		attribute.Int("task.total", task.Total),
	))
	defer span.End()

	logger := logrus.WithFields(logrus.Fields{"task_id": task.TaskID, "type": task.Kind})
	logger.Infof("task started with %d items", task.Total)

	w.publisher.Publish(TaskStarted{
		TaskID:  task.TaskID,
		Kind:    task.Kind,
		Total:   task.Total,
		Status:  model.TaskProcessing,
		Message: startMessage(task.Kind, task.Total),
	})
	w.appendOperation(ctx, plan.operation+"_start",
		fmt.Sprintf("task %s, %s on %s, %d addresses", task.TaskID, plan.coin, plan.network, task.Total),
		model.OperationSuccess, "")

	if err := w.runItems(ctx, task, plan); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.abortTask(ctx, task, plan, err)
		return
	}

	final, ok := w.registry.finish(task.TaskID, model.TaskCompleted)
	if !ok {
		w.abortTask(ctx, task, plan, errBookkeepingLost)
		return
	}
	w.publisher.Publish(TaskCompleted{
		TaskID:    final.TaskID,
		Kind:      final.Kind,
		Completed: final.Completed,
		Failed:    final.Failed,
		Message:   completeMessage(final.Kind, final.Completed, final.Failed),
	})
	w.appendOperation(ctx, plan.operation+"_complete",
		fmt.Sprintf("task %s, completed %d, failed %d", final.TaskID, final.Completed, final.Failed),
		model.OperationSuccess, "")
	logger.Infof("task completed: %d succeeded, %d failed", final.Completed, final.Failed)
}

// runItems walks the items in order. An error means the task must abort.
func (w *Withdrawer) runItems(ctx context.Context, task model.Task, plan *taskPlan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	last := len(plan.items) - 1
	for i, it := range plan.items {
		if ctx.Err() != nil {
			return errTaskCancelled
		}

		res := w.attempt(ctx, plan, it)
		snapshot, ok := w.registry.markItem(task.TaskID, res.OK())
		if !ok {
			return errBookkeepingLost
		}
		w.publisher.Publish(ItemProgress{
			TaskID:  task.TaskID,
			Kind:    task.Kind,
			Current: i + 1,
			Total:   snapshot.Total,
			Address: res.Address,
			Amount:  res.Amount,
			Status:  progressStatus(res.OK()),
			Message: res.Message,
			TxID:    res.TxID,
		})

		if plan.interval != nil && i < last {
			wait := plan.interval()
			seconds := int(wait / time.Second)
			w.publisher.Publish(TaskWaiting{
				TaskID:  task.TaskID,
				NextIn:  seconds,
				Message: fmt.Sprintf("waiting %d seconds before the next address", seconds),
			})
			if err := w.sleep(ctx, wait); err != nil {
				return errTaskCancelled
			}
		}

		if plan.delay > 0 {
			if err := w.sleep(ctx, plan.delay); err != nil && i < last {
				return errTaskCancelled
			}
		}
	}
	return nil
}

// abortTask marks the task FAILED and reports cause.
func (w *Withdrawer) abortTask(ctx context.Context, task model.Task, plan *taskPlan, cause error) {
	fatal := &ExecutorFatalError{TaskID: task.TaskID, Cause: cause}
	w.registry.finish(task.TaskID, model.TaskFailed)

	w.publisher.Publish(TaskError{
		TaskID:  task.TaskID,
		Kind:    task.Kind,
		Message: cause.Error(),
	})
	w.appendOperation(ctx, plan.operation+"_error",
		fmt.Sprintf("task %s, error: %s", task.TaskID, cause.Error()),
		model.OperationError, cause.Error())

	logrus.WithFields(logrus.Fields{"task_id": task.TaskID, "type": task.Kind}).Error(fatal)
	notification.NotifyError(fatal)
}
