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
	"time"

	"github.com/lorenzopapa2/withdrawer/model"
)

const operationBatch = "batch_withdraw"

// TaskAck acknowledges a batch or smart withdrawal. Progress is reported
// through events and GetTask.
type TaskAck struct {
	TaskID string `json:"task_id"`
	Total  int    `json:"total"`
}

// BatchWithdraw validates req and processes its items in order on a
// background worker, pausing the configured delay after every item.
func (w *Withdrawer) BatchWithdraw(ctx context.Context, req BatchWithdrawal) (TaskAck, error) {
	_, span := tracer.Start(ctx, "Batch Withdraw")
	defer span.End()

	if _, err := w.currentGateway(); err != nil {
		span.RecordError(err)
		return TaskAck{}, err
	}

	req, err := w.validator.ValidateBatch(req)
	if err != nil {
		span.RecordError(err)
		return TaskAck{}, err
	}

	items := make([]item, len(req.Items))
	for i, it := range req.Items {
		items[i] = item{
			index:   i,
			coin:    req.Coin,
			network: req.Network,
			address: it.Address,
			tag:     it.AddressTag,
			amount:  it.Amount,
		}
	}

	return w.startTask(&taskPlan{
		kind:      model.TaskKindBatch,
		operation: operationBatch,
		coin:      req.Coin,
		network:   req.Network,
		items:     items,
		delay:     time.Duration(w.validator.Limits().BatchDelaySeconds) * time.Second,
	})
}

// startTask registers the task and launches its worker.
func (w *Withdrawer) startTask(plan *taskPlan) (TaskAck, error) {
	if w.isClosed() {
		return TaskAck{}, ErrClosed
	}

	task := w.registry.Create(plan.kind, len(plan.items))
	err := w.launch(task.TaskID, func(ctx context.Context) {
		w.runTask(ctx, task, plan)
	})
	if err != nil {
		w.registry.finish(task.TaskID, model.TaskFailed)
		return TaskAck{}, err
	}
	return TaskAck{TaskID: task.TaskID, Total: task.Total}, nil
}
