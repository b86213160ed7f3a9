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
	"github.com/shopspring/decimal"
)

const operationSmart = "smart_withdraw"

// SmartWithdraw validates req and processes every recipient on a background
// worker. Amounts come from the amount policy and a random interval
// separates consecutive recipients.
func (w *Withdrawer) SmartWithdraw(ctx context.Context, req SmartWithdrawal) (TaskAck, error) {
	_, span := tracer.Start(ctx, "Smart Withdraw")
	defer span.End()

	if _, err := w.currentGateway(); err != nil {
		span.RecordError(err)
		return TaskAck{}, err
	}

	req, err := w.validator.ValidateSmart(req)
	if err != nil {
		span.RecordError(err)
		return TaskAck{}, err
	}
	return w.startSmart(req)
}

// startSmart launches an already normalized smart withdrawal.
func (w *Withdrawer) startSmart(req SmartWithdrawal) (TaskAck, error) {
	items := make([]item, len(req.Recipients))
	for i, r := range req.Recipients {
		items[i] = item{
			index:   i,
			coin:    req.Coin,
			network: req.Network,
			address: r.Address,
			tag:     r.AddressTag,
		}
	}

	rng := w.newRand()
	amountCfg, intervalCfg := req.Amount, req.Interval
	return w.startTask(&taskPlan{
		kind:      model.TaskKindSmart,
		operation: operationSmart,
		coin:      req.Coin,
		network:   req.Network,
		items:     items,
		amount: func() decimal.Decimal {
			return ResolveAmount(amountCfg, rng)
		},
		interval: func() time.Duration {
			return ResolveInterval(intervalCfg, rng)
		},
	})
}
