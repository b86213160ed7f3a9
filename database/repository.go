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

package database

import (
	"context"

	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

// IDataSource groups the persistence operations used by the withdrawer.
type IDataSource interface {
	withdrawal
	operation
	setting
}

// withdrawal stores one record per attempted item. Records move from
// PENDING to a terminal status exactly once.
type withdrawal interface {
	CreatePending(ctx context.Context, coin, network, address string, amount, fee decimal.Decimal) (int64, error)
	MarkSubmitted(ctx context.Context, id int64, txID string) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	GetWithdrawal(ctx context.Context, id int64) (*model.WithdrawalRecord, error)
	ListRecent(ctx context.Context, limit int) ([]model.WithdrawalRecord, error)
}

// operation is the append-only audit trail.
type operation interface {
	AppendOperation(ctx context.Context, name, details string, status model.OperationStatus, errorMessage string) error
	ListOperations(ctx context.Context, limit int) ([]model.OperationLog, error)
}

type setting interface {
	SaveSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)
}
