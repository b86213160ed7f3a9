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
package mocks

import (
	"context"

	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Withdrawal methods

func (m *MockDataSource) CreatePending(ctx context.Context, coin, network, address string, amount, fee decimal.Decimal) (int64, error) {
	args := m.Called(ctx, coin, network, address, amount, fee)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) MarkSubmitted(ctx context.Context, id int64, txID string) error {
	args := m.Called(ctx, id, txID)
	return args.Error(0)
}

func (m *MockDataSource) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

func (m *MockDataSource) GetWithdrawal(ctx context.Context, id int64) (*model.WithdrawalRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WithdrawalRecord), args.Error(1)
}

func (m *MockDataSource) ListRecent(ctx context.Context, limit int) ([]model.WithdrawalRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WithdrawalRecord), args.Error(1)
}

// Operation log methods

func (m *MockDataSource) AppendOperation(ctx context.Context, name, details string, status model.OperationStatus, errorMessage string) error {
	args := m.Called(ctx, name, details, status, errorMessage)
	return args.Error(0)
}

func (m *MockDataSource) ListOperations(ctx context.Context, limit int) ([]model.OperationLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OperationLog), args.Error(1)
}

// Setting methods

func (m *MockDataSource) SaveSetting(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockDataSource) GetSetting(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
