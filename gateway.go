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

	"github.com/lorenzopapa2/withdrawer/internal/exchange"
	"github.com/lorenzopapa2/withdrawer/model"
)

// ErrBalanceNotFound is returned by gateways when the account holds no
// entry for the asset.
var ErrBalanceNotFound = exchange.ErrBalanceNotFound

// Gateway is the exchange account the withdrawals are drawn from.
type Gateway interface {
	CheckBalance(ctx context.Context, asset string) (*model.Balance, error)
	Withdraw(ctx context.Context, req model.WithdrawRequest) (model.WithdrawResult, error)
	AccountInfo(ctx context.Context) (*model.AccountInfo, error)
}

// Connector opens a gateway for the given exchange credentials.
type Connector func(ctx context.Context, creds ExchangeCredentials) (Gateway, error)
