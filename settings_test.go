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

	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/internal/tokenization"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveExchangeSettings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.w.SaveExchangeSettings(ctx, "  0123456789abcdefXYZ  ", "secret", true)
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdefXYZ", f.ledger.settings["api_key"])
	assert.Equal(t, "secret", f.ledger.settings["api_secret"])
	assert.Equal(t, "true", f.ledger.settings["testnet"])

	ops := f.ledger.ops()
	require.Len(t, ops, 1)
	assert.Equal(t, "exchange_config", ops[0].Operation)
	assert.Equal(t, model.OperationSuccess, ops[0].Status)

	logs := eventsNamed(drain(f.events), "log_update")
	require.Len(t, logs, 1)
	assert.Equal(t, "success", logs[0].(LogUpdate).Type)

	settings, err := f.w.ExchangeSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "01234567***bcdefXYZ", settings.ApiKey)
	assert.True(t, settings.Testnet)
	assert.True(t, settings.Connected)
}

func TestSaveExchangeSettingsConnectionFailure(t *testing.T) {
	f := newFixture()
	f.gateway.accountErr = errors.New("invalid signature")

	err := f.w.SaveExchangeSettings(context.Background(), "key", "secret", false)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrUnavailable))
	assert.Empty(t, f.ledger.settings)

	ops := f.ledger.ops()
	require.Len(t, ops, 1)
	assert.Equal(t, model.OperationError, ops[0].Status)
	assert.Equal(t, "invalid signature", ops[0].ErrorMessage)
}

func TestSaveExchangeSettingsRequiresCredentials(t *testing.T) {
	f := newFixture()
	err := f.w.SaveExchangeSettings(context.Background(), "", "secret", false)
	assert.True(t, IsValidationError(err))
}

func TestExchangeSettingsEmpty(t *testing.T) {
	f := newFixture()
	f.gateway.accountErr = errors.New("not configured")

	settings, err := f.w.ExchangeSettings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings.ApiKey)
	assert.False(t, settings.Testnet)
	assert.False(t, settings.Connected)
}

func TestHistoryAndOperationsLimits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.w.Withdraw(ctx, SingleWithdrawal{Coin: "USDT", Address: fakeAddress(), Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}
	f.w.Wait()

	history, err := f.w.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Greater(t, history[0].ID, history[1].ID)

	all, err := f.w.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ops, err := f.w.Operations(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, ops, 3)

	assert.Equal(t, 50, clampLimit(0, defaultHistoryLimit))
	assert.Equal(t, maxListLimit, clampLimit(5000, defaultHistoryLimit))
	assert.Equal(t, 10, clampLimit(10, defaultHistoryLimit))
}

func TestSaveExchangeSettingsSealsSecret(t *testing.T) {
	sealer := tokenization.NewTokenizationService(tokenization.DeriveKey("config-secret"))
	f := newFixture(WithSecretSealer(sealer))
	ctx := context.Background()

	require.NoError(t, f.w.SaveExchangeSettings(ctx, "api-key", "very-secret", false))

	stored := f.ledger.settings["api_secret"]
	assert.True(t, tokenization.IsToken(stored))
	assert.NotContains(t, stored, "very-secret")

	creds, err := f.w.ExchangeCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "api-key", creds.ApiKey)
	assert.Equal(t, "very-secret", creds.ApiSecret)
	assert.False(t, creds.Testnet)
}

func TestExchangeCredentials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.w.ExchangeCredentials(ctx)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))

	require.NoError(t, f.w.SaveExchangeSettings(ctx, "api-key", "plain-secret", true))
	creds, err := f.w.ExchangeCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "plain-secret", creds.ApiSecret)
	assert.True(t, creds.Testnet)

	// a sealed secret cannot be opened without the tokenization secret
	f.ledger.settings["api_secret"] = tokenization.TokenPrefix + "AAAA"
	_, err = f.w.ExchangeCredentials(ctx)
	assert.True(t, apierror.IsCode(err, apierror.ErrInternalServer))
}

func TestSaveExchangeSettingsSwitchesGateway(t *testing.T) {
	ledger := newMemoryLedger()
	gateway := newStubGateway()
	gateway.txID = "tx-after-config"
	var used ExchangeCredentials
	w := New(ledger, nil, WithConnector(func(_ context.Context, creds ExchangeCredentials) (Gateway, error) {
		used = creds
		return gateway, nil
	}))
	defer w.Close()
	ctx := context.Background()

	_, err := w.Withdraw(ctx, SingleWithdrawal{Coin: "USDT", Address: "0xABC", Amount: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, w.SaveExchangeSettings(ctx, "new-key", "new-secret", true))
	assert.Equal(t, ExchangeCredentials{ApiKey: "new-key", ApiSecret: "new-secret", Testnet: true}, used)

	_, err = w.Withdraw(ctx, SingleWithdrawal{Coin: "USDT", Address: "0xABC", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	w.Wait()

	records := ledger.all()
	require.Len(t, records, 1)
	assert.Equal(t, "tx-after-config", records[0].TxID)

	settings, err := w.ExchangeSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.Connected)
}

func TestSaveExchangeSettingsRejectedCredentials(t *testing.T) {
	ledger := newMemoryLedger()
	w := New(ledger, nil, WithConnector(func(context.Context, ExchangeCredentials) (Gateway, error) {
		return nil, errors.New("invalid api key or secret")
	}))
	defer w.Close()

	err := w.SaveExchangeSettings(context.Background(), "bad-key", "bad-secret", false)
	assert.True(t, apierror.IsCode(err, apierror.ErrUnavailable))
	assert.Empty(t, ledger.settings)

	_, err = w.Balance(context.Background(), "USDT")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
