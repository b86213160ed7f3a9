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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/internal/tokenization"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/sirupsen/logrus"
)

const (
	settingApiKey    = "api_key"
	settingApiSecret = "api_secret"
	settingTestnet   = "testnet"

	operationExchangeConfig = "exchange_config"

	defaultHistoryLimit    = 50
	defaultOperationsLimit = 100
	maxListLimit           = 1000
)

// ExchangeSettings is the display form of the stored exchange credentials.
type ExchangeSettings struct {
	ApiKey    string `json:"api_key"`
	Testnet   bool   `json:"testnet"`
	Connected bool   `json:"connected"`
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// History returns the most recent withdrawal records, newest first.
func (w *Withdrawer) History(ctx context.Context, limit int) ([]model.WithdrawalRecord, error) {
	return w.datasource.ListRecent(ctx, clampLimit(limit, defaultHistoryLimit))
}

// Operations returns the most recent operation log entries.
func (w *Withdrawer) Operations(ctx context.Context, limit int) ([]model.OperationLog, error) {
	return w.datasource.ListOperations(ctx, clampLimit(limit, defaultOperationsLimit))
}

// dial opens a gateway for creds and checks it answers. Without a connector
// the current gateway is checked instead.
func (w *Withdrawer) dial(ctx context.Context, creds ExchangeCredentials) (Gateway, error) {
	var (
		gateway Gateway
		err     error
	)
	if w.connector != nil {
		gateway, err = w.connector(ctx, creds)
	} else {
		gateway, err = w.currentGateway()
	}
	if err != nil {
		return nil, err
	}
	if _, err := gateway.AccountInfo(ctx); err != nil {
		return nil, err
	}
	return gateway, nil
}

// SaveExchangeSettings connects to the exchange with the given credentials,
// stores them and switches every later withdrawal to the new connection. The
// attempt is written to the operation log either way.
func (w *Withdrawer) SaveExchangeSettings(ctx context.Context, apiKey, apiSecret string, testnet bool) error {
	apiKey, apiSecret = strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret)
	if apiKey == "" || apiSecret == "" {
		return &ValidationError{Field: "api_key", Message: "api key and secret are required"}
	}

	gateway, err := w.dial(ctx, ExchangeCredentials{ApiKey: apiKey, ApiSecret: apiSecret, Testnet: testnet})
	if err != nil {
		w.appendOperation(ctx, operationExchangeConfig, "exchange connection failed", model.OperationError, err.Error())
		return apierror.NewAPIError(apierror.ErrUnavailable, "exchange connection failed", err)
	}

	storedSecret := apiSecret
	if w.sealer != nil {
		sealed, err := w.sealer.Tokenize(apiSecret)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "failed to seal the api secret", err)
		}
		storedSecret = sealed
	}

	settings := [][2]string{
		{settingApiKey, apiKey},
		{settingApiSecret, storedSecret},
		{settingTestnet, strconv.FormatBool(testnet)},
	}
	for _, s := range settings {
		if err := w.datasource.SaveSetting(ctx, s[0], s[1]); err != nil {
			return err
		}
	}

	w.setGateway(gateway)
	w.invalidateAccount(ctx)

	message := fmt.Sprintf("connected to the exchange (testnet: %t)", testnet)
	w.appendOperation(ctx, operationExchangeConfig, message, model.OperationSuccess, "")
	w.publisher.Publish(LogUpdate{Type: "success", Message: message, Timestamp: time.Now()})
	return nil
}

// ExchangeCredentials is the unmasked form used to sign exchange requests.
type ExchangeCredentials struct {
	ApiKey    string
	ApiSecret string
	Testnet   bool
}

// ExchangeCredentials reads the stored credentials, opening a sealed secret.
// It returns a NOT_FOUND error when none were saved.
func (w *Withdrawer) ExchangeCredentials(ctx context.Context) (ExchangeCredentials, error) {
	var creds ExchangeCredentials

	key, err := w.datasource.GetSetting(ctx, settingApiKey)
	if err != nil {
		return creds, err
	}
	secret, err := w.datasource.GetSetting(ctx, settingApiSecret)
	if err != nil {
		return creds, err
	}
	if tokenization.IsToken(secret) {
		if w.sealer == nil {
			return creds, apierror.NewAPIError(apierror.ErrInternalServer, "api secret is sealed but no tokenization secret is configured", nil)
		}
		if secret, err = w.sealer.Detokenize(secret); err != nil {
			return creds, apierror.NewAPIError(apierror.ErrInternalServer, "failed to open the api secret", err)
		}
	}
	testnet, err := w.datasource.GetSetting(ctx, settingTestnet)
	if err != nil && !apierror.IsCode(err, apierror.ErrNotFound) {
		return creds, err
	}

	creds.ApiKey = key
	creds.ApiSecret = secret
	creds.Testnet, _ = strconv.ParseBool(testnet)
	return creds, nil
}

// ExchangeSettings returns the stored key masked for display.
func (w *Withdrawer) ExchangeSettings(ctx context.Context) (ExchangeSettings, error) {
	var settings ExchangeSettings

	key, err := w.datasource.GetSetting(ctx, settingApiKey)
	if err != nil && !apierror.IsCode(err, apierror.ErrNotFound) {
		return settings, err
	}
	settings.ApiKey = model.MaskSecret(key)

	testnet, err := w.datasource.GetSetting(ctx, settingTestnet)
	if err != nil && !apierror.IsCode(err, apierror.ErrNotFound) {
		return settings, err
	}
	settings.Testnet, _ = strconv.ParseBool(testnet)

	if gateway, err := w.currentGateway(); err == nil {
		_, err = gateway.AccountInfo(ctx)
		settings.Connected = err == nil
	}
	return settings, nil
}

// Connect restores the exchange connection from the stored credentials, or
// from fallback when none were saved.
func (w *Withdrawer) Connect(ctx context.Context, fallback ExchangeCredentials) error {
	creds, err := w.ExchangeCredentials(ctx)
	switch {
	case apierror.IsCode(err, apierror.ErrNotFound):
		if fallback.ApiKey == "" || fallback.ApiSecret == "" {
			return ErrNotConfigured
		}
		creds = fallback
	case err != nil:
		return err
	}

	gateway, err := w.dial(ctx, creds)
	if err != nil {
		return err
	}
	w.setGateway(gateway)
	logrus.WithField("testnet", creds.Testnet).Info("connected to the exchange")
	return nil
}
