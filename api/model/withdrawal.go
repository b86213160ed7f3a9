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
package model

import (
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

type CreateWithdrawal struct {
	Coin       string          `json:"coin"`
	Network    string          `json:"network"`
	Address    string          `json:"address"`
	AddressTag string          `json:"address_tag"`
	Amount     decimal.Decimal `json:"amount"`
}

type BatchAddress struct {
	Address    string          `json:"address"`
	AddressTag string          `json:"addressTag"`
	Amount     decimal.Decimal `json:"amount"`
}

type CreateBatchWithdrawal struct {
	Coin      string         `json:"coin"`
	Network   string         `json:"network"`
	Addresses []BatchAddress `json:"addresses"`
}

type SmartAddress struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
}

type CreateSmartWithdrawal struct {
	Coin           string               `json:"coin"`
	Network        string               `json:"network"`
	Addresses      []SmartAddress       `json:"addresses"`
	AmountConfig   model.AmountConfig   `json:"amount_config"`
	IntervalConfig model.IntervalConfig `json:"interval_config"`
}

type UpdateExchangeConfig struct {
	ApiKey    string `json:"api_key"`
	ApiSecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"`
}

// Ack is returned by every endpoint that starts work in the background.
type Ack struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RecordID int64  `json:"log_id,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
}
