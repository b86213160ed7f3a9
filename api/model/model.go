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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lorenzopapa2/withdrawer"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

var errIncomplete = errors.New("please fill in the complete withdrawal information")

func positiveAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if !amount.IsPositive() {
		return errors.New("must be greater than 0")
	}
	return nil
}

func (w *CreateWithdrawal) ValidateCreateWithdrawal() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Coin, validation.Required),
		validation.Field(&w.Address, validation.Required),
		validation.Field(&w.Amount, validation.By(positiveAmount)),
	)
}

func (a BatchAddress) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address, validation.Required),
		validation.Field(&a.Amount, validation.By(positiveAmount)),
	)
}

func (b *CreateBatchWithdrawal) ValidateCreateBatchWithdrawal() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Coin, validation.Required),
		validation.Field(&b.Network, validation.Required),
		validation.Field(&b.Addresses, validation.Required),
	)
}

func (a SmartAddress) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address, validation.Required),
	)
}

func (s *CreateSmartWithdrawal) ValidateCreateSmartWithdrawal() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Coin, validation.Required),
		validation.Field(&s.Network, validation.Required),
		validation.Field(&s.Addresses, validation.Required),
		validation.Field(&s.AmountConfig, validation.By(func(value interface{}) error {
			cfg, _ := value.(model.AmountConfig)
			if cfg.Mode == "" {
				return errIncomplete
			}
			return nil
		})),
		validation.Field(&s.IntervalConfig, validation.By(func(value interface{}) error {
			cfg, _ := value.(model.IntervalConfig)
			if cfg.Min == 0 && cfg.Max == 0 {
				return errIncomplete
			}
			return nil
		})),
	)
}

func (u *UpdateExchangeConfig) ValidateUpdateExchangeConfig() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.ApiKey, validation.Required),
		validation.Field(&u.ApiSecret, validation.Required),
	)
}

func (w *CreateWithdrawal) ToSingleWithdrawal() withdrawer.SingleWithdrawal {
	return withdrawer.SingleWithdrawal{
		Coin:       w.Coin,
		Network:    w.Network,
		Address:    w.Address,
		AddressTag: w.AddressTag,
		Amount:     w.Amount,
	}
}

func (b *CreateBatchWithdrawal) ToBatchWithdrawal() withdrawer.BatchWithdrawal {
	items := make([]withdrawer.BatchItem, len(b.Addresses))
	for i, a := range b.Addresses {
		items[i] = withdrawer.BatchItem{Address: a.Address, AddressTag: a.AddressTag, Amount: a.Amount}
	}
	return withdrawer.BatchWithdrawal{Coin: b.Coin, Network: b.Network, Items: items}
}

func (s *CreateSmartWithdrawal) ToSmartWithdrawal() withdrawer.SmartWithdrawal {
	recipients := make([]withdrawer.SmartRecipient, len(s.Addresses))
	for i, a := range s.Addresses {
		recipients[i] = withdrawer.SmartRecipient{Address: a.Address, AddressTag: a.Tag}
	}
	return withdrawer.SmartWithdrawal{
		Coin:       s.Coin,
		Network:    s.Network,
		Recipients: recipients,
		Amount:     s.AmountConfig,
		Interval:   s.IntervalConfig,
	}
}
