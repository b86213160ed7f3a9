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
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

// SingleWithdrawal requests one withdrawal to one address.
type SingleWithdrawal struct {
	Coin       string
	Network    string
	Address    string
	AddressTag string
	Amount     decimal.Decimal
}

// BatchWithdrawal sends the given amount to every item, in order.
type BatchWithdrawal struct {
	Coin    string
	Network string
	Items   []BatchItem
}

type BatchItem struct {
	Address    string
	AddressTag string
	Amount     decimal.Decimal
}

// SmartWithdrawal sizes each withdrawal with Amount and pauses for a random
// Interval between recipients.
type SmartWithdrawal struct {
	Coin       string
	Network    string
	Recipients []SmartRecipient
	Amount     model.AmountConfig
	Interval   model.IntervalConfig
}

type SmartRecipient struct {
	Address    string
	AddressTag string
}

// Validator checks requests against the configured ceilings. It is a pure
// function of its input.
type Validator struct {
	limits config.WithdrawalConfig
}

func NewValidator(limits config.WithdrawalConfig) *Validator {
	defaults := config.DefaultWithdrawalConfig()
	if limits.MaxWithdrawalAmount <= 0 {
		limits.MaxWithdrawalAmount = defaults.MaxWithdrawalAmount
	}
	if limits.BatchAmountMultiplier <= 0 {
		limits.BatchAmountMultiplier = defaults.BatchAmountMultiplier
	}
	if limits.BatchMaxItems <= 0 {
		limits.BatchMaxItems = defaults.BatchMaxItems
	}
	if limits.SmartMaxItems <= 0 {
		limits.SmartMaxItems = defaults.SmartMaxItems
	}
	if limits.BatchDelaySeconds <= 0 {
		limits.BatchDelaySeconds = defaults.BatchDelaySeconds
	}
	return &Validator{limits: limits}
}

func (v *Validator) Limits() config.WithdrawalConfig {
	return v.limits
}

func (v *Validator) singleCeiling() decimal.Decimal {
	return decimal.NewFromFloat(v.limits.MaxWithdrawalAmount)
}

func (v *Validator) batchCeiling() decimal.Decimal {
	return v.singleCeiling().Mul(decimal.NewFromFloat(v.limits.BatchAmountMultiplier))
}

type check struct {
	field string
	value interface{}
	rules []validation.Rule
}

// firstFailure runs checks in order and stops at the first broken rule.
func firstFailure(checks ...check) error {
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return &ValidationError{Field: c.field, Message: err.Error()}
		}
	}
	return nil
}

func positive(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		amount, _ := value.(decimal.Decimal)
		if !amount.IsPositive() {
			return errors.New(message)
		}
		return nil
	})
}

func precise(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		amount, _ := value.(decimal.Decimal)
		if !isPrecise(amount) {
			return errors.New(message)
		}
		return nil
	})
}

func atMost(ceiling decimal.Decimal, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		amount, _ := value.(decimal.Decimal)
		if amount.GreaterThan(ceiling) {
			return errors.New(message)
		}
		return nil
	})
}

var amountConfigRule = validation.By(func(value interface{}) error {
	cfg, _ := value.(model.AmountConfig)
	switch cfg.Mode {
	case model.AmountFixed:
		if !cfg.Amount.IsPositive() {
			return errors.New("fixed amount must be greater than 0")
		}
		if !isPrecise(cfg.Amount) {
			return fmt.Errorf("fixed amount cannot have more than %d decimal places", model.AmountPrecision)
		}
	case model.AmountRandom:
		if !cfg.Min.IsPositive() || !cfg.Max.IsPositive() || !cfg.Min.LessThan(cfg.Max) {
			return errors.New("random amount range must satisfy 0 < min < max")
		}
		if !hasGridPoint(cfg.Min, cfg.Max) {
			return fmt.Errorf("random amount range must contain a value with at most %d decimal places", model.AmountPrecision)
		}
	default:
		return fmt.Errorf("unsupported amount mode %q", cfg.Mode)
	}
	return nil
})

var intervalConfigRule = validation.By(func(value interface{}) error {
	cfg, _ := value.(model.IntervalConfig)
	if cfg.Min < 1 || cfg.Max < 1 || cfg.Min >= cfg.Max {
		return errors.New("interval must satisfy 1 <= min < max")
	}
	return nil
})

func normalizeCoin(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateSingle returns the normalized request or a *ValidationError.
func (v *Validator) ValidateSingle(req SingleWithdrawal) (SingleWithdrawal, error) {
	req.Coin = normalizeCoin(req.Coin)
	req.Network = normalizeCoin(req.Network)
	req.Address = strings.TrimSpace(req.Address)
	req.AddressTag = strings.TrimSpace(req.AddressTag)

	err := firstFailure(
		check{"coin", req.Coin, []validation.Rule{validation.Required.Error("coin is required")}},
		check{"address", req.Address, []validation.Rule{validation.Required.Error("address is required")}},
		check{"amount", req.Amount, []validation.Rule{positive("amount must be greater than 0")}},
		check{"amount", req.Amount, []validation.Rule{precise(
			fmt.Sprintf("amount cannot have more than %d decimal places", model.AmountPrecision))}},
		check{"amount", req.Amount, []validation.Rule{atMost(v.singleCeiling(),
			fmt.Sprintf("amount exceeds the withdrawal limit %s", v.singleCeiling().String()))}},
	)
	if err != nil {
		return SingleWithdrawal{}, err
	}
	return req, nil
}

// ValidateBatch returns the normalized request or a *ValidationError.
func (v *Validator) ValidateBatch(req BatchWithdrawal) (BatchWithdrawal, error) {
	req.Coin = normalizeCoin(req.Coin)
	req.Network = normalizeCoin(req.Network)
	items := make([]BatchItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		item.Address = strings.TrimSpace(item.Address)
		item.AddressTag = strings.TrimSpace(item.AddressTag)
		items[i] = item
		total = total.Add(item.Amount)
	}
	req.Items = items

	checks := []check{
		{"coin", req.Coin, []validation.Rule{validation.Required.Error("coin is required")}},
		{"network", req.Network, []validation.Rule{validation.Required.Error("network is required")}},
		{"addresses", req.Items, []validation.Rule{validation.Required.Error("addresses are required")}},
		{"addresses", req.Items, []validation.Rule{validation.Length(0, v.limits.BatchMaxItems).
			Error(fmt.Sprintf("batch withdrawals cannot exceed %d addresses", v.limits.BatchMaxItems))}},
	}
	for i, item := range req.Items {
		checks = append(checks,
			check{fmt.Sprintf("addresses[%d].address", i), item.Address, []validation.Rule{validation.Required.Error("address is required")}},
			check{fmt.Sprintf("addresses[%d].amount", i), item.Amount, []validation.Rule{positive(
				fmt.Sprintf("amount for address %s must be greater than 0", item.Address))}},
			check{fmt.Sprintf("addresses[%d].amount", i), item.Amount, []validation.Rule{precise(
				fmt.Sprintf("amount for address %s cannot have more than %d decimal places", item.Address, model.AmountPrecision))}},
		)
	}
	checks = append(checks, check{"addresses", total, []validation.Rule{atMost(v.batchCeiling(),
		fmt.Sprintf("batch total exceeds the withdrawal limit %s", v.batchCeiling().String()))}})

	if err := firstFailure(checks...); err != nil {
		return BatchWithdrawal{}, err
	}
	return req, nil
}

// ValidateSmart returns the normalized request or a *ValidationError.
func (v *Validator) ValidateSmart(req SmartWithdrawal) (SmartWithdrawal, error) {
	req.Coin = normalizeCoin(req.Coin)
	req.Network = normalizeCoin(req.Network)
	req.Amount.Mode = model.AmountMode(strings.ToLower(strings.TrimSpace(string(req.Amount.Mode))))
	recipients := make([]SmartRecipient, len(req.Recipients))
	for i, r := range req.Recipients {
		r.Address = strings.TrimSpace(r.Address)
		r.AddressTag = strings.TrimSpace(r.AddressTag)
		recipients[i] = r
	}
	req.Recipients = recipients

	checks := []check{
		{"coin", req.Coin, []validation.Rule{validation.Required.Error("coin is required")}},
		{"network", req.Network, []validation.Rule{validation.Required.Error("network is required")}},
		{"addresses", req.Recipients, []validation.Rule{validation.Required.Error("addresses are required")}},
		{"addresses", req.Recipients, []validation.Rule{validation.Length(0, v.limits.SmartMaxItems).
			Error(fmt.Sprintf("smart withdrawals cannot exceed %d addresses", v.limits.SmartMaxItems))}},
	}
	for i, r := range req.Recipients {
		checks = append(checks, check{fmt.Sprintf("addresses[%d].address", i), r.Address,
			[]validation.Rule{validation.Required.Error("address is required")}})
	}
	checks = append(checks,
		check{"amount_config", req.Amount, []validation.Rule{amountConfigRule}},
		check{"interval_config", req.Interval, []validation.Rule{intervalConfigRule}},
	)

	if err := firstFailure(checks...); err != nil {
		return SmartWithdrawal{}, err
	}
	return req, nil
}
