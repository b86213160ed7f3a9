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
	"math"
	"math/rand"

	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

var maxInt63 = decimal.NewFromInt(math.MaxInt64)

// ResolveAmount returns the amount for one smart withdrawal item. Fixed
// configs return their amount unchanged. Random configs draw uniformly from
// the 1e-8 grid inside [min, max], both bounds included.
func ResolveAmount(cfg model.AmountConfig, rng *rand.Rand) decimal.Decimal {
	if cfg.Mode != model.AmountRandom {
		return cfg.Amount
	}

	lo, hi := gridBounds(cfg.Min, cfg.Max)
	if hi.LessThan(lo) {
		// rejected by validation; stay inside the range
		return cfg.Min
	}

	span := hi.Sub(lo)
	var offset decimal.Decimal
	if span.LessThan(maxInt63) {
		offset = decimal.NewFromInt(rng.Int63n(span.IntPart() + 1))
	} else {
		offset = span.Mul(decimal.NewFromFloat(rng.Float64())).Floor()
	}
	return lo.Add(offset).Shift(-model.AmountPrecision)
}

// gridBounds returns the first and last 1e-8 steps inside [min, max],
// counted in steps. hi < lo when the range holds no step.
func gridBounds(min, max decimal.Decimal) (lo, hi decimal.Decimal) {
	return min.Shift(model.AmountPrecision).Ceil(), max.Shift(model.AmountPrecision).Floor()
}

// hasGridPoint reports whether [min, max] holds an amount with at most
// AmountPrecision fraction digits.
func hasGridPoint(min, max decimal.Decimal) bool {
	lo, hi := gridBounds(min, max)
	return !hi.LessThan(lo)
}

// isPrecise reports whether amount has at most AmountPrecision fraction digits.
func isPrecise(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(model.AmountPrecision))
}
