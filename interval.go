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
	"math/rand"
	"time"

	"github.com/lorenzopapa2/withdrawer/model"
)

// ResolveInterval draws a whole number of seconds in [min, max]. A range with
// max below min collapses to min.
func ResolveInterval(cfg model.IntervalConfig, rng *rand.Rand) time.Duration {
	lo, hi := cfg.Min, cfg.Max
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return time.Duration(lo) * time.Second
	}
	return time.Duration(lo+rng.Intn(hi-lo+1)) * time.Second
}
