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

	redis_db "github.com/lorenzopapa2/withdrawer/internal/redis-db"
	"github.com/sirupsen/logrus"
)

const relayBuffer = 1024

// RelayRedis publishes every event as a JSON envelope on channel.
func (w *Withdrawer) RelayRedis(ctx context.Context, r *redis_db.Redis, channel string) *Subscription {
	sub := w.publisher.Subscribe(relayBuffer)
	go consume(ctx, sub, func(e Event) {
		if _, err := r.PublishJSON(ctx, channel, NewEnvelope(e)); err != nil {
			logrus.WithField("event", e.Name()).Errorf("failed to publish event to redis: %v", err)
		}
	})
	return sub
}
