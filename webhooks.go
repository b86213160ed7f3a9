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
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/lorenzopapa2/withdrawer/config"
	redis_db "github.com/lorenzopapa2/withdrawer/internal/redis-db"
	"github.com/lorenzopapa2/withdrawer/internal/request"
)

const webhookBuffer = 256

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event   string      `json:"event"` // The event name, for example batch_complete.
	Payload interface{} `json:"data"`  // The event payload.
}

// RedisClientOpt converts the configured redis address for asynq.
func RedisClientOpt(cnf *config.Configuration) (asynq.RedisClientOpt, error) {
	opts, err := redis_db.ParseRedisURL(cnf.Redis.Dns, cnf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// isWebhookEvent selects the outcome events worth a webhook call.
func isWebhookEvent(e Event) bool {
	switch e.(type) {
	case WithdrawalUpdate, TaskCompleted, TaskError:
		return true
	}
	return false
}

// SendWebhook enqueues a webhook notification task. It does nothing when no
// webhook url is configured.
func SendWebhook(newWebhook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	redisOpt, err := RedisClientOpt(conf)
	if err != nil {
		return err
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	payload, err := json.Marshal(newWebhook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(conf.Queue.WebhookQueue, payload, asynq.Queue(conf.Queue.WebhookQueue))
	info, err := client.Enqueue(task)
	if err != nil {
		logrus.Errorf("failed to enqueue webhook %s: %v %v", newWebhook.Event, err, info)
		return err
	}
	return nil
}

// ProcessWebhook posts a queued webhook notification to the configured url.
// A failed delivery is returned so the queue retries it.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("error unmarshaling webhook payload: %v", err)
		return fmt.Errorf("invalid webhook payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Event == "" {
		return fmt.Errorf("webhook payload has no event: %w", asynq.SkipRetry)
	}

	logrus.Infof("processing webhook: %s", payload.Event)
	if _, err := request.PostJSON(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload, nil); err != nil {
		logrus.Errorf("webhook %s delivery failed: %v", payload.Event, err)
		return err
	}
	return nil
}

// RelayWebhooks enqueues a webhook for every outcome event until ctx is done
// or the subscription is closed.
func (w *Withdrawer) RelayWebhooks(ctx context.Context) *Subscription {
	sub := w.publisher.Subscribe(webhookBuffer)
	go consume(ctx, sub, func(e Event) {
		if !isWebhookEvent(e) {
			return
		}
		if err := SendWebhook(NewWebhook{Event: e.Name(), Payload: e}); err != nil {
			logrus.Errorf("failed to send webhook %s: %v", e.Name(), err)
		}
	})
	return sub
}

// consume calls handle for every event of sub in order.
func consume(ctx context.Context, sub *Subscription, handle func(Event)) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			handle(e)
		}
	}
}
