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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
)

// Event is a progress notification. Name is the event kind observers
// subscribe to, the value itself is the payload.
type Event interface {
	Name() string
}

type ProgressStatus string

const (
	ProgressSuccess ProgressStatus = "SUCCESS"
	ProgressFailed  ProgressStatus = "FAILED"
)

func progressStatus(ok bool) ProgressStatus {
	if ok {
		return ProgressSuccess
	}
	return ProgressFailed
}

// WithdrawalUpdate reports the outcome of a single withdrawal.
type WithdrawalUpdate struct {
	RecordID int64                  `json:"log_id"`
	Status   model.WithdrawalStatus `json:"status"`
	TxID     string                 `json:"tx_id,omitempty"`
	Message  string                 `json:"message"`
}

func (WithdrawalUpdate) Name() string { return "withdrawal_update" }

// TaskStarted is emitted once, before the first item of a task.
type TaskStarted struct {
	TaskID  string           `json:"task_id"`
	Kind    model.TaskKind   `json:"-"`
	Total   int              `json:"total"`
	Status  model.TaskStatus `json:"status"`
	Message string           `json:"message"`
}

func (e TaskStarted) Name() string {
	if e.Kind == model.TaskKindSmart {
		return "smart_withdrawal_start"
	}
	return "batch_update"
}

// ItemProgress is emitted after every attempted item. Current is 1-based.
type ItemProgress struct {
	TaskID  string          `json:"task_id"`
	Kind    model.TaskKind  `json:"-"`
	Current int             `json:"current"`
	Total   int             `json:"total"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Status  ProgressStatus  `json:"status"`
	Message string          `json:"message"`
	TxID    string          `json:"tx_id,omitempty"`
}

func (e ItemProgress) Name() string {
	if e.Kind == model.TaskKindSmart {
		return "smart_withdrawal_progress"
	}
	return "batch_progress"
}

// TaskWaiting announces the pause before the next smart withdrawal item.
type TaskWaiting struct {
	TaskID  string `json:"task_id"`
	NextIn  int    `json:"next_in"`
	Message string `json:"message"`
}

func (TaskWaiting) Name() string { return "smart_withdrawal_waiting" }

type TaskCompleted struct {
	TaskID    string         `json:"task_id"`
	Kind      model.TaskKind `json:"-"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Message   string         `json:"message"`
}

func (e TaskCompleted) Name() string {
	if e.Kind == model.TaskKindSmart {
		return "smart_withdrawal_complete"
	}
	return "batch_complete"
}

// TaskError is emitted instead of TaskCompleted when a task aborts.
type TaskError struct {
	TaskID  string         `json:"task_id"`
	Kind    model.TaskKind `json:"-"`
	Message string         `json:"message"`
}

func (e TaskError) Name() string {
	if e.Kind == model.TaskKindSmart {
		return "smart_withdrawal_error"
	}
	return "batch_error"
}

// LogUpdate carries operator facing messages such as a configuration change.
type LogUpdate struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (LogUpdate) Name() string { return "log_update" }

// Envelope is the wire shape shared by the websocket, webhook and redis
// relays.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewEnvelope(e Event) Envelope {
	return Envelope{Event: e.Name(), Data: e}
}

// Subscription receives events published after it was created.
type Subscription struct {
	id        uint64
	events    chan Event
	dropped   atomic.Int64
	publisher *Publisher
	once      sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped is the number of events discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the events channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.publisher.remove(s.id)
	})
}

// Publisher fans events out to subscribers without ever blocking the sender.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers an observer with the given channel buffer.
func (p *Publisher) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	sub := &Subscription{id: p.nextID, events: make(chan Event, buffer), publisher: p}
	if p.closed {
		close(sub.events)
		return sub
	}
	p.subs[sub.id] = sub
	return sub
}

// Publish delivers e to every current subscriber whose buffer has room.
func (p *Publisher) Publish(e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.subs {
		select {
		case sub.events <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (p *Publisher) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close ends every subscription. Later publishes are no-ops.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, sub := range p.subs {
		close(sub.events)
		delete(p.subs, id)
	}
}

func (p *Publisher) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[id]
	if !ok {
		return
	}
	close(sub.events)
	delete(p.subs, id)
}

func startMessage(kind model.TaskKind, total int) string {
	if kind == model.TaskKindSmart {
		return fmt.Sprintf("smart withdrawal started with %d addresses", total)
	}
	return fmt.Sprintf("batch withdrawal started with %d addresses", total)
}

func completeMessage(kind model.TaskKind, completed, failed int) string {
	if kind == model.TaskKindSmart {
		return fmt.Sprintf("smart withdrawal finished: %d succeeded, %d failed", completed, failed)
	}
	return fmt.Sprintf("batch withdrawal finished: %d succeeded, %d failed", completed, failed)
}
