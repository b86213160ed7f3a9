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
	"math/rand"
	"sync"
	"time"

	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/database"
	"github.com/lorenzopapa2/withdrawer/internal/cache"
	redis_db "github.com/lorenzopapa2/withdrawer/internal/redis-db"
	"github.com/lorenzopapa2/withdrawer/internal/tokenization"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("withdrawer")

const (
	accountCacheKey = "withdrawer:account"
	accountCacheTTL = 10 * time.Second
)

// Sleeper suspends a worker for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RandFactory returns the random source used by one task.
type RandFactory func() *rand.Rand

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Withdrawer owns the task registry and the background workers that drive
// single, batch and smart withdrawals.
type Withdrawer struct {
	datasource database.IDataSource
	connector  Connector
	registry   *Registry
	publisher  *Publisher
	validator  *Validator
	sleep      Sleeper
	newRand    RandFactory
	locks      redis.UniversalClient
	lockWait   time.Duration
	cache      cache.Cache
	sealer     *tokenization.TokenizationService

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	gwMu    sync.RWMutex
	gateway Gateway

	mu     sync.Mutex
	done   map[string]chan struct{}
	closed bool
}

type Option func(*Withdrawer)

func WithLimits(limits config.WithdrawalConfig) Option {
	return func(w *Withdrawer) { w.validator = NewValidator(limits) }
}

func WithSleeper(s Sleeper) Option {
	return func(w *Withdrawer) { w.sleep = s }
}

func WithRandFactory(f RandFactory) Option {
	return func(w *Withdrawer) { w.newRand = f }
}

func WithPublisher(p *Publisher) Option {
	return func(w *Withdrawer) { w.publisher = p }
}

// WithLocker serializes withdrawals to the same destination across
// processes sharing client.
func WithLocker(client redis.UniversalClient) Option {
	return func(w *Withdrawer) { w.locks = client }
}

// WithCache caches account snapshots.
func WithCache(c cache.Cache) Option {
	return func(w *Withdrawer) { w.cache = c }
}

// WithSecretSealer encrypts the exchange secret before it is stored.
func WithSecretSealer(s *tokenization.TokenizationService) Option {
	return func(w *Withdrawer) { w.sealer = s }
}

// WithConnector lets saved credentials open a new gateway.
func WithConnector(c Connector) Option {
	return func(w *Withdrawer) { w.connector = c }
}

// New builds a Withdrawer. A nil gateway leaves the exchange unconfigured
// until SaveExchangeSettings or Connect succeeds.
func New(ds database.IDataSource, gateway Gateway, opts ...Option) *Withdrawer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Withdrawer{
		datasource: ds,
		gateway:    gateway,
		registry:   NewRegistry(),
		publisher:  NewPublisher(),
		validator:  NewValidator(config.DefaultWithdrawalConfig()),
		sleep:      timerSleep,
		newRand:    seededRand,
		lockWait:   destinationLockWait,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewWithdrawer builds a Withdrawer from the loaded configuration. A
// configured redis enables destination locks and the account cache. The
// exchange is connected with the stored credentials, falling back to the
// configured ones; without either it stays unconfigured.
func NewWithdrawer(ds database.IDataSource, connector Connector) (*Withdrawer, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLimits(cnf.Withdrawal), WithConnector(connector)}
	if cnf.TokenizationSecret != "" {
		opts = append(opts, WithSecretSealer(tokenization.NewTokenizationService(tokenization.DeriveKey(cnf.TokenizationSecret))))
	}
	if cnf.Redis.Dns != "" {
		redisClient, err := redis_db.NewRedisClient(cnf.Redis.Dns, cnf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			WithLocker(redisClient.Client()),
			WithCache(cache.NewRedisCache(redisClient.Client(), time.Second)),
		)
	}

	w := New(ds, nil, opts...)
	fallback := ExchangeCredentials{
		ApiKey:    cnf.Exchange.ApiKey,
		ApiSecret: cnf.Exchange.ApiSecret,
		Testnet:   cnf.Exchange.Testnet,
	}
	if err := w.Connect(context.Background(), fallback); err != nil {
		logrus.Warnf("exchange not connected: %v", err)
	}
	return w, nil
}

func (w *Withdrawer) Publisher() *Publisher {
	return w.publisher
}

func (w *Withdrawer) Limits() config.WithdrawalConfig {
	return w.validator.Limits()
}

// Subscribe is a shortcut for Publisher().Subscribe.
func (w *Withdrawer) Subscribe(buffer int) *Subscription {
	return w.publisher.Subscribe(buffer)
}

// GetTask returns a snapshot of the task counters.
func (w *Withdrawer) GetTask(taskID string) (model.Task, error) {
	task, ok := w.registry.Get(taskID)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (w *Withdrawer) ListTasks() []model.Task {
	return w.registry.List()
}

// currentGateway returns the connected gateway or ErrNotConfigured.
func (w *Withdrawer) currentGateway() (Gateway, error) {
	w.gwMu.RLock()
	defer w.gwMu.RUnlock()
	if w.gateway == nil {
		return nil, ErrNotConfigured
	}
	return w.gateway, nil
}

func (w *Withdrawer) setGateway(g Gateway) {
	w.gwMu.Lock()
	w.gateway = g
	w.gwMu.Unlock()
}

// Balance looks the asset up on the exchange, bypassing the cache.
func (w *Withdrawer) Balance(ctx context.Context, asset string) (*model.Balance, error) {
	gateway, err := w.currentGateway()
	if err != nil {
		return nil, err
	}
	return gateway.CheckBalance(ctx, normalizeCoin(asset))
}

// AccountInfo returns the exchange account snapshot, served from the cache
// when one is configured.
func (w *Withdrawer) AccountInfo(ctx context.Context) (*model.AccountInfo, error) {
	gateway, err := w.currentGateway()
	if err != nil {
		return nil, err
	}

	if w.cache != nil {
		var cached model.AccountInfo
		found, err := w.cache.Get(ctx, accountCacheKey, &cached)
		if err != nil {
			logrus.Warnf("account cache read failed: %v", err)
		} else if found {
			return &cached, nil
		}
	}

	info, err := gateway.AccountInfo(ctx)
	if err != nil {
		return nil, err
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, accountCacheKey, info, accountCacheTTL); err != nil {
			logrus.Warnf("account cache write failed: %v", err)
		}
	}
	return info, nil
}

func (w *Withdrawer) invalidateAccount(ctx context.Context) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Delete(ctx, accountCacheKey); err != nil {
		logrus.Warnf("account cache invalidation failed: %v", err)
	}
}

func (w *Withdrawer) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// launch runs fn on its own goroutine with the Withdrawer's root context.
// The channel returned by Done(key) is closed when fn returns, and the entry
// is dropped since unknown keys already read as done.
func (w *Withdrawer) launch(key string, fn func(ctx context.Context)) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	finished := make(chan struct{})
	w.done[key] = finished
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer w.forget(key, finished)
		fn(w.ctx)
	}()
	return nil
}

func (w *Withdrawer) forget(key string, finished chan struct{}) {
	w.mu.Lock()
	if w.done[key] == finished {
		delete(w.done, key)
	}
	w.mu.Unlock()
	close(finished)
}

// Done returns a channel closed once the worker for taskID has returned.
// Unknown ids yield an already closed channel.
func (w *Withdrawer) Done(taskID string) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.done[taskID]; ok {
		return ch
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Wait blocks until every launched worker has returned.
func (w *Withdrawer) Wait() {
	w.wg.Wait()
}

// Close stops accepting work, cancels running workers and waits for them.
// Subscriptions are closed afterwards.
func (w *Withdrawer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.publisher.Close()
}
