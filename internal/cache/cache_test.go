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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Millisecond), mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	info := model.AccountInfo{
		AccountType: "SPOT",
		CanWithdraw: true,
		Balances:    []model.Balance{{Asset: "USDT", Free: decimal.NewFromInt(10), Locked: decimal.Zero}},
	}
	require.NoError(t, c.Set(ctx, "account", info, time.Minute))

	var got model.AccountInfo
	found, err := c.Get(ctx, "account", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "SPOT", got.AccountType)
	require.Len(t, got.Balances, 1)
	assert.True(t, got.Balances[0].Free.Equal(decimal.NewFromInt(10)))
}

func TestGetNonExistentKey(t *testing.T) {
	c, _ := newTestCache(t)

	var got map[string]string
	found, err := c.Get(context.Background(), "nonExistentKey", &got)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))
	assert.NoError(t, c.Delete(ctx, "key"))

	time.Sleep(5 * time.Millisecond)
	var got string
	found, err := c.Get(ctx, "key", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "balance:USDT", "1", time.Second))
	mr.FastForward(2 * time.Second)
	time.Sleep(5 * time.Millisecond)

	var got string
	found, err := c.Get(ctx, "balance:USDT", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}
