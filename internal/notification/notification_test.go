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

package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackPayload(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := slackPayload("Withdrawer", errors.New("task abc12345 failed"), at)

	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "header", msg.Blocks[0].Type)
	assert.Equal(t, "Error From Withdrawer", msg.Blocks[0].Text.Text)
	assert.Contains(t, msg.Blocks[1].Fields[0].Text, "task abc12345 failed")
	assert.Contains(t, msg.Blocks[2].Fields[0].Text, at.Format(time.RFC822))
}

func TestNotifyError_PostsToSlack(t *testing.T) {
	received := make(chan slackMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg slackMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		received <- msg
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cnf := &config.Configuration{ProjectName: "Withdrawer"}
	cnf.Notification.Slack.WebhookUrl = server.URL
	config.MockConfig(cnf)

	NotifyError(errors.New("executor crashed"))

	select {
	case msg := <-received:
		require.Len(t, msg.Blocks, 3)
		assert.Contains(t, msg.Blocks[1].Fields[0].Text, "executor crashed")
	case <-time.After(2 * time.Second):
		t.Fatal("slack webhook was not called")
	}
}

func TestNotifyError_NoSlackConfigured(t *testing.T) {
	called := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
	}))
	defer server.Close()

	config.MockConfig(&config.Configuration{ProjectName: "Withdrawer"})

	NotifyError(errors.New("ignored"))

	select {
	case <-called:
		t.Fatal("slack webhook must not be called without configuration")
	case <-time.After(100 * time.Millisecond):
	}
}
