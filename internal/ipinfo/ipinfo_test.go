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

package ipinfo_test

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/lorenzopapa2/withdrawer/internal/ipinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ipifyURL   = "https://api.ipify.org?format=json"
	httpbinURL = "https://httpbin.org/ip"
)

func TestPublicIP_FirstServiceAnswers(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", ipifyURL, httpmock.NewStringResponder(200, `{"ip": "198.51.100.4"}`))
	httpmock.RegisterResponder("GET", httpbinURL, httpmock.NewStringResponder(200, `{"origin": "203.0.113.7"}`))

	ip, err := ipinfo.NewResolver().PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.4", ip)
	assert.Equal(t, 0, httpmock.GetCallCountInfo()["GET "+httpbinURL])
}

func TestPublicIP_FallsBack(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(500, `oops`)},
		{"missing field", httpmock.NewStringResponder(200, `{"address": "198.51.100.4"}`)},
		{"not json", httpmock.NewStringResponder(200, `198.51.100.4`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Activate()
			defer httpmock.DeactivateAndReset()

			httpmock.RegisterResponder("GET", ipifyURL, tt.responder)
			httpmock.RegisterResponder("GET", httpbinURL, httpmock.NewStringResponder(200, `{"origin": "203.0.113.7"}`))

			ip, err := ipinfo.NewResolver().PublicIP(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "203.0.113.7", ip)
			assert.Equal(t, 2, httpmock.GetTotalCallCount())
		})
	}
}

func TestPublicIP_AllServicesFail(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", ipifyURL, httpmock.NewStringResponder(502, `bad gateway`))
	httpmock.RegisterResponder("GET", httpbinURL, httpmock.NewStringResponder(503, `unavailable`))

	ip, err := ipinfo.NewResolver().PublicIP(context.Background())
	assert.Error(t, err)
	assert.Empty(t, ip)
	assert.Contains(t, err.Error(), "api.ipify.org")
	assert.Contains(t, err.Error(), "httpbin.org")
}

func TestPublicIP_NoServices(t *testing.T) {
	r := &ipinfo.Resolver{}
	_, err := r.PublicIP(context.Background())
	assert.Error(t, err)
}

func TestLocalIP_Loopback(t *testing.T) {
	r := &ipinfo.Resolver{DialTarget: "127.0.0.1:9"}
	ip, err := r.LocalIP()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestLookup_KeepsLocalWhenPublicFails(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	r := &ipinfo.Resolver{
		DialTarget: "127.0.0.1:9",
		Services:   []ipinfo.Service{{URL: httpbinURL, Field: "origin"}},
	}
	httpmock.RegisterResponder("GET", httpbinURL, httpmock.NewStringResponder(500, `oops`))

	info := r.Lookup(context.Background())
	assert.Equal(t, "127.0.0.1", info.LocalIP)
	assert.Empty(t, info.PublicIP)
}
