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

package ipinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/lorenzopapa2/withdrawer/internal/request"
	"github.com/sirupsen/logrus"
)

// Service answers with the caller's public address in Field of a JSON object.
type Service struct {
	URL   string
	Field string
}

var DefaultServices = []Service{
	{URL: "https://api.ipify.org?format=json", Field: "ip"},
	{URL: "https://httpbin.org/ip", Field: "origin"},
}

const lookupTimeout = 5 * time.Second

// Info is what operators copy into the exchange's api key ip allowlist.
type Info struct {
	LocalIP  string `json:"local_ip"`
	PublicIP string `json:"public_ip"`
}

type Resolver struct {
	Services []Service
	// DialTarget is dialed over udp to learn the outbound interface. No packet is sent.
	DialTarget string
}

func NewResolver() *Resolver {
	return &Resolver{Services: DefaultServices, DialTarget: "8.8.8.8:80"}
}

// Lookup returns both addresses. A failed lookup leaves its field empty.
func (r *Resolver) Lookup(ctx context.Context) Info {
	var info Info
	local, err := r.LocalIP()
	if err != nil {
		logrus.Warnf("local ip lookup failed: %v", err)
	}
	info.LocalIP = local

	public, err := r.PublicIP(ctx)
	if err != nil {
		logrus.Warnf("public ip lookup failed: %v", err)
	}
	info.PublicIP = public
	return info
}

// LocalIP returns the address of the interface used for outbound traffic,
// falling back to the address the hostname resolves to.
func (r *Resolver) LocalIP() (string, error) {
	if conn, err := net.Dial("udp", r.DialTarget); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String(), nil
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return "", err
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no address for host %s", host)
	}
	return addrs[0], nil
}

// PublicIP asks each service in turn and returns the first answer.
func (r *Resolver) PublicIP(ctx context.Context) (string, error) {
	var errs []error
	for _, svc := range r.Services {
		ip, err := fetch(ctx, svc)
		if err == nil {
			return ip, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", svc.URL, err))
	}
	if len(errs) == 0 {
		return "", errors.New("no public ip service configured")
	}
	return "", errors.Join(errs...)
}

func fetch(ctx context.Context, svc Service) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var body map[string]interface{}
	if _, err := request.GetJSON(ctx, svc.URL, &body); err != nil {
		return "", err
	}
	ip, _ := body[svc.Field].(string)
	if ip == "" {
		return "", fmt.Errorf("response has no %q field", svc.Field)
	}
	return ip, nil
}
