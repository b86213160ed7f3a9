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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT                    = "5001"
	DEFAULT_DRIVER                  = "sqlite3"
	DEFAULT_DNS                     = "withdrawals.db"
	DEFAULT_MAX_WITHDRAWAL_AMOUNT   = 1000
	DEFAULT_BATCH_AMOUNT_MULTIPLIER = 10
	DEFAULT_BATCH_MAX_ITEMS         = 100
	DEFAULT_SMART_MAX_ITEMS         = 200
	DEFAULT_BATCH_DELAY_SECONDS     = 1
	DEFAULT_WEBHOOK_QUEUE           = "withdrawer:webhook"
	DEFAULT_EVENTS_CHANNEL          = "withdrawer:events"
	DEFAULT_MONITORING_PORT         = "5004"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"WITHDRAWER_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"WITHDRAWER_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"WITHDRAWER_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"WITHDRAWER_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"WITHDRAWER_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"WITHDRAWER_SERVER_PORT"`

	// AllowedOrigins are accepted by the websocket stream besides the
	// server's own host. "*" accepts any origin.
	AllowedOrigins []string `json:"allowed_origins" envconfig:"WITHDRAWER_SERVER_ALLOWED_ORIGINS"`
}

type DataSourceConfig struct {
	Driver string `json:"driver" envconfig:"WITHDRAWER_DATA_SOURCE_DRIVER"`
	Dns    string `json:"dns" envconfig:"WITHDRAWER_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"WITHDRAWER_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"WITHDRAWER_REDIS_SKIP_TLS_VERIFY"`
	EventsChannel string `json:"events_channel" envconfig:"WITHDRAWER_REDIS_EVENTS_CHANNEL"`
}

type QueueConfig struct {
	WebhookQueue   string `json:"webhook_queue" envconfig:"WITHDRAWER_QUEUE_WEBHOOK"`
	Concurrency    int    `json:"concurrency" envconfig:"WITHDRAWER_QUEUE_CONCURRENCY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"WITHDRAWER_QUEUE_MONITORING_PORT"`
}

// WithdrawalConfig holds the ceilings the request validator enforces and the
// pacing the executor applies between items.
type WithdrawalConfig struct {
	MaxWithdrawalAmount   float64 `json:"max_withdrawal_amount" envconfig:"WITHDRAWER_MAX_WITHDRAWAL_AMOUNT"`
	BatchAmountMultiplier float64 `json:"batch_amount_multiplier" envconfig:"WITHDRAWER_BATCH_AMOUNT_MULTIPLIER"`
	BatchMaxItems         int     `json:"batch_max_items" envconfig:"WITHDRAWER_BATCH_MAX_ITEMS"`
	SmartMaxItems         int     `json:"smart_max_items" envconfig:"WITHDRAWER_SMART_MAX_ITEMS"`
	BatchDelaySeconds     int     `json:"batch_delay_seconds" envconfig:"WITHDRAWER_BATCH_DELAY_SECONDS"`
}

type ExchangeConfig struct {
	ApiKey        string            `json:"api_key" envconfig:"WITHDRAWER_EXCHANGE_API_KEY"`
	ApiSecret     string            `json:"api_secret" envconfig:"WITHDRAWER_EXCHANGE_API_SECRET"`
	Testnet       bool              `json:"testnet" envconfig:"WITHDRAWER_EXCHANGE_TESTNET"`
	AccountType   string            `json:"account_type"`
	PaperBalances map[string]string `json:"paper_balances"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"WITHDRAWER_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"WITHDRAWER_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"WITHDRAWER_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string              `json:"project_name" envconfig:"WITHDRAWER_PROJECT_NAME"`
	EnableTelemetry bool                `json:"enable_telemetry" envconfig:"WITHDRAWER_ENABLE_TELEMETRY"`
	Server          ServerConfig        `json:"server"`
	DataSource      DataSourceConfig    `json:"data_source"`
	Redis           RedisConfig         `json:"redis"`
	Queue           QueueConfig         `json:"queue"`
	Withdrawal      WithdrawalConfig    `json:"withdrawal"`
	Exchange        ExchangeConfig      `json:"exchange"`
	Notification    Notification        `json:"notification"`
	RateLimit       RateLimitConfig     `json:"rate_limit"`
	SupportedCoins  map[string][]string `json:"supported_coins"`
	NetworkFees     map[string]float64  `json:"network_fees"`

	// TokenizationSecret seals the stored exchange secret when set.
	TokenizationSecret string `json:"tokenization_secret" envconfig:"WITHDRAWER_TOKENIZATION_SECRET"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("withdrawer", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called withdrawer.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Withdrawer"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Driver = strings.TrimSpace(cnf.DataSource.Driver)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = DEFAULT_DRIVER
	}
	if cnf.DataSource.Driver != "sqlite3" && cnf.DataSource.Driver != "postgres" {
		return errors.New("data source driver must be sqlite3 or postgres")
	}
	if cnf.DataSource.Dns == "" {
		if cnf.DataSource.Driver == "postgres" {
			log.Println("Error: Data source DNS is empty. It's a required field for postgres.")
			return errors.New("data source DNS is required")
		}
		cnf.DataSource.Dns = DEFAULT_DNS
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Redis.EventsChannel == "" {
		cnf.Redis.EventsChannel = DEFAULT_EVENTS_CHANNEL
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 1
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	if err := cnf.Withdrawal.validateAndAddDefaults(); err != nil {
		return err
	}

	if cnf.SupportedCoins == nil {
		cnf.SupportedCoins = map[string][]string{
			"USDT": {"TRC20", "ERC20", "BSC", "OPBNB"},
			"BTC":  {"BTC"},
			"ETH":  {"ERC20"},
			"BNB":  {"BSC", "BEP2", "OPBNB"},
			"BUSD": {"BSC", "ERC20"},
		}
	}
	if cnf.NetworkFees == nil {
		cnf.NetworkFees = map[string]float64{
			"TRC20": 1.0,
			"ERC20": 15.0,
			"BSC":   0.5,
			"BTC":   0.0005,
			"BEP2":  0.000375,
			"OPBNB": 0.00001,
		}
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (w *WithdrawalConfig) validateAndAddDefaults() error {
	if w.MaxWithdrawalAmount < 0 || w.BatchAmountMultiplier < 0 || w.BatchMaxItems < 0 || w.SmartMaxItems < 0 || w.BatchDelaySeconds < 0 {
		return errors.New("withdrawal limits cannot be negative")
	}
	if w.MaxWithdrawalAmount == 0 {
		w.MaxWithdrawalAmount = DEFAULT_MAX_WITHDRAWAL_AMOUNT
	}
	if w.BatchAmountMultiplier == 0 {
		w.BatchAmountMultiplier = DEFAULT_BATCH_AMOUNT_MULTIPLIER
	}
	if w.BatchMaxItems == 0 {
		w.BatchMaxItems = DEFAULT_BATCH_MAX_ITEMS
	}
	if w.SmartMaxItems == 0 {
		w.SmartMaxItems = DEFAULT_SMART_MAX_ITEMS
	}
	if w.BatchDelaySeconds == 0 {
		w.BatchDelaySeconds = DEFAULT_BATCH_DELAY_SECONDS
	}
	return nil
}

// DefaultWithdrawalConfig returns the limits used when nothing is configured.
func DefaultWithdrawalConfig() WithdrawalConfig {
	w := WithdrawalConfig{}
	_ = w.validateAndAddDefaults()
	return w
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
