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

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/lorenzopapa2/withdrawer"
	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/database"
	"github.com/lorenzopapa2/withdrawer/internal/exchange"
	"github.com/lorenzopapa2/withdrawer/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Withdrawer represents the CLI application, encapsulating the root Cobra command.
type Withdrawer struct {
	cmd *cobra.Command
}

// withdrawerInstance holds the runtime engine and the configuration it was built from.
type withdrawerInstance struct {
	withdrawer *withdrawer.Withdrawer
	cnf        *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration file and builds the engine before any command runs.
func preRun(app *withdrawerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newWithdrawer, err := setupWithdrawer(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.withdrawer = newWithdrawer
		app.cnf = cnf

		return nil
	}
}

// setupWithdrawer connects the ledger and the exchange gateway and wires them into an engine.
func setupWithdrawer(cfg *config.Configuration) (*withdrawer.Withdrawer, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	paper, err := exchange.NewPaperExchange(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("error creating exchange gateway: %v", err)
	}
	connect := func(ctx context.Context, creds withdrawer.ExchangeCredentials) (withdrawer.Gateway, error) {
		gateway, err := paper.Connect(ctx, creds.ApiKey, creds.ApiSecret, creds.Testnet)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	}

	newWithdrawer, err := withdrawer.NewWithdrawer(db, connect)
	if err != nil {
		return nil, fmt.Errorf("error creating withdrawer: %v", err)
	}
	return newWithdrawer, nil
}

// NewCLI creates the command-line interface with the start, workers and migrate subcommands.
func NewCLI() *Withdrawer {
	var configFile string
	w := &withdrawerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "withdrawer",
		Short: "Batch and smart withdrawal orchestration",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./withdrawer.json", "Configuration file for the withdrawer")

	rootCmd.PersistentPreRunE = preRun(w, &configFile)

	rootCmd.AddCommand(serverCommands(w))
	rootCmd.AddCommand(workerCommands(w))
	rootCmd.AddCommand(migrateCommands(w))

	return &Withdrawer{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Withdrawer) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
