// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Beacon-demo drives the tagging client against a collector: it loads
// a config file, opens a session, records a few nested actions with
// events, values and an error, then shuts the client down so the final
// flush uploads everything. Point it at beacon-collector-mock to watch
// the beacons arrive.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/beacon/lib/config"
	"github.com/bureau-foundation/beacon/lib/process"
	"github.com/bureau-foundation/beacon/lib/tagging"
	"github.com/bureau-foundation/beacon/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		user        string
		rounds      int
		initTimeout time.Duration
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("beacon-demo", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&user, "user", "", "user tag reported with identify-user")
	flagSet.IntVar(&rounds, "rounds", 3, "number of top-level actions to record")
	flagSet.DurationVar(&initTimeout, "init-timeout", 30*time.Second, "how long to wait for the first collector contact")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("beacon-demo")
		return nil
	}

	logger, err := process.NewLogger(logLevel)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ResolveDevice()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := tagging.New(tagging.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	initialized := client.WaitForInit(initCtx)
	cancel()
	logger.Info("client initialized",
		"success", initialized,
		"capturing", client.Capturing(),
	)

	if ctx.Err() == nil {
		record(client, user, rounds, logger)
	}

	if !client.Shutdown() {
		logger.Warn("sender did not stop within the shutdown timeout")
	}
	logger.Info("demo finished")
	return nil
}

// record opens one session and fills it with demo actions.
func record(client *tagging.Client, user string, rounds int, logger *slog.Logger) {
	session := client.CreateSession("")
	if user != "" {
		session.IdentifyUser(user)
	}

	for round := 0; round < rounds; round++ {
		started := time.Now()
		action := session.EnterAction(fmt.Sprintf("round %d", round+1))
		action.ReportEvent("round started")

		child := action.EnterAction("compute")
		total := 0
		for i := 0; i < 1000*(round+1); i++ {
			total += i
		}
		child.ReportIntValue("total", int64(total)).
			ReportFloatValue("elapsed_ms", float64(time.Since(started).Microseconds())/1000).
			Leave()

		if round == rounds-1 {
			action.ReportError("demo error", 42, "last round reports an error")
		}
		action.ReportStringValue("outcome", "ok").Leave()
		logger.Debug("round recorded", "round", round+1)
	}

	session.End()
}
