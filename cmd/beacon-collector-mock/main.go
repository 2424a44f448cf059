// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Beacon-collector-mock serves the in-memory collector from
// lib/collectortest on a real listener so a client can be pointed at
// it by hand. Every request is logged; with --record the requests are
// also appended to an lz4-compressed CBOR recording that
// "beacon-collector-mock --replay" prints back.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/beacon/lib/codec"
	"github.com/bureau-foundation/beacon/lib/collectortest"
	"github.com/bureau-foundation/beacon/lib/process"
	"github.com/bureau-foundation/beacon/lib/version"
)

type options struct {
	listen       string
	statusBody   string
	timeSync     bool
	skew         time.Duration
	recordPath   string
	replayPath   string
	logLevel     string
	showVersion  bool
	shutdownWait time.Duration
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("beacon-collector-mock", pflag.ContinueOnError)
	flagSet.StringVar(&opts.listen, "listen", "127.0.0.1:8080", "address to serve the collector on")
	flagSet.StringVar(&opts.statusBody, "status-body", "type=m&cp=1", "body returned for status requests and beacon uploads")
	flagSet.BoolVar(&opts.timeSync, "time-sync", true, "answer time sync requests (false makes the client mark time sync unsupported)")
	flagSet.DurationVar(&opts.skew, "skew", 0, "offset added to the collector clock in time sync responses")
	flagSet.StringVar(&opts.recordPath, "record", "", "append every request to this recording file")
	flagSet.StringVar(&opts.replayPath, "replay", "", "print the requests in a recording file and exit")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.DurationVar(&opts.shutdownWait, "shutdown-timeout", 5*time.Second, "how long to wait for in-flight requests on shutdown")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		version.Print("beacon-collector-mock")
		return nil
	}
	if opts.replayPath != "" {
		return replay(opts.replayPath, os.Stdout)
	}

	logger, err := process.NewLogger(opts.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := collectortest.New()
	collector.SetStatus(http.StatusOK, opts.statusBody)
	collector.SetTimeSync(opts.timeSync, opts.skew)

	var recording *codec.RecordingWriter
	if opts.recordPath != "" {
		file, err := os.OpenFile(opts.recordPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("opening recording: %w", err)
		}
		defer file.Close()
		recording = codec.NewRecordingWriter(file)
		defer recording.Close()
	}

	collector.OnRecord(func(record collectortest.Record) {
		logger.Info("request received",
			"kind", record.Kind,
			"monitor", record.Monitor,
			"server_id", record.ServerID,
			"client_ip", record.ClientIP,
			"payload_bytes", len(record.Payload),
		)
		logger.Debug("beacon payload", "payload", record.Payload)
		if recording != nil {
			if err := recording.Append(record); err != nil {
				logger.Error("recording request failed", "error", err)
			}
		}
	})

	listener, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", opts.listen, err)
	}
	server := &http.Server{
		Handler:           collector.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(listener)
	}()

	logger.Info("collector mock running",
		"address", listener.Addr().String(),
		"time_sync", opts.timeSync,
		"skew", opts.skew,
	)

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return fmt.Errorf("serving: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("collector mock stopped",
		"status_requests", collector.Count(collectortest.KindStatus),
		"time_sync_requests", collector.Count(collectortest.KindTimeSync),
		"beacons", collector.Count(collectortest.KindBeacon),
	)
	return nil
}

// replay prints each request in the recording at path, one per line.
func replay(path string, output io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer file.Close()

	reader := codec.NewRecordingReader(file)
	for {
		var record collectortest.Record
		err := reader.Next(&record)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading recording: %w", err)
		}
		received := time.UnixMilli(record.ReceivedAt).UTC().Format(time.RFC3339Nano)
		fmt.Fprintf(output, "%s %-8s %s", received, record.Kind, record.Monitor)
		if record.Payload != "" {
			fmt.Fprintf(output, " %s", record.Payload)
		}
		fmt.Fprintln(output)
	}
}
