// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tagging is the application-facing API of the beacon client.
//
// A [Client] connects to one collector and starts the background
// sender. Applications create a [Session] per monitored unit of work
// (a user visit, a job run), open [Action]s inside it to time
// operations, and report events, values, errors and crashes on them:
//
//	client, err := tagging.New(tagging.Options{Config: cfg, Logger: logger})
//	...
//	client.WaitForInitTimeout(10 * time.Second)
//	visit := client.CreateSession("")
//	checkout := visit.EnterAction("checkout")
//	checkout.ReportIntValue("items", 3)
//	checkout.Leave()
//	visit.End()
//	client.Shutdown()
//
// No method blocks on the network. Recording is gated by the
// collector's runtime settings and the configured privacy levels, so
// calls made while capture is off are cheap no-ops. Methods on ended
// sessions and left actions are ignored.
package tagging
