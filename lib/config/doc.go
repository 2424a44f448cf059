// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the static configuration of a beacon client:
// where the collector is, which application is being monitored, what
// device it runs on, and how much data the user has agreed to share.
//
// Configuration is loaded from a single file named by either the
// BEACON_CONFIG environment variable (via [Load]) or an explicit path
// (via [LoadFile]). Files ending in .json or .jsonc are read as JSON
// with comments and trailing commas allowed; anything else is YAML.
// There is no file discovery and no environment variable overrides
// individual values.
//
// A file may carry development, staging and production sections that
// override the collector settings when [Config].Environment matches.
// ${VAR} and ${VAR:-default} patterns in the collector endpoint and
// the application and device strings are expanded after loading.
//
// Device fields left empty are filled by [Config.ResolveDevice] from
// the host: the operating system from gopsutil, manufacturer and model
// from DMI, and a stable device id hashed from the host id.
package config
