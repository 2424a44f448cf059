// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger returns a logger on stderr at the named level ("debug",
// "info", "warn", "error"). When stderr is a terminal the output is
// slog text; otherwise it is JSON so collectors and CI can parse it.
func NewLogger(level string) (*slog.Logger, error) {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(output io.Writer, terminal bool, level string) (*slog.Logger, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	options := &slog.HandlerOptions{Level: parsed}
	if terminal {
		return slog.New(slog.NewTextHandler(output, options)), nil
	}
	return slog.New(slog.NewJSONHandler(output, options)), nil
}
