// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The mucbot command joins multi-user chat rooms and remembers when each
// occupant was last seen.
//
// Occupants can ask the bot about a nickname by sending "!seen nick" to a room
// or by executing the "seen" ad-hoc command.
// Administrators listed in the configuration file may also execute the "rooms"
// command to list the joined rooms.
//
// For more information try running:
//
//	mucbot -help
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mellium.im/jabberkit/cmd/mucbot/internal/config"
	"mellium.im/jabberkit/cmd/mucbot/internal/seen"
)

type logWriter struct {
	logger *slog.Logger
	msg    string
}

func (lw logWriter) Write(p []byte) (int, error) {
	lw.logger.Debug(lw.msg, "xml", string(p))
	return len(p), nil
}

func main() {
	var (
		configPath = "mucbot.toml"
		verbose    bool
		logXML     bool
	)
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage of %s:\n", flags.Name())
		fmt.Fprintf(flags.Output(), "\n  $MUCBOT_PASS: The account password, overrides the configuration file\n\n")
		flags.PrintDefaults()
	}
	flags.StringVar(&configPath, "config", configPath, "the configuration file")
	flags.BoolVar(&verbose, "v", verbose, "turns on debug logging")
	flags.BoolVar(&logXML, "vv", logXML, "turns on debug and XML logging")

	switch err := flags.Parse(os.Args[1:]); {
	case errors.Is(err, flag.ErrHelp):
		return
	case err != nil:
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := cfg.Level()
	if verbose || logXML {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var xmlIn, xmlOut io.Writer
	if logXML {
		xmlIn = logWriter{logger: logger, msg: "recv"}
		xmlOut = logWriter{logger: logger, msg: "sent"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, xmlIn, xmlOut, logger); err != nil {
		logger.Error("mucbot stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, xmlIn, xmlOut io.Writer, logger *slog.Logger) (err error) {
	store, err := seen.Open(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return serve(ctx, cfg, store, xmlIn, xmlOut, logger)
}
