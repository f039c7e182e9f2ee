// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"

	"mellium.im/sasl"
	"mellium.im/xmpp"
	"mellium.im/xmpp/dial"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/cmd/mucbot/internal/config"
	"mellium.im/jabberkit/cmd/mucbot/internal/seen"
	"mellium.im/jabberkit/dispatch"
)

func serve(ctx context.Context, cfg *config.Config, store *seen.Store, xmlIn, xmlOut io.Writer, logger *slog.Logger) error {
	j, err := jid.Parse(cfg.Account.JID)
	if err != nil {
		return fmt.Errorf("error parsing address %q: %w", cfg.Account.JID, err)
	}

	conn, err := dial.Client(ctx, "tcp", j)
	if err != nil {
		return fmt.Errorf("error dialing session: %w", err)
	}

	tlsConfig := &tls.Config{
		ServerName: j.Domain().String(),
		MinVersion: tls.VersionTLS12,
	}
	s, err := xmpp.NewSession(ctx, j.Domain(), j, conn, 0, xmpp.NewNegotiator(func(*xmpp.Session, *xmpp.StreamConfig) xmpp.StreamConfig {
		return xmpp.StreamConfig{
			Lang: "en",
			Features: []xmpp.StreamFeature{
				xmpp.StartTLS(tlsConfig),
				xmpp.SASL("", cfg.Account.Password, sasl.ScramSha256Plus, sasl.ScramSha256, sasl.ScramSha1Plus, sasl.ScramSha1, sasl.Plain),
				xmpp.BindResource(),
			},
			TeeIn:  xmlIn,
			TeeOut: xmlOut,
		}
	}))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("error establishing a session: %w", err)
	}
	logger.Info("session established", "addr", s.LocalAddr())
	defer func() {
		if err := s.Conn().Close(); err != nil {
			logger.Debug("error closing connection", "err", err)
		}
	}()

	d := dispatch.New(s, dispatch.Logger(logger), dispatch.Context(ctx))
	b, err := newBot(d, cfg, store, logger)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(d)
	}()

	err = s.Send(ctx, stanza.Presence{Type: stanza.AvailablePresence}.Wrap(nil))
	if err != nil {
		return fmt.Errorf("error sending initial presence: %w", err)
	}
	if err := b.join(ctx); err != nil {
		return err
	}

	pingErr := make(chan error, 1)
	go func() {
		pingErr <- b.keepalive(ctx, cfg.Account.Keepalive)
	}()

	select {
	case err := <-pingErr:
		if err != nil {
			b.leave(context.Background())
			_ = s.Close()
			return err
		}
	case err := <-serveErr:
		b.leave(context.Background())
		if err != nil {
			return fmt.Errorf("session ended: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	b.leave(context.Background())
	if err := s.Close(); err != nil {
		logger.Debug("error closing session", "err", err)
	}
	return <-serveErr
}
