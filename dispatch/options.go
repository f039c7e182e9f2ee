// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"log/slog"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Logger sets the logger used to report dropped and unhandled stanzas.
// By default nothing is logged.
func Logger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// IDFunc sets the function used to generate stanza ids.
// By default random ids are used.
func IDFunc(f func() string) Option {
	return func(d *Dispatcher) {
		d.newID = f
	}
}

// Context sets the context used for stanzas sent from within handlers, such as
// automatic error replies.
// It defaults to context.Background.
func Context(ctx context.Context) Option {
	return func(d *Dispatcher) {
		d.ctx = ctx
	}
}
