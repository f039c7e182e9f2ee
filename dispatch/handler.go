// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"encoding/xml"

	"mellium.im/jabberkit/ext"
)

// Sender writes stanzas to the stream.
// It is implemented by *xmpp.Session.
type Sender interface {
	Send(ctx context.Context, r xml.TokenReader) error
}

// IQResultHandler receives the reply (of type result or error) to an IQ that
// was sent with SendIQ.
// The context is the value that was passed to SendIQ and identifies the
// operation the reply belongs to.
type IQResultHandler interface {
	HandleIQID(st *ext.Stanza, context int)
}

// IQResultHandlerFunc is an adapter to allow the use of ordinary functions as
// IQ result handlers.
type IQResultHandlerFunc func(st *ext.Stanza, context int)

// HandleIQID calls f(st, context).
func (f IQResultHandlerFunc) HandleIQID(st *ext.Stanza, context int) {
	f(st, context)
}

// IQHandler responds to IQs of type get or set.
//
// Handlers should reply using the dispatcher's Result, Error, or Reply methods
// before returning.
// If a handler returns a stanza.Error without having replied, the error is
// sent as the reply.
// Any other error is logged and answered with internal-server-error.
type IQHandler interface {
	HandleIQ(st *ext.Stanza) error
}

// IQHandlerFunc is an adapter to allow the use of ordinary functions as IQ
// handlers.
type IQHandlerFunc func(st *ext.Stanza) error

// HandleIQ calls f(st).
func (f IQHandlerFunc) HandleIQ(st *ext.Stanza) error {
	return f(st)
}

// PresenceHandler receives presence stanzas.
type PresenceHandler interface {
	HandlePresence(st *ext.Stanza)
}

// PresenceHandlerFunc is an adapter to allow the use of ordinary functions as
// presence handlers.
type PresenceHandlerFunc func(st *ext.Stanza)

// HandlePresence calls f(st).
func (f PresenceHandlerFunc) HandlePresence(st *ext.Stanza) {
	f(st)
}

// MessageHandler receives message stanzas.
type MessageHandler interface {
	HandleMessage(st *ext.Stanza)
}

// MessageHandlerFunc is an adapter to allow the use of ordinary functions as
// message handlers.
type MessageHandlerFunc func(st *ext.Stanza)

// HandleMessage calls f(st).
func (f MessageHandlerFunc) HandleMessage(st *ext.Stanza) {
	f(st)
}
