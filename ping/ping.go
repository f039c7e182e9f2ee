// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements XEP-0199: XMPP Ping.
package ping // import "mellium.im/jabberkit/ping"

import (
	"context"
	"encoding/xml"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/tracker"
)

// NS is the XML namespace used by XMPP pings. It is provided as a convenience.
const NS = `urn:xmpp:ping`

var iqName = xml.Name{Space: NS, Local: "ping"}

// Handler receives the results of pings sent with Ping.
type Handler interface {
	// HandlePong is called with the round trip time of a successful ping.
	HandlePong(from jid.JID, rtt time.Duration)

	// HandlePingError is called if the ping failed.
	// An entity that does not support pings replies with service-unavailable
	// or feature-not-implemented, which still shows that it is reachable.
	HandlePingError(from jid.JID, err stanza.Error)
}

// Manager answers pings and sends them.
type Manager struct {
	d       *dispatch.Dispatcher
	disco   *disco.Disco
	pending tracker.Table[time.Time, Handler]
	now     func() time.Time
}

// NewManager registers a Manager with the dispatcher of dc and advertises
// support for pings.
func NewManager(dc *disco.Disco) *Manager {
	m := &Manager{
		d:     dc.Dispatcher(),
		disco: dc,
		now:   time.Now,
	}
	m.d.RegisterIQHandler(iqName, m)
	dc.AddFeature(NS)
	return m
}

// Ping sends a ping to to.
// A zero JID pings the server.
func (m *Manager) Ping(ctx context.Context, to jid.JID, h Handler) error {
	id := m.d.NewID()
	m.pending.Track(id, h, m.now())
	iq := stanza.IQ{ID: id, To: to, Type: stanza.GetIQ}
	_, err := m.d.SendIQ(ctx, iq, ext.Element(iqName), m, 0)
	if err != nil {
		m.pending.Remove(id)
	}
	return err
}

// Pending returns the number of pings that have not been answered.
func (m *Manager) Pending() int {
	return m.pending.Len()
}

// RemoveHandler forgets all pending pings for h.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[time.Time, Handler]) bool {
		return e.Handler == h
	})
}

// Close stops answering pings and forgets all pending pings.
func (m *Manager) Close() {
	m.d.RemoveIQHandler(iqName, m)
	m.d.RemoveIDHandler(m)
	m.disco.RemoveFeature(NS)
	m.pending.RemoveFunc(func(tracker.Entry[time.Time, Handler]) bool { return true })
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, _ int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandlePingError(st.From, se)
		return
	}
	e.Handler.HandlePong(st.From, m.now().Sub(e.Context))
}

// HandleIQ implements dispatch.IQHandler.
func (m *Manager) HandleIQ(st *ext.Stanza) error {
	if stanza.IQType(st.Type) != stanza.GetIQ {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.BadRequest}
	}
	return m.d.Result(st, nil)
}
