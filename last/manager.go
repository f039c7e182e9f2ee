// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package last

import (
	"context"
	"encoding/xml"
	"sync"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/tracker"
)

// Handler receives the results of queries sent with Query.
type Handler interface {
	HandleLastActivityResult(from jid.JID, seconds uint64, status string)
	HandleLastActivityError(from jid.JID, err stanza.Error)
}

var iqName = xml.Name{Space: NS, Local: "query"}

// Manager sends last activity queries and answers them for the local entity.
type Manager struct {
	d       *dispatch.Dispatcher
	disco   *disco.Disco
	pending tracker.Table[struct{}, Handler]
	now     func() time.Time

	mu   sync.Mutex
	idle time.Time
}

// NewManager registers a Manager with the dispatcher of dc and advertises
// support for last activity.
// The local entity is considered idle from the time the Manager is created.
func NewManager(dc *disco.Disco) *Manager {
	return newManager(dc, time.Now)
}

func newManager(dc *disco.Disco, now func() time.Time) *Manager {
	m := &Manager{
		d:     dc.Dispatcher(),
		disco: dc,
		now:   now,
		idle:  now(),
	}
	if err := m.d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	m.d.RegisterIQHandler(iqName, m)
	dc.AddFeature(NS)
	return m
}

// ResetIdle records that the local user was just active.
func (m *Manager) ResetIdle() {
	m.mu.Lock()
	m.idle = m.now()
	m.mu.Unlock()
}

// Idle returns the time since ResetIdle was last called.
func (m *Manager) Idle() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.idle)
}

// Query asks to for its last activity.
func (m *Manager) Query(ctx context.Context, to jid.JID, h Handler) error {
	id := m.d.NewID()
	m.pending.Track(id, h, struct{}{})
	iq := stanza.IQ{ID: id, To: to, Type: stanza.GetIQ}
	_, err := m.d.SendIQ(ctx, iq, ext.Element(iqName), m, 0)
	if err != nil {
		m.pending.Remove(id)
	}
	return err
}

// RemoveHandler forgets all pending queries for h.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[struct{}, Handler]) bool {
		return e.Handler == h
	})
}

// Close stops answering queries and forgets all pending queries.
func (m *Manager) Close() {
	m.d.RemoveIQHandler(iqName, m)
	m.d.RemoveIDHandler(m)
	m.disco.RemoveFeature(NS)
	m.pending.RemoveFunc(func(tracker.Entry[struct{}, Handler]) bool { return true })
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, _ int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandleLastActivityError(st.From, se)
		return
	}
	q, _ := st.Extension(ext.KindLast).(*Query)
	if q == nil {
		e.Handler.HandleLastActivityError(st.From, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest})
		return
	}
	e.Handler.HandleLastActivityResult(st.From, q.Seconds, q.Status)
}

// HandleIQ implements dispatch.IQHandler.
func (m *Manager) HandleIQ(st *ext.Stanza) error {
	if stanza.IQType(st.Type) != stanza.GetIQ {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
	}
	q := &Query{Seconds: uint64(m.Idle() / time.Second)}
	return m.d.Result(st, q.TokenReader())
}
