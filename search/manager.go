// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package search

import (
	"context"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/tracker"
)

// Handler receives the responses of a directory.
//
// The Query passed to HandleSearchFields carries either a form or the
// supported legacy fields, and the one passed to HandleSearchResult carries
// either a result form or a list of items.
type Handler interface {
	HandleSearchFields(from jid.JID, q *Query)
	HandleSearchResult(from jid.JID, q *Query)
	HandleSearchError(from jid.JID, err stanza.Error)
}

const (
	opFields = iota
	opSearch
)

// Manager searches directories.
type Manager struct {
	d       *dispatch.Dispatcher
	pending tracker.Table[int, Handler]
}

// NewManager returns a Manager that sends its requests using d.
func NewManager(d *dispatch.Dispatcher) *Manager {
	if err := d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	return &Manager{d: d}
}

func (m *Manager) send(ctx context.Context, to jid.JID, typ stanza.IQType, q *Query, h Handler, op int) error {
	id := m.d.NewID()
	m.pending.Track(id, h, op)
	_, err := m.d.SendIQ(ctx, stanza.IQ{ID: id, To: to, Type: typ}, q.TokenReader(), m, op)
	if err != nil {
		m.pending.Remove(id)
	}
	return err
}

// FetchFields asks the directory at to what it can be searched by.
func (m *Manager) FetchFields(ctx context.Context, to jid.JID, h Handler) error {
	return m.send(ctx, to, stanza.GetIQ, &Query{}, h, opFields)
}

// Search submits a filled out search form to the directory at to.
// If f is not already a submission, only its values are sent.
func (m *Manager) Search(ctx context.Context, to jid.JID, f *form.Data, h Handler) error {
	if f.Type != form.TypeSubmit {
		f, _ = f.Submit()
	}
	return m.send(ctx, to, stanza.SetIQ, &Query{Form: f}, h, opSearch)
}

// SearchFields searches the directory at to using the legacy fields of q.
// Only fields with values are sent.
func (m *Manager) SearchFields(ctx context.Context, to jid.JID, q Query, h Handler) error {
	req := &Query{First: q.First, Last: q.Last, Nick: q.Nick, Email: q.Email}
	return m.send(ctx, to, stanza.SetIQ, req, h, opSearch)
}

// RemoveHandler forgets all pending requests for h.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[int, Handler]) bool {
		return e.Handler == h
	})
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, op int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandleSearchError(st.From, se)
		return
	}
	q, _ := st.Extension(ext.KindSearch).(*Query)
	if q == nil {
		e.Handler.HandleSearchError(st.From, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest})
		return
	}
	if op == opFields {
		e.Handler.HandleSearchFields(st.From, q)
		return
	}
	e.Handler.HandleSearchResult(st.From, q)
}
