// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package vcard

import (
	"context"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/tracker"
)

// Op is the kind of request that a result belongs to.
type Op uint8

// A list of operations.
const (
	OpFetch Op = iota
	OpStore
)

func (op Op) String() string {
	if op == OpStore {
		return "store"
	}
	return "fetch"
}

// Handler receives the outcome of vCard requests.
//
// Every request results in exactly one call: a successful fetch calls
// HandleVCard and every other outcome calls HandleVCardResult.
type Handler interface {
	// HandleVCard is called with the vCard of from.
	// If from has no vCard an empty one is delivered.
	HandleVCard(from jid.JID, v *VCard)

	// HandleVCardResult is called when a store completes or a request fails.
	// Err is nil on success and a stanza.Error otherwise.
	HandleVCardResult(op Op, from jid.JID, err error)
}

// Manager fetches and stores vCards.
type Manager struct {
	d       *dispatch.Dispatcher
	pending tracker.Table[Op, Handler]
}

// NewManager returns a Manager that sends its requests using d.
func NewManager(d *dispatch.Dispatcher) *Manager {
	if err := d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	return &Manager{d: d}
}

func (m *Manager) send(ctx context.Context, iq stanza.IQ, v *VCard, h Handler, op Op) error {
	iq.ID = m.d.NewID()
	m.pending.Track(iq.ID, h, op)
	_, err := m.d.SendIQ(ctx, iq, v.TokenReader(), m, int(op))
	if err != nil {
		m.pending.Remove(iq.ID)
	}
	return err
}

// Fetch requests the vCard of to.
// A bare JID fetches the vCard of an account.
func (m *Manager) Fetch(ctx context.Context, to jid.JID, h Handler) error {
	return m.send(ctx, stanza.IQ{To: to, Type: stanza.GetIQ}, &VCard{}, h, OpFetch)
}

// Store publishes v as the vCard of the local account.
func (m *Manager) Store(ctx context.Context, v *VCard, h Handler) error {
	return m.send(ctx, stanza.IQ{Type: stanza.SetIQ}, v, h, OpStore)
}

// Cancel forgets all pending requests for h.
// Replies that arrive later are ignored.
func (m *Manager) Cancel(h Handler) int {
	return m.pending.RemoveFunc(func(e tracker.Entry[Op, Handler]) bool {
		return e.Handler == h
	})
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, _ int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandleVCardResult(e.Context, st.From, se)
		return
	}
	if e.Context == OpStore {
		e.Handler.HandleVCardResult(OpStore, st.From, nil)
		return
	}
	v, _ := st.Extension(ext.KindVCard).(*VCard)
	if v == nil {
		v = &VCard{}
	}
	e.Handler.HandleVCard(st.From, v)
}
