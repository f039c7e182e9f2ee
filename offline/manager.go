// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package offline

import (
	"context"
	"encoding/xml"
	"strconv"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/tracker"
)

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Op -trimprefix=Op -output=op_string.go

// Op is the kind of request that a result belongs to.
type Op uint8

// A list of operations.
const (
	OpCheckSupport Op = iota
	OpMsgCount
	OpFetchHeaders
	OpFetchMessages
	OpRemoveMessages
)

// Header describes a stored message.
type Header struct {
	// Node identifies the message in view and remove requests.
	Node string

	// From is the sender as reported by the server.
	From string
}

// Handler receives the results of requests sent by a Manager.
type Handler interface {
	HandleOfflineSupport(supported bool)
	HandleOfflineCount(n int)
	HandleOfflineHeaders(headers []Header)

	// HandleOfflineResult is called when a fetch or remove completes or any
	// request fails.
	// Err is nil on success and a stanza.Error otherwise.
	HandleOfflineResult(op Op, err error)
}

// Manager retrieves offline messages from the server of the local account.
type Manager struct {
	d       *dispatch.Dispatcher
	server  jid.JID
	pending tracker.Table[Op, Handler]
}

// NewManager creates a Manager that queries server using the dispatcher of dc.
func NewManager(dc *disco.Disco, server jid.JID) *Manager {
	d := dc.Dispatcher()
	if err := d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	return &Manager{d: d, server: server.Domain()}
}

func (m *Manager) send(ctx context.Context, iq stanza.IQ, payload xml.TokenReader, h Handler, op Op) error {
	iq.ID = m.d.NewID()
	m.pending.Track(iq.ID, h, op)
	_, err := m.d.SendIQ(ctx, iq, payload, m, int(op))
	if err != nil {
		m.pending.Remove(iq.ID)
	}
	return err
}

// CheckSupport asks the server whether it supports offline message
// retrieval.
func (m *Manager) CheckSupport(ctx context.Context, h Handler) error {
	return m.send(ctx, stanza.IQ{To: m.server, Type: stanza.GetIQ}, (&disco.Info{}).TokenReader(), h, OpCheckSupport)
}

// GetMsgCount asks the server how many messages are stored.
func (m *Manager) GetMsgCount(ctx context.Context, h Handler) error {
	return m.send(ctx, stanza.IQ{To: m.server, Type: stanza.GetIQ}, (&disco.Info{Node: NS}).TokenReader(), h, OpMsgCount)
}

// FetchHeaders lists the stored messages.
func (m *Manager) FetchHeaders(ctx context.Context, h Handler) error {
	return m.send(ctx, stanza.IQ{Type: stanza.GetIQ}, (&disco.Items{Node: NS}).TokenReader(), h, OpFetchHeaders)
}

func request(nodes []string, action Action, all *Offline) *Offline {
	if nodes == nil {
		return all
	}
	o := &Offline{}
	for _, node := range nodes {
		o.Items = append(o.Items, Item{Action: action, Node: node})
	}
	return o
}

// FetchMessages asks the server to deliver the messages with the given nodes.
// If nodes is nil all messages are delivered.
// The messages arrive as normal message stanzas before the result.
func (m *Manager) FetchMessages(ctx context.Context, nodes []string, h Handler) error {
	o := request(nodes, ActionView, &Offline{Fetch: true})
	return m.send(ctx, stanza.IQ{Type: stanza.GetIQ}, o.TokenReader(), h, OpFetchMessages)
}

// RemoveMessages deletes the messages with the given nodes.
// If nodes is nil all messages are deleted.
func (m *Manager) RemoveMessages(ctx context.Context, nodes []string, h Handler) error {
	o := request(nodes, ActionRemove, &Offline{Purge: true})
	return m.send(ctx, stanza.IQ{Type: stanza.SetIQ}, o.TokenReader(), h, OpRemoveMessages)
}

// RemoveHandler forgets all pending requests for h.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[Op, Handler]) bool {
		return e.Handler == h
	})
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, _ int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	se, isErr := st.StanzaError()
	if isErr && e.Context != OpCheckSupport {
		e.Handler.HandleOfflineResult(e.Context, se)
		return
	}
	switch e.Context {
	case OpCheckSupport:
		info, _ := st.Extension(ext.KindDiscoInfo).(*disco.Info)
		e.Handler.HandleOfflineSupport(!isErr && info != nil && info.HasFeature(NS))
	case OpMsgCount:
		e.Handler.HandleOfflineCount(count(st))
	case OpFetchHeaders:
		var headers []Header
		if items, ok := st.Extension(ext.KindDiscoItems).(*disco.Items); ok {
			for _, item := range items.Items {
				headers = append(headers, Header{Node: item.Node, From: item.Name})
			}
		}
		e.Handler.HandleOfflineHeaders(headers)
	default:
		e.Handler.HandleOfflineResult(e.Context, nil)
	}
}

// count returns the number_of_messages value of the extended info form, or
// -1 if the server did not include it.
func count(st *ext.Stanza) int {
	info, _ := st.Extension(ext.KindDiscoInfo).(*disco.Info)
	if info == nil {
		return -1
	}
	for _, f := range info.Forms {
		if v, ok := f.Get("number_of_messages"); ok {
			n, err := strconv.Atoi(v)
			if err == nil {
				return n
			}
		}
	}
	return -1
}
