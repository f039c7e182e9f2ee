// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"encoding/xml"
	"errors"
	"slices"
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/tracker"
)

// Errors returned by the Manager.
var (
	ErrInvalidCommand = errors.New("commands: command has no node or an invalid action")
	ErrUnknownSession = errors.New("commands: no pending request for session")
)

const (
	opCheckSupport = iota
	opGetCommands
	opExecute
)

var iqName = xml.Name{Space: NS, Local: "command"}

type provider struct {
	node string
	name string
	p    Provider
}

// Manager offers commands to other entities and executes theirs.
type Manager struct {
	d     *dispatch.Dispatcher
	disco *disco.Disco

	pending tracker.Table[int, Handler]

	mu        sync.Mutex
	providers []provider
	sessions  map[string]*ext.Stanza
}

// NewManager creates a Manager that answers commands received by the
// dispatcher of dc and advertises them using dc.
func NewManager(dc *disco.Disco) *Manager {
	m := &Manager{
		d:        dc.Dispatcher(),
		disco:    dc,
		sessions: make(map[string]*ext.Stanza),
	}
	if err := m.d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	m.d.RegisterIQHandler(iqName, m)
	dc.AddFeature(NS)
	dc.RegisterNodeHandler(NS, m)
	return m
}

// Close stops answering commands and forgets all pending requests and
// sessions.
func (m *Manager) Close() {
	m.d.RemoveIQHandler(iqName, m)
	m.d.RemoveIDHandler(m)
	m.disco.RemoveFeature(NS)
	m.disco.RemoveNodeHandlers(m)
	m.pending.RemoveFunc(func(tracker.Entry[int, Handler]) bool { return true })
	m.mu.Lock()
	m.providers = nil
	clear(m.sessions)
	m.mu.Unlock()
}

// RegisterProvider offers the command at node with the human readable name.
// Registering a node a second time replaces the provider.
func (m *Manager) RegisterProvider(node, name string, p Provider) {
	m.mu.Lock()
	i := slices.IndexFunc(m.providers, func(e provider) bool { return e.node == node })
	if i >= 0 {
		m.providers[i] = provider{node: node, name: name, p: p}
	} else {
		m.providers = append(m.providers, provider{node: node, name: name, p: p})
	}
	m.mu.Unlock()
	if i < 0 {
		m.disco.RegisterNodeHandler(node, m)
	}
}

// RemoveProvider stops offering the command at node.
func (m *Manager) RemoveProvider(node string) {
	m.mu.Lock()
	n := len(m.providers)
	m.providers = slices.DeleteFunc(m.providers, func(e provider) bool { return e.node == node })
	removed := len(m.providers) != n
	m.mu.Unlock()
	if removed {
		m.disco.RemoveNodeHandler(node, m)
	}
}

func (m *Manager) provider(node string) (provider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.providers, func(e provider) bool { return e.node == node })
	if i < 0 {
		return provider{}, false
	}
	return m.providers[i], true
}

func (m *Manager) send(ctx context.Context, to jid.JID, typ stanza.IQType, payload xml.TokenReader, h Handler, op, context int) error {
	id := m.d.NewID()
	m.pending.Track(id, h, context)
	_, err := m.d.SendIQ(ctx, stanza.IQ{ID: id, To: to, Type: typ}, payload, m, op)
	if err != nil {
		m.pending.Remove(id)
	}
	return err
}

// CheckSupport asks remote whether it supports commands.
// The answer is delivered to h's HandleAdhocSupport method.
func (m *Manager) CheckSupport(ctx context.Context, remote jid.JID, h Handler, context int) error {
	return m.send(ctx, remote, stanza.GetIQ, (&disco.Info{}).TokenReader(), h, opCheckSupport, context)
}

// GetCommands requests the commands offered by remote.
// The list is delivered to h's HandleAdhocCommands method.
func (m *Manager) GetCommands(ctx context.Context, remote jid.JID, h Handler, context int) error {
	return m.send(ctx, remote, stanza.GetIQ, (&disco.Items{Node: NS}).TokenReader(), h, opGetCommands, context)
}

// Execute sends cmd to remote.
// The response is delivered to h's HandleAdhocExecutionResult method, or
// HandleAdhocError if remote returned an error.
func (m *Manager) Execute(ctx context.Context, remote jid.JID, cmd *Command, h Handler, context int) error {
	r := cmd.TokenReader()
	if r == nil {
		return ErrInvalidCommand
	}
	return m.send(ctx, remote, stanza.SetIQ, r, h, opExecute, context)
}

// RemoveHandler forgets all pending requests for h.
// Responses that arrive later are ignored.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[int, Handler]) bool {
		return e.Handler == h
	})
}

// Respond answers the request that carried the session of cmd.
// If se is not nil an error is returned to the requester instead of cmd.
// The session is forgotten once cmd is completed or canceled, or after an
// error.
func (m *Manager) Respond(cmd *Command, se *stanza.Error) error {
	m.mu.Lock()
	req, ok := m.sessions[cmd.SessionID]
	if ok && (se != nil || cmd.Status.Done()) {
		delete(m.sessions, cmd.SessionID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	if se != nil {
		return m.d.Error(req, *se)
	}
	r := cmd.TokenReader()
	if r == nil {
		return ErrInvalidCommand
	}
	return m.d.Result(req, r)
}

// HandleIQ implements dispatch.IQHandler.
func (m *Manager) HandleIQ(st *ext.Stanza) error {
	if stanza.IQType(st.Type) != stanza.SetIQ {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.BadRequest}
	}
	cmd, ok := st.Extension(ext.KindAdhoc).(*Command)
	if !ok || cmd.Action == ActionInvalid {
		return stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}
	p, ok := m.provider(cmd.Node)
	if !ok {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound}
	}
	sess := cmd.SessionID
	if sess == "" {
		sess = m.d.NewID()
	}
	m.mu.Lock()
	m.sessions[sess] = st
	m.mu.Unlock()
	p.p.HandleAdhocCommand(st.From, cmd, sess)
	return nil
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, op int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	se, isErr := st.StanzaError()
	switch op {
	case opCheckSupport:
		info, _ := st.Extension(ext.KindDiscoInfo).(*disco.Info)
		e.Handler.HandleAdhocSupport(st.From, !isErr && info != nil && info.HasFeature(NS), e.Context)
	case opGetCommands:
		if isErr {
			e.Handler.HandleAdhocError(st.From, se, e.Context)
			return
		}
		var items []disco.Item
		if i, ok := st.Extension(ext.KindDiscoItems).(*disco.Items); ok {
			items = i.Items
		}
		e.Handler.HandleAdhocCommands(st.From, items, e.Context)
	case opExecute:
		if isErr {
			e.Handler.HandleAdhocError(st.From, se, e.Context)
			return
		}
		cmd, ok := st.Extension(ext.KindAdhoc).(*Command)
		if !ok {
			e.Handler.HandleAdhocError(st.From, ext.ErrUndefined, e.Context)
			return
		}
		e.Handler.HandleAdhocExecutionResult(st.From, cmd, e.Context)
	}
}

// DiscoNodeFeatures implements disco.NodeHandler.
func (m *Manager) DiscoNodeFeatures(_ jid.JID, node string) []string {
	if node == NS {
		return nil
	}
	if _, ok := m.provider(node); !ok {
		return nil
	}
	return []string{NS, form.NS}
}

// DiscoNodeIdentities implements disco.NodeHandler.
func (m *Manager) DiscoNodeIdentities(_ jid.JID, node string) []disco.Identity {
	if node == NS {
		return []disco.Identity{{Category: "automation", Type: "command-list", Name: "Ad-Hoc Commands"}}
	}
	p, ok := m.provider(node)
	if !ok {
		return nil
	}
	return []disco.Identity{{Category: "automation", Type: "command-node", Name: p.name}}
}

// DiscoNodeItems implements disco.NodeHandler.
// The command list only contains the commands that the providers allow from
// to see.
func (m *Manager) DiscoNodeItems(from, to jid.JID, node string) []disco.Item {
	if node != NS {
		return nil
	}
	m.mu.Lock()
	providers := slices.Clone(m.providers)
	m.mu.Unlock()

	var items []disco.Item
	for _, p := range providers {
		if p.p.HandleAdhocAccessRequest(from, p.node) {
			items = append(items, disco.Item{JID: to, Node: p.node, Name: p.name})
		}
	}
	return items
}
