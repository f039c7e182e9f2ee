// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package disco implements service discovery.
//
// A Disco answers information and item queries about the local entity and
// about nodes that other components register, and it sends queries to other
// entities on behalf of a Handler.
// It also answers software version queries.
package disco // import "mellium.im/jabberkit/disco"

import (
	"context"
	"encoding/xml"
	"slices"
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/attr"
	"mellium.im/jabberkit/internal/ns"
	"mellium.im/jabberkit/tracker"
)

// Namespaces used by this package.
const (
	NSInfo  = ns.DiscoInfo
	NSItems = ns.DiscoItem
)

// Handler receives the results of queries sent with GetInfo and GetItems.
// The context is the value passed when the query was sent.
type Handler interface {
	HandleDiscoInfo(from jid.JID, info Info, context int)
	HandleDiscoItems(from jid.JID, items Items, context int)
	HandleDiscoError(from jid.JID, err stanza.Error, context int)
}

// NodeHandler provides information about nodes.
// Handlers registered for the empty node contribute to the answers about the
// local entity itself.
type NodeHandler interface {
	DiscoNodeFeatures(from jid.JID, node string) []string
	DiscoNodeIdentities(from jid.JID, node string) []Identity
	DiscoNodeItems(from, to jid.JID, node string) []Item
}

const (
	opInfo = iota
	opItems
)

// Disco handles service discovery for a connection.
type Disco struct {
	d       *dispatch.Dispatcher
	pending tracker.Table[int, Handler]

	mu         sync.RWMutex
	identities []Identity
	features   []string
	forms      []*form.Data
	version    Version
	nodes      map[string][]NodeHandler
}

var iqNames = [...]xml.Name{
	{Space: NSInfo, Local: "query"},
	{Space: NSItems, Local: "query"},
	{Space: NSVersion, Local: "query"},
}

// New creates a Disco that answers queries received by d.
// The entity advertises support for service discovery and software version
// from the start.
func New(d *dispatch.Dispatcher) *Disco {
	disco := &Disco{
		d:        d,
		features: []string{NSInfo, NSItems, NSVersion},
		version:  Version{Name: "jabberkit"},
		nodes:    make(map[string][]NodeHandler),
	}
	for _, p := range []ext.Prototype{
		ext.Decode[Info](ext.KindDiscoInfo, "/iq/query[@xmlns='"+NSInfo+"']"),
		ext.Decode[Items](ext.KindDiscoItems, "/iq/query[@xmlns='"+NSItems+"']"),
		ext.Decode[Version](ext.KindVersion, "/iq/query[@xmlns='"+NSVersion+"']"),
	} {
		if err := d.RegisterExtension(p); err != nil {
			panic(err)
		}
	}
	for _, name := range iqNames {
		d.RegisterIQHandler(name, disco)
	}
	return disco
}

// Dispatcher returns the dispatcher that the Disco was created with.
func (disco *Disco) Dispatcher() *dispatch.Dispatcher {
	return disco.d
}

// AddFeature advertises a feature.
// Adding a feature that is already advertised has no effect.
func (disco *Disco) AddFeature(feature string) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	if !slices.Contains(disco.features, feature) {
		disco.features = append(disco.features, feature)
	}
}

// RemoveFeature stops advertising a feature.
func (disco *Disco) RemoveFeature(feature string) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.features = slices.DeleteFunc(disco.features, func(f string) bool {
		return f == feature
	})
}

// HasFeature reports whether a feature is advertised.
func (disco *Disco) HasFeature(feature string) bool {
	disco.mu.RLock()
	defer disco.mu.RUnlock()
	return slices.Contains(disco.features, feature)
}

// Features returns the advertised features.
func (disco *Disco) Features() []string {
	disco.mu.RLock()
	defer disco.mu.RUnlock()
	return slices.Clone(disco.features)
}

// AddIdentity adds an identity to the local entity.
func (disco *Disco) AddIdentity(category, typ, name string) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.identities = append(disco.identities, Identity{Category: category, Type: typ, Name: name})
}

// SetForm sets the extended information form advertised with the local
// entity's features.
// Passing nil removes it.
func (disco *Disco) SetForm(f *form.Data) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.forms = nil
	if f != nil {
		disco.forms = []*form.Data{f}
	}
}

// SetVersion sets the software version reported to version queries.
func (disco *Disco) SetVersion(name, version, os string) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.version = Version{Name: name, Version: version, OS: os}
}

// RegisterNodeHandler registers h to answer queries about node.
func (disco *Disco) RegisterNodeHandler(node string, h NodeHandler) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.nodes[node] = append(disco.nodes[node], h)
}

// RemoveNodeHandler unregisters h from node.
func (disco *Disco) RemoveNodeHandler(node string, h NodeHandler) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	disco.removeNode(node, h)
}

func (disco *Disco) removeNode(node string, h NodeHandler) {
	list := slices.DeleteFunc(disco.nodes[node], func(nh NodeHandler) bool {
		return nh == h
	})
	if len(list) == 0 {
		delete(disco.nodes, node)
		return
	}
	disco.nodes[node] = list
}

// RemoveNodeHandlers unregisters h from every node.
func (disco *Disco) RemoveNodeHandlers(h NodeHandler) {
	disco.mu.Lock()
	defer disco.mu.Unlock()
	for node := range disco.nodes {
		disco.removeNode(node, h)
	}
}

func (disco *Disco) nodeHandlers(node string) []NodeHandler {
	disco.mu.RLock()
	defer disco.mu.RUnlock()
	return slices.Clone(disco.nodes[node])
}

// GetInfo queries to for information about node.
// The result is delivered to h along with context.
func (disco *Disco) GetInfo(ctx context.Context, to jid.JID, node string, h Handler, context int) error {
	return disco.query(ctx, to, &Info{Node: node}, opInfo, h, context)
}

// GetItems queries to for the items of node.
// The result is delivered to h along with context.
func (disco *Disco) GetItems(ctx context.Context, to jid.JID, node string, h Handler, context int) error {
	return disco.query(ctx, to, &Items{Node: node}, opItems, h, context)
}

func (disco *Disco) query(ctx context.Context, to jid.JID, payload ext.Extension, op int, h Handler, context int) error {
	id := disco.d.NewID()
	disco.pending.Track(id, h, context)
	_, err := disco.d.SendIQ(ctx, stanza.IQ{ID: id, To: to, Type: stanza.GetIQ}, payload.TokenReader(), disco, op)
	if err != nil {
		disco.pending.Remove(id)
	}
	return err
}

// RemoveDiscoHandler forgets all pending queries for h.
// Results that arrive later are ignored.
func (disco *Disco) RemoveDiscoHandler(h Handler) {
	disco.pending.RemoveFunc(func(e tracker.Entry[int, Handler]) bool {
		return e.Handler == h
	})
}

// HandleIQID implements dispatch.IQResultHandler.
func (disco *Disco) HandleIQID(st *ext.Stanza, op int) {
	e, ok := disco.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandleDiscoError(st.From, se, e.Context)
		return
	}
	switch op {
	case opInfo:
		info, _ := st.Extension(ext.KindDiscoInfo).(*Info)
		if info == nil {
			info = &Info{}
		}
		e.Handler.HandleDiscoInfo(st.From, *info, e.Context)
	case opItems:
		items, _ := st.Extension(ext.KindDiscoItems).(*Items)
		if items == nil {
			items = &Items{}
		}
		e.Handler.HandleDiscoItems(st.From, *items, e.Context)
	}
}

// HandleIQ implements dispatch.IQHandler.
func (disco *Disco) HandleIQ(st *ext.Stanza) error {
	if stanza.IQType(st.Type) != stanza.GetIQ {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.BadRequest}
	}
	start, _ := st.FirstChild()
	node := attr.Value(start.Attr, "node")
	switch start.Name.Space {
	case NSInfo:
		return disco.handleInfo(st, node)
	case NSItems:
		return disco.handleItems(st, node)
	}
	disco.mu.RLock()
	v := disco.version
	disco.mu.RUnlock()
	return disco.d.Result(st, v.TokenReader())
}

func (disco *Disco) handleInfo(st *ext.Stanza, node string) error {
	handlers := disco.nodeHandlers(node)
	info := &Info{Node: node}
	if node == "" {
		disco.mu.RLock()
		info.Identities = slices.Clone(disco.identities)
		info.Features = slices.Clone(disco.features)
		info.Forms = slices.Clone(disco.forms)
		disco.mu.RUnlock()
	} else if len(handlers) == 0 {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound}
	}
	for _, h := range handlers {
		info.Identities = append(info.Identities, h.DiscoNodeIdentities(st.From, node)...)
		for _, f := range h.DiscoNodeFeatures(st.From, node) {
			if !slices.Contains(info.Features, f) {
				info.Features = append(info.Features, f)
			}
		}
	}
	return disco.d.Result(st, info.TokenReader())
}

func (disco *Disco) handleItems(st *ext.Stanza, node string) error {
	handlers := disco.nodeHandlers(node)
	if node != "" && len(handlers) == 0 {
		return stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound}
	}
	items := &Items{Node: node}
	for _, h := range handlers {
		items.Items = append(items.Items, h.DiscoNodeItems(st.From, st.To, node)...)
	}
	return disco.d.Result(st, items.TokenReader())
}

// Close unregisters the handlers that the Disco registered with its
// dispatcher and forgets all pending queries.
func (disco *Disco) Close() {
	for _, name := range iqNames {
		disco.d.RemoveIQHandler(name, disco)
	}
	disco.d.RemoveIDHandler(disco)
	disco.pending.RemoveFunc(func(tracker.Entry[int, Handler]) bool { return true })
}
