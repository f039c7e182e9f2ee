// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package dispatch routes stanzas between a session and the components that
// are interested in them.
//
// A Dispatcher is the single entry point for incoming stanzas on a connection:
// it parses each stanza's extensions, hands replies to IQs back to whoever sent
// the request (matching on the stanza id), and delivers everything else to the
// registered IQ, presence, and message handlers.
// It also wraps the outgoing side so that components can send requests and
// have the replies tracked for them.
package dispatch // import "mellium.im/jabberkit/dispatch"

import (
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"sync"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/internal/attr"
	"mellium.im/jabberkit/tracker"
)

type jidEntry[H any] struct {
	bare string
	h    H
}

type serving struct {
	w       xmlstream.TokenWriter
	st      *ext.Stanza
	replied bool
}

// Dispatcher parses incoming stanzas and delivers them to handlers.
// It implements xmpp.Handler.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	newID  func() string
	ctx    context.Context
	reg    *ext.Registry

	pending tracker.Table[int, IQResultHandler]

	mu       sync.RWMutex
	iq       map[xml.Name]IQHandler
	presence []jidEntry[PresenceHandler]
	message  []jidEntry[MessageHandler]

	curMu sync.Mutex
	cur   *serving
}

// New creates a dispatcher that sends stanzas using s.
func New(s Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender: s,
		logger: slog.New(slog.DiscardHandler),
		newID:  attr.RandomID,
		ctx:    context.Background(),
		reg:    ext.NewRegistry(),
		iq:     make(map[xml.Name]IQHandler),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the extension registry used to parse incoming stanzas.
func (d *Dispatcher) Registry() *ext.Registry {
	return d.reg
}

// RegisterExtension adds a prototype to the registry.
func (d *Dispatcher) RegisterExtension(p ext.Prototype) error {
	return d.reg.Register(p)
}

// NewID returns a new stanza id.
func (d *Dispatcher) NewID() string {
	return d.newID()
}

// Context returns the context used for stanzas sent from within handlers.
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

// Send transmits the stanza r.
func (d *Dispatcher) Send(ctx context.Context, r xml.TokenReader) error {
	return d.sender.Send(ctx, r)
}

// SendIQ sends an IQ wrapping payload.
// If the IQ has no id, one is generated.
// If h is not nil and the IQ is of type get or set, the reply with the same id
// is delivered to h along with context.
// The id of the IQ is returned.
//
// Sending a second request with an id that is still pending replaces the first
// request.
func (d *Dispatcher) SendIQ(ctx context.Context, iq stanza.IQ, payload xml.TokenReader, h IQResultHandler, context int) (string, error) {
	if iq.ID == "" {
		iq.ID = d.newID()
	}
	track := h != nil && (iq.Type == stanza.GetIQ || iq.Type == stanza.SetIQ)
	if track {
		d.pending.Track(iq.ID, h, context)
	}
	err := d.sender.Send(ctx, iq.Wrap(payload))
	if err != nil {
		if track {
			d.pending.Remove(iq.ID)
		}
		return iq.ID, err
	}
	return iq.ID, nil
}

// RemoveIDHandler forgets every pending request that would be delivered to h
// and returns the number of requests removed.
// Replies that arrive later are ignored.
func (d *Dispatcher) RemoveIDHandler(h IQResultHandler) int {
	return d.pending.RemoveFunc(func(e tracker.Entry[int, IQResultHandler]) bool {
		return e.Handler == h
	})
}

// Pending returns the number of requests awaiting a reply.
func (d *Dispatcher) Pending() int {
	return d.pending.Len()
}

// RegisterIQHandler registers h to receive get and set IQs whose payload has
// the given name.
// An empty Space or Local in the name matches any namespace or local name,
// with exact matches preferred.
// If a handler already exists for the name, RegisterIQHandler panics.
func (d *Dispatcher) RegisterIQHandler(name xml.Name, h IQHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.iq[name]; ok {
		panic("dispatch: multiple registrations for {" + name.Space + "}" + name.Local)
	}
	d.iq[name] = h
}

// RemoveIQHandler removes the handler for name if it is h.
func (d *Dispatcher) RemoveIQHandler(name xml.Name, h IQHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iq[name] == h {
		delete(d.iq, name)
	}
}

func (d *Dispatcher) iqHandler(name xml.Name) IQHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range [...]xml.Name{
		name,
		{Space: name.Space},
		{Local: name.Local},
		{},
	} {
		if h, ok := d.iq[n]; ok {
			return h
		}
	}
	return nil
}

func bareKey(j jid.JID) string {
	if j.Equal(jid.JID{}) {
		return ""
	}
	return j.Bare().String()
}

// RegisterPresenceHandler registers h to receive presence from the bare JID of
// from.
// If from is the zero JID, h receives presence that no JID specific handler
// received.
func (d *Dispatcher) RegisterPresenceHandler(from jid.JID, h PresenceHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presence = append(d.presence, jidEntry[PresenceHandler]{bare: bareKey(from), h: h})
}

// RemovePresenceHandler removes h from the handlers for from.
func (d *Dispatcher) RemovePresenceHandler(from jid.JID, h PresenceHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presence = removeEntry(d.presence, bareKey(from), h)
}

// RegisterMessageHandler registers h to receive messages from the bare JID of
// from.
// If from is the zero JID, h receives messages that no JID specific handler
// received.
func (d *Dispatcher) RegisterMessageHandler(from jid.JID, h MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = append(d.message, jidEntry[MessageHandler]{bare: bareKey(from), h: h})
}

// RemoveMessageHandler removes h from the handlers for from.
func (d *Dispatcher) RemoveMessageHandler(from jid.JID, h MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = removeEntry(d.message, bareKey(from), h)
}

func removeEntry[H comparable](list []jidEntry[H], bare string, h H) []jidEntry[H] {
	out := list[:0]
	for _, e := range list {
		if e.bare == bare && e.h == h {
			continue
		}
		out = append(out, e)
	}
	return out
}

// matching returns the handlers registered for from, or the catch-all handlers
// if there are none.
func matching[H any](list []jidEntry[H], from jid.JID) []H {
	bare := bareKey(from)
	var specific, all []H
	for _, e := range list {
		switch e.bare {
		case "":
			all = append(all, e.h)
		case bare:
			specific = append(specific, e.h)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return all
}

// Reply sends r, which must be a complete IQ, in response to req.
// If req is the stanza currently being handled, the reply is written to the
// input stream's writer.
func (d *Dispatcher) Reply(req *ext.Stanza, r xml.TokenReader) error {
	d.curMu.Lock()
	if cur := d.cur; cur != nil && cur.st == req && !cur.replied {
		cur.replied = true
		_, err := xmlstream.Copy(cur.w, r)
		if err == nil {
			if f, ok := cur.w.(xmlstream.Flusher); ok {
				err = f.Flush()
			}
		}
		d.curMu.Unlock()
		return err
	}
	d.curMu.Unlock()
	return d.sender.Send(d.ctx, r)
}

// Result replies to the IQ req with a result wrapping payload.
func (d *Dispatcher) Result(req *ext.Stanza, payload xml.TokenReader) error {
	return d.Reply(req, req.Reply(stanza.ResultIQ).Wrap(payload))
}

// Error replies to the IQ req with an error.
func (d *Dispatcher) Error(req *ext.Stanza, e stanza.Error) error {
	return d.Reply(req, req.Reply(stanza.ErrorIQ).Wrap(e.TokenReader()))
}

// HandleXMPP parses the stanza and delivers it to the handlers.
// Malformed stanzas are dropped.
func (d *Dispatcher) HandleXMPP(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	st, err := d.reg.Parse(*start, t)
	if err != nil {
		d.logger.Debug("dropping malformed stanza", "name", start.Name.Local, "err", err)
		return nil
	}

	switch start.Name.Local {
	case "iq":
		return d.handleIQ(t, st)
	case "presence":
		d.mu.RLock()
		handlers := matching(d.presence, st.From)
		d.mu.RUnlock()
		for _, h := range handlers {
			h.HandlePresence(st)
		}
	case "message":
		d.mu.RLock()
		handlers := matching(d.message, st.From)
		d.mu.RUnlock()
		for _, h := range handlers {
			h.HandleMessage(st)
		}
	}
	return nil
}

func (d *Dispatcher) handleIQ(w xmlstream.TokenWriter, st *ext.Stanza) error {
	switch stanza.IQType(st.Type) {
	case stanza.ResultIQ, stanza.ErrorIQ:
		e, ok := d.pending.Resolve(st.ID)
		if !ok {
			d.logger.Debug("ignoring reply to unknown IQ", "id", st.ID, "from", st.From.String())
			return nil
		}
		e.Handler.HandleIQID(st, e.Context)
		return nil
	case stanza.GetIQ, stanza.SetIQ:
	default:
		return nil
	}

	d.curMu.Lock()
	d.cur = &serving{w: w, st: st}
	d.curMu.Unlock()
	defer func() {
		d.curMu.Lock()
		d.cur = nil
		d.curMu.Unlock()
	}()

	payload, _ := st.FirstChild()
	h := d.iqHandler(payload.Name)
	if h == nil {
		d.logger.Debug("no handler for IQ", "payload", payload.Name.Space+" "+payload.Name.Local, "from", st.From.String())
		return d.Error(st, stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable})
	}
	err := h.HandleIQ(st)
	if err == nil {
		return nil
	}

	d.curMu.Lock()
	replied := d.cur.replied
	d.curMu.Unlock()
	if replied {
		d.logger.Debug("IQ handler failed after replying", "id", st.ID, "err", err)
		return nil
	}
	var se stanza.Error
	if !errors.As(err, &se) {
		d.logger.Error("IQ handler failed", "id", st.ID, "err", err)
		se = stanza.Error{Type: stanza.Wait, Condition: stanza.InternalServerError}
	}
	return d.Error(st, se)
}
