// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package si

import (
	"context"
	"encoding/xml"
	"errors"
	"sync"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/ns"
	"mellium.im/jabberkit/tracker"
)

var (
	errNoMethods      = errors.New("si: offer lists no stream methods")
	errUnknownSession = errors.New("si: no pending offer with that id")
)

// Reason is the reason for declining an offer.
type Reason uint8

// A list of reasons.
const (
	// DeclineForbidden rejects the offer itself.
	DeclineForbidden Reason = iota

	// DeclineNoValidStreams means that none of the stream methods are
	// supported.
	DeclineNoValidStreams

	// DeclineBadProfile means that the profile is not understood.
	DeclineBadProfile
)

// ProfileHandler receives offers for a profile.
// It must eventually answer each offer with AcceptSI or DeclineSI.
type ProfileHandler interface {
	HandleSIRequest(from jid.JID, si *SI)
}

// Handler receives the answers to offers sent with RequestSI.
type Handler interface {
	// HandleSIRequestResult is called when the offer is accepted.
	// Method is the stream method chosen by the receiver.
	HandleSIRequestResult(from jid.JID, sid, method string, si *SI)
	HandleSIRequestError(from jid.JID, sid string, err stanza.Error)
}

var iqName = xml.Name{Space: NS, Local: "si"}

// Manager sends and receives stream initiation offers.
type Manager struct {
	d       *dispatch.Dispatcher
	disco   *disco.Disco
	pending tracker.Table[string, Handler]

	mu       sync.Mutex
	profiles map[string]ProfileHandler
	offers   map[string]*ext.Stanza
}

// NewManager creates a Manager that receives offers from the dispatcher of dc
// and advertises the registered profiles using dc.
func NewManager(dc *disco.Disco) *Manager {
	m := &Manager{
		d:        dc.Dispatcher(),
		disco:    dc,
		profiles: make(map[string]ProfileHandler),
		offers:   make(map[string]*ext.Stanza),
	}
	if err := m.d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	m.d.RegisterIQHandler(iqName, m)
	dc.AddFeature(NS)
	return m
}

// RegisterProfile passes offers for profile to h.
func (m *Manager) RegisterProfile(profile string, h ProfileHandler) {
	m.mu.Lock()
	m.profiles[profile] = h
	m.mu.Unlock()
	m.disco.AddFeature(profile)
}

// RemoveProfile stops accepting offers for profile.
func (m *Manager) RemoveProfile(profile string) {
	m.mu.Lock()
	delete(m.profiles, profile)
	m.mu.Unlock()
	m.disco.RemoveFeature(profile)
}

// RequestSI offers a stream to to using one of the given stream methods.
// If the offer has no id, one is generated.
// The id of the offer is returned.
func (m *Manager) RequestSI(ctx context.Context, to jid.JID, offer SI, methods []string, h Handler) (string, error) {
	if len(methods) == 0 {
		return "", errNoMethods
	}
	if offer.ID == "" {
		offer.ID = m.d.NewID()
	}
	field := form.NewField(form.TypeList, StreamMethodField)
	for _, method := range methods {
		field.Options = append(field.Options, form.ListItem{Value: method})
	}
	offer.Form = form.New()
	offer.Form.Add(field)

	id := m.d.NewID()
	m.pending.Track(id, h, offer.ID)
	_, err := m.d.SendIQ(ctx, stanza.IQ{ID: id, To: to, Type: stanza.SetIQ}, offer.TokenReader(), m, 0)
	if err != nil {
		m.pending.Remove(id)
		return "", err
	}
	return offer.ID, nil
}

// RemoveHandler forgets all pending offers for h.
func (m *Manager) RemoveHandler(h Handler) {
	m.pending.RemoveFunc(func(e tracker.Entry[string, Handler]) bool {
		return e.Handler == h
	})
}

func (m *Manager) takeOffer(sid string) (*ext.Stanza, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.offers[sid]
	if !ok {
		return nil, errUnknownSession
	}
	delete(m.offers, sid)
	return req, nil
}

// AcceptSI accepts the offer with the given id using method.
// Answer carries profile specific data, such as a file range, and may be nil.
func (m *Manager) AcceptSI(sid, method string, answer *SI) error {
	req, err := m.takeOffer(sid)
	if err != nil {
		return err
	}
	resp := SI{}
	if answer != nil {
		resp = *answer
	}
	resp.ID = ""
	resp.Form = &form.Data{
		Type:   form.TypeSubmit,
		Fields: []form.Field{{Var: StreamMethodField, Values: []string{method}}},
	}
	return m.d.Result(req, resp.TokenReader())
}

// DeclineSI rejects the offer with the given id.
// Text is an optional human readable explanation.
func (m *Manager) DeclineSI(sid string, reason Reason, text string) error {
	req, err := m.takeOffer(sid)
	if err != nil {
		return err
	}
	return m.d.Reply(req, req.Reply(stanza.ErrorIQ).Wrap(declineError(reason, text)))
}

func declineError(reason Reason, text string) xml.TokenReader {
	typ, cond, app := stanza.Cancel, stanza.Forbidden, ""
	switch reason {
	case DeclineNoValidStreams:
		typ, cond, app = stanza.Modify, stanza.BadRequest, "no-valid-streams"
	case DeclineBadProfile:
		typ, cond, app = stanza.Modify, stanza.BadRequest, "bad-profile"
	}
	inner := []xml.TokenReader{ext.Element(xml.Name{Space: ns.Stanza, Local: string(cond)})}
	if text != "" {
		inner = append(inner, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(text)),
			xml.StartElement{Name: xml.Name{Space: ns.Stanza, Local: "text"}},
		))
	}
	if app != "" {
		inner = append(inner, ext.Element(xml.Name{Space: NS, Local: app}))
	}
	return xmlstream.Wrap(
		ext.Readers(inner...),
		xml.StartElement{Name: xml.Name{Local: "error"}, Attr: []xml.Attr{ext.Attr("type", string(typ))}},
	)
}

// HandleIQ implements dispatch.IQHandler.
func (m *Manager) HandleIQ(st *ext.Stanza) error {
	offer, ok := st.Extension(ext.KindSI).(*SI)
	if stanza.IQType(st.Type) != stanza.SetIQ || !ok || offer.ID == "" {
		return stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}
	m.mu.Lock()
	h, ok := m.profiles[offer.Profile]
	if ok {
		m.offers[offer.ID] = st
	}
	m.mu.Unlock()
	if !ok {
		return m.d.Reply(st, st.Reply(stanza.ErrorIQ).Wrap(declineError(DeclineBadProfile, "")))
	}
	if len(offer.StreamMethods()) == 0 {
		return m.DeclineSI(offer.ID, DeclineNoValidStreams, "")
	}
	h.HandleSIRequest(st.From, offer)
	return nil
}

// HandleIQID implements dispatch.IQResultHandler.
func (m *Manager) HandleIQID(st *ext.Stanza, _ int) {
	e, ok := m.pending.Resolve(st.ID)
	if !ok {
		return
	}
	if se, isErr := st.StanzaError(); isErr {
		e.Handler.HandleSIRequestError(st.From, e.Context, se)
		return
	}
	answer, _ := st.Extension(ext.KindSI).(*SI)
	if answer == nil {
		answer = &SI{}
	}
	var method string
	if methods := answer.StreamMethods(); len(methods) > 0 {
		method = methods[0]
	}
	e.Handler.HandleSIRequestResult(st.From, e.Context, method, answer)
}

// Close stops receiving offers and forgets all pending offers.
func (m *Manager) Close() {
	m.d.RemoveIQHandler(iqName, m)
	m.d.RemoveIDHandler(m)
	m.disco.RemoveFeature(NS)
	m.mu.Lock()
	for profile := range m.profiles {
		m.disco.RemoveFeature(profile)
	}
	clear(m.profiles)
	clear(m.offers)
	m.mu.Unlock()
	m.pending.RemoveFunc(func(tracker.Entry[string, Handler]) bool { return true })
}
