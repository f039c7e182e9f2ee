// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"encoding/xml"
	"slices"
	"strconv"
	"strings"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/internal/attr"
	"mellium.im/jabberkit/internal/ns"
)

// Stanza is a parsed message, presence, or IQ stanza.
type Stanza struct {
	XMLName xml.Name
	ID      string
	To      jid.JID
	From    jid.JID
	Lang    string
	Type    string

	// Simple children in the default namespace.
	Body     string
	Subject  string
	Thread   string
	Status   string
	Show     string
	Priority int

	// HasSubject reports whether a subject element was present, even if it was
	// empty.
	HasSubject bool

	Extensions []Extension

	inner []xml.Token
}

func newStanza(start xml.StartElement) (*Stanza, error) {
	st := &Stanza{XMLName: start.Name}
	for _, a := range start.Attr {
		switch {
		case a.Name.Local == "id" && a.Name.Space == "":
			st.ID = a.Value
		case a.Name.Local == "type" && a.Name.Space == "":
			st.Type = a.Value
		case a.Name.Local == "lang" && a.Name.Space == ns.XML:
			st.Lang = a.Value
		case a.Name.Local == "to" && a.Name.Space == "":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return nil, err
			}
			st.To = j
		case a.Name.Local == "from" && a.Name.Space == "":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return nil, err
			}
			st.From = j
		}
	}
	return st, nil
}

func (st *Stanza) simpleChild(name xml.Name, toks []xml.Token) bool {
	if name.Space != "" && name.Space != ns.Client {
		return false
	}
	switch st.XMLName.Local {
	case "message":
		switch name.Local {
		case "body":
			if st.Body == "" {
				st.Body = charData(toks)
			}
		case "subject":
			st.HasSubject = true
			st.Subject = charData(toks)
		case "thread":
			st.Thread = charData(toks)
		default:
			return false
		}
	case "presence":
		switch name.Local {
		case "status":
			if st.Status == "" {
				st.Status = charData(toks)
			}
		case "show":
			st.Show = charData(toks)
		case "priority":
			st.Priority, _ = strconv.Atoi(strings.TrimSpace(charData(toks)))
		default:
			return false
		}
	default:
		return false
	}
	return true
}

func charData(toks []xml.Token) string {
	var b strings.Builder
	for _, tok := range toks {
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return b.String()
}

// Extension returns the attached extension of kind k or nil.
func (st *Stanza) Extension(k Kind) Extension {
	for _, e := range st.Extensions {
		if e.Kind() == k {
			return e
		}
	}
	return nil
}

// StanzaError returns the error carried by an error stanza.
// If the stanza is of type error but the error element is missing or could not
// be parsed, ErrUndefined is returned.
func (st *Stanza) StanzaError() (stanza.Error, bool) {
	if e, ok := st.Extension(KindError).(StanzaError); ok {
		return e.Error, true
	}
	if st.Type == "error" {
		return ErrUndefined, true
	}
	return stanza.Error{}, false
}

// Payload returns a token reader over the children of the stanza.
func (st *Stanza) Payload() xml.TokenReader {
	toks := Tokens(slices.Clone(st.inner))
	return &toks
}

// FirstChild returns the first child element of the stanza that is not one of
// the simple default namespace children.
// For IQs this is the payload.
func (st *Stanza) FirstChild() (xml.StartElement, bool) {
	for _, span := range children(st.inner) {
		start := st.inner[span[0]].(xml.StartElement)
		if start.Name.Space == ns.Client || start.Name.Local == "error" {
			continue
		}
		return start, true
	}
	return xml.StartElement{}, false
}

// TokenReader serializes the stanza as it was received.
func (st *Stanza) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Local: st.XMLName.Local}}
	start.Attr = attr.Set(start.Attr, "id", st.ID)
	start.Attr = attr.Set(start.Attr, "type", st.Type)
	if !st.To.Equal(jid.JID{}) {
		start.Attr = attr.Set(start.Attr, "to", st.To.String())
	}
	if !st.From.Equal(jid.JID{}) {
		start.Attr = attr.Set(start.Attr, "from", st.From.String())
	}
	if st.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: st.Lang})
	}
	return xmlstream.Wrap(st.Payload(), start)
}

// Clone returns a deep copy of the stanza.
func (st *Stanza) Clone() *Stanza {
	c := *st
	c.inner = slices.Clone(st.inner)
	c.Extensions = make([]Extension, 0, len(st.Extensions))
	for _, e := range st.Extensions {
		c.Extensions = append(c.Extensions, e.Clone())
	}
	return &c
}

// IQ returns the stanza header as an IQ.
func (st *Stanza) IQ() stanza.IQ {
	return stanza.IQ{
		ID:   st.ID,
		To:   st.To,
		From: st.From,
		Lang: st.Lang,
		Type: stanza.IQType(st.Type),
	}
}

// Message returns the stanza header as a message.
func (st *Stanza) Message() stanza.Message {
	return stanza.Message{
		ID:   st.ID,
		To:   st.To,
		From: st.From,
		Lang: st.Lang,
		Type: stanza.MessageType(st.Type),
	}
}

// Presence returns the stanza header as a presence.
func (st *Stanza) Presence() stanza.Presence {
	return stanza.Presence{
		ID:   st.ID,
		To:   st.To,
		From: st.From,
		Lang: st.Lang,
		Type: stanza.PresenceType(st.Type),
	}
}

// Reply returns an IQ header addressed to the sender of st with the same id
// and the given type.
func (st *Stanza) Reply(typ stanza.IQType) stanza.IQ {
	return stanza.IQ{
		ID:   st.ID,
		To:   st.From,
		Type: typ,
	}
}
