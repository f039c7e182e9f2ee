// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"encoding/xml"
	"maps"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/internal/ns"
)

// ErrUndefined is reported for error stanzas that do not carry a parsable
// error element.
var ErrUndefined = stanza.Error{
	Type:      stanza.Cancel,
	Condition: stanza.UndefinedCondition,
}

// StanzaError is the extension form of a stanza error.
type StanzaError struct {
	stanza.Error
}

// Kind implements Extension.
func (StanzaError) Kind() Kind { return KindError }

// Clone implements Extension.
func (e StanzaError) Clone() Extension {
	e.Text = maps.Clone(e.Text)
	return e
}

// ErrorPrototype parses stanza errors.
// It is registered by NewRegistry.
//
// The condition is the first child in the stanza error namespace, so an
// application specific condition that follows it does not hide it.
var ErrorPrototype = PrototypeFunc(KindError, "/*/error", func(d *xml.Decoder, start *xml.StartElement) (Extension, error) {
	s := struct {
		Type     stanza.ErrorType `xml:"type,attr"`
		By       jid.JID          `xml:"by,attr"`
		Children []struct {
			XMLName xml.Name
			Lang    string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Data    string `xml:",chardata"`
		} `xml:",any"`
	}{}
	if err := d.DecodeElement(&s, start); err != nil {
		return nil, err
	}
	e := StanzaError{Error: stanza.Error{Type: s.Type, By: s.By}}
	for _, c := range s.Children {
		if c.XMLName.Space != ns.Stanza {
			continue
		}
		switch {
		case c.XMLName.Local == "text":
			if c.Data == "" {
				continue
			}
			if e.Text == nil {
				e.Text = make(map[string]string)
			}
			e.Text[c.Lang] = c.Data
		case e.Condition == "":
			e.Condition = stanza.Condition(c.XMLName.Local)
		}
	}
	return e, nil
})
