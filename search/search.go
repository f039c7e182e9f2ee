// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package search implements searching user directories.
//
// A directory either describes its search with a data form or with the
// legacy first, last, nick and email fields.
// Results come back in the same style as the search was submitted.
package search // import "mellium.im/jabberkit/search"

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// NS is the namespace used by directory searches.
const NS = "jabber:iq:search"

// Fields is a set of legacy search fields.
type Fields uint8

// A list of legacy search fields.
const (
	FieldFirst Fields = 1 << iota
	FieldLast
	FieldNick
	FieldEmail
)

// Item is a single legacy search result.
type Item struct {
	JID   jid.JID
	First string
	Last  string
	Nick  string
	Email string
}

// TokenReader implements xmlstream.Marshaler.
func (i Item) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		ext.Readers(
			ext.Text("first", i.First),
			ext.Text("last", i.Last),
			ext.Text("nick", i.Nick),
			ext.Text("email", i.Email),
		),
		xml.StartElement{
			Name: xml.Name{Local: "item"},
			Attr: []xml.Attr{ext.Attr("jid", i.JID.String())},
		},
	)
}

// Query is the payload of search requests and responses.
type Query struct {
	Instructions string

	// Fields lists the legacy fields that a directory supports or that a
	// request sets.
	// A field is also sent when its value is not empty.
	Fields Fields
	First  string
	Last   string
	Nick   string
	Email  string

	Form  *form.Data
	Items []Item
}

// Kind implements ext.Extension.
func (*Query) Kind() ext.Kind { return ext.KindSearch }

// Clone implements ext.Extension.
func (q *Query) Clone() ext.Extension {
	c := *q
	c.Form = q.Form.Copy()
	c.Items = slices.Clone(q.Items)
	return &c
}

func field(local, value string) xml.TokenReader {
	var inner xml.TokenReader
	if value != "" {
		inner = xmlstream.Token(xml.CharData(value))
	}
	return xmlstream.Wrap(inner, xml.StartElement{Name: xml.Name{Local: local}})
}

// TokenReader implements xmlstream.Marshaler.
func (q *Query) TokenReader() xml.TokenReader {
	inner := []xml.TokenReader{ext.Text("instructions", q.Instructions)}
	for _, f := range []struct {
		flag  Fields
		local string
		value string
	}{
		{FieldFirst, "first", q.First},
		{FieldLast, "last", q.Last},
		{FieldNick, "nick", q.Nick},
		{FieldEmail, "email", q.Email},
	} {
		if q.Fields&f.flag != 0 || f.value != "" {
			inner = append(inner, field(f.local, f.value))
		}
	}
	if q.Form != nil {
		inner = append(inner, q.Form.TokenReader())
	}
	for _, item := range q.Items {
		inner = append(inner, item.TokenReader())
	}
	return xmlstream.Wrap(
		ext.Readers(inner...),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "query"}},
	)
}

// WriteXML implements xmlstream.WriterTo.
func (q *Query) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, q.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (q *Query) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := q.WriteXML(e)
	return err
}

type itemXML struct {
	JID   jid.JID `xml:"jid,attr"`
	First string  `xml:"first"`
	Last  string  `xml:"last"`
	Nick  string  `xml:"nick"`
	Email string  `xml:"email"`
}

// UnmarshalXML implements xml.Unmarshaler.
func (q *Query) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Instructions string     `xml:"instructions"`
		First        *string    `xml:"first"`
		Last         *string    `xml:"last"`
		Nick         *string    `xml:"nick"`
		Email        *string    `xml:"email"`
		Form         *form.Data `xml:"jabber:x:data x"`
		Items        []itemXML  `xml:"item"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*q = Query{Instructions: s.Instructions, Form: s.Form}
	for _, f := range []struct {
		flag Fields
		src  *string
		dst  *string
	}{
		{FieldFirst, s.First, &q.First},
		{FieldLast, s.Last, &q.Last},
		{FieldNick, s.Nick, &q.Nick},
		{FieldEmail, s.Email, &q.Email},
	} {
		if f.src != nil {
			q.Fields |= f.flag
			*f.dst = *f.src
		}
	}
	for _, item := range s.Items {
		q.Items = append(q.Items, Item(item))
	}
	return nil
}

// Prototype parses search queries in IQs.
var Prototype ext.Prototype = ext.Decode[Query](ext.KindSearch, "/iq/query[@xmlns='"+NS+"']")
