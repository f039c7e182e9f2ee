// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package offline implements flexible offline message retrieval.
//
// A client that supports it can ask the server how many messages were stored
// while it was offline, list their headers, and then view or remove them
// selectively instead of receiving them all when it becomes available.
package offline // import "mellium.im/jabberkit/offline"

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// NS is the namespace used by offline message retrieval.
// It is also the disco node that lists the stored messages.
const NS = "http://jabber.org/protocol/offline"

// Action is performed on a stored message.
type Action string

// A list of actions.
const (
	ActionView   Action = "view"
	ActionRemove Action = "remove"
)

// Item refers to a single stored message by its node.
type Item struct {
	Action Action `xml:"action,attr,omitempty"`
	Node   string `xml:"node,attr"`
}

// TokenReader implements xmlstream.Marshaler.
func (i Item) TokenReader() xml.TokenReader {
	return ext.Element(xml.Name{Local: "item"},
		ext.Attr("action", string(i.Action)),
		ext.Attr("node", i.Node),
	)
}

// Offline is the payload of retrieval requests.
// Servers also attach it, with a single item, to the messages they deliver in
// response to a view request.
type Offline struct {
	Fetch bool
	Purge bool
	Items []Item
}

// Kind implements ext.Extension.
func (*Offline) Kind() ext.Kind { return ext.KindOffline }

// Clone implements ext.Extension.
func (o *Offline) Clone() ext.Extension {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (o *Offline) TokenReader() xml.TokenReader {
	var inner []xml.TokenReader
	if o.Fetch {
		inner = append(inner, ext.Element(xml.Name{Local: "fetch"}))
	}
	if o.Purge {
		inner = append(inner, ext.Element(xml.Name{Local: "purge"}))
	}
	for _, item := range o.Items {
		inner = append(inner, item.TokenReader())
	}
	return xmlstream.Wrap(
		ext.Readers(inner...),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "offline"}},
	)
}

// WriteXML implements xmlstream.WriterTo.
func (o *Offline) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, o.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (o *Offline) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := o.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (o *Offline) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Fetch *struct{} `xml:"fetch"`
		Purge *struct{} `xml:"purge"`
		Items []Item    `xml:"item"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*o = Offline{
		Fetch: s.Fetch != nil,
		Purge: s.Purge != nil,
		Items: s.Items,
	}
	return nil
}

// Node returns the node of a message delivered in response to a view request.
func Node(st *ext.Stanza) (string, bool) {
	o, ok := st.Extension(ext.KindOffline).(*Offline)
	if !ok || len(o.Items) == 0 {
		return "", false
	}
	return o.Items[0].Node, true
}

// Prototype parses the offline payload of IQs and messages.
var Prototype ext.Prototype = ext.Decode[Offline](ext.KindOffline, "/*/offline[@xmlns='"+NS+"']")
