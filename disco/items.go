// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/jabberkit/ext"
)

// Item represents a discoverable item.
type Item struct {
	JID  jid.JID `xml:"jid,attr"`
	Node string  `xml:"node,attr,omitempty"`
	Name string  `xml:"name,attr,omitempty"`
}

// TokenReader implements xmlstream.Marshaler.
func (i Item) TokenReader() xml.TokenReader {
	return ext.Element(xml.Name{Local: "item"},
		ext.Attr("jid", i.JID.String()),
		ext.Attr("node", i.Node),
		ext.Attr("name", i.Name),
	)
}

// Items is a disco#items query or result.
type Items struct {
	Node  string
	Items []Item
}

// Kind implements ext.Extension.
func (*Items) Kind() ext.Kind { return ext.KindDiscoItems }

// Clone implements ext.Extension.
func (i *Items) Clone() ext.Extension {
	c := *i
	c.Items = slices.Clone(i.Items)
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (i *Items) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NSItems, Local: "query"}}
	if i.Node != "" {
		start.Attr = append(start.Attr, ext.Attr("node", i.Node))
	}
	var inner []xml.TokenReader
	for _, item := range i.Items {
		inner = append(inner, item.TokenReader())
	}
	return xmlstream.Wrap(ext.Readers(inner...), start)
}

// WriteXML implements xmlstream.WriterTo.
func (i *Items) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, i.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (i *Items) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := i.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (i *Items) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Node  string `xml:"node,attr"`
		Items []Item `xml:"item"`
	}{}
	err := d.DecodeElement(&s, &start)
	if err != nil {
		return err
	}
	i.Node = s.Node
	i.Items = s.Items
	return nil
}
