// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/ns"
)

// Identity is the type and category of a node on the network.
type Identity struct {
	Category string `xml:"category,attr"`
	Type     string `xml:"type,attr"`
	Name     string `xml:"name,attr,omitempty"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
}

// TokenReader implements xmlstream.Marshaler.
func (i Identity) TokenReader() xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Local: "identity"},
		Attr: []xml.Attr{{
			Name:  xml.Name{Local: "category"},
			Value: i.Category,
		}, {
			Name:  xml.Name{Local: "type"},
			Value: i.Type,
		}},
	}
	if i.Name != "" {
		start.Attr = append(start.Attr, xml.Attr{
			Name: xml.Name{Local: "name"}, Value: i.Name,
		})
	}
	if i.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{
			Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: i.Lang,
		})
	}
	return xmlstream.Wrap(nil, start)
}

// Info is a disco#info query or result.
type Info struct {
	Node       string
	Identities []Identity
	Features   []string
	Forms      []*form.Data
}

// HasFeature reports whether the feature is listed.
func (i Info) HasFeature(feature string) bool {
	return slices.Contains(i.Features, feature)
}

// Kind implements ext.Extension.
func (*Info) Kind() ext.Kind { return ext.KindDiscoInfo }

// Clone implements ext.Extension.
func (i *Info) Clone() ext.Extension {
	c := *i
	c.Identities = slices.Clone(i.Identities)
	c.Features = slices.Clone(i.Features)
	c.Forms = nil
	for _, f := range i.Forms {
		c.Forms = append(c.Forms, f.Copy())
	}
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (i *Info) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NSInfo, Local: "query"}}
	if i.Node != "" {
		start.Attr = append(start.Attr, ext.Attr("node", i.Node))
	}
	var inner []xml.TokenReader
	for _, id := range i.Identities {
		inner = append(inner, id.TokenReader())
	}
	for _, f := range i.Features {
		inner = append(inner, ext.Element(xml.Name{Local: "feature"}, ext.Attr("var", f)))
	}
	for _, f := range i.Forms {
		inner = append(inner, f.TokenReader())
	}
	return xmlstream.Wrap(ext.Readers(inner...), start)
}

// WriteXML implements xmlstream.WriterTo.
func (i *Info) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, i.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (i *Info) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := i.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (i *Info) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Node       string     `xml:"node,attr"`
		Identities []Identity `xml:"identity"`
		Features   []struct {
			Var string `xml:"var,attr"`
		} `xml:"feature"`
		Forms []*form.Data `xml:"jabber:x:data x"`
	}{}
	err := d.DecodeElement(&s, &start)
	if err != nil {
		return err
	}
	i.Node = s.Node
	i.Identities = s.Identities
	i.Features = nil
	for _, f := range s.Features {
		i.Features = append(i.Features, f.Var)
	}
	i.Forms = s.Forms
	return nil
}
