// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// NSVersion is the namespace used by software version queries.
const NSVersion = "jabber:iq:version"

// Version is a response to a software version query.
type Version struct {
	XMLName xml.Name `xml:"jabber:iq:version query"`
	Name    string   `xml:"name,omitempty"`
	Version string   `xml:"version,omitempty"`
	OS      string   `xml:"os,omitempty"`
}

// Kind implements ext.Extension.
func (*Version) Kind() ext.Kind { return ext.KindVersion }

// Clone implements ext.Extension.
func (v *Version) Clone() ext.Extension {
	c := *v
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (v *Version) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		ext.Readers(
			ext.Text("name", v.Name),
			ext.Text("version", v.Version),
			ext.Text("os", v.OS),
		),
		xml.StartElement{Name: xml.Name{Space: NSVersion, Local: "query"}},
	)
}

// WriteXML implements xmlstream.WriterTo.
func (v *Version) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, v.TokenReader())
}
