// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package last implements last activity queries.
//
// The same Manager asks other entities how long they have been idle and
// answers such questions about the local entity.
package last // import "mellium.im/jabberkit/last"

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// NS is the namespace used by last activity queries.
const NS = "jabber:iq:last"

// Query is the payload of a last activity response.
//
// Depending on the address that was queried, Seconds is the idle time of a
// resource, the time since an account was last online, or the uptime of a
// server.
type Query struct {
	Seconds uint64
	Status  string
}

// Kind implements ext.Extension.
func (*Query) Kind() ext.Kind { return ext.KindLast }

// Clone implements ext.Extension.
func (q *Query) Clone() ext.Extension {
	c := *q
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (q *Query) TokenReader() xml.TokenReader {
	var inner xml.TokenReader
	if q.Status != "" {
		inner = xmlstream.Token(xml.CharData(q.Status))
	}
	return xmlstream.Wrap(inner, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "query"},
		Attr: []xml.Attr{ext.Attr("seconds", strconv.FormatUint(q.Seconds, 10))},
	})
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

// UnmarshalXML implements xml.Unmarshaler.
// A missing seconds attribute is treated as zero.
func (q *Query) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Seconds string `xml:"seconds,attr"`
		Status  string `xml:",chardata"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	q.Status = s.Status
	q.Seconds = 0
	if s.Seconds == "" {
		return nil
	}
	var err error
	q.Seconds, err = strconv.ParseUint(s.Seconds, 10, 64)
	return err
}

// Prototype parses last activity queries in IQs.
var Prototype ext.Prototype = ext.Decode[Query](ext.KindLast, "/iq/query[@xmlns='"+NS+"']")
