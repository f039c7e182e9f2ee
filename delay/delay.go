// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package delay implements delayed delivery of stanzas.
//
// Both the current format (XEP-0203) and the legacy jabber:x:delay format are
// parsed; only the current format is produced.
package delay // import "mellium.im/jabberkit/delay"

import (
	"encoding/xml"
	"fmt"
	"time"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/xtime"

	"mellium.im/jabberkit/ext"
)

// Namespaces used by this package.
const (
	NS       = "urn:xmpp:delay"
	NSLegacy = "jabber:x:delay"
)

// LegacyDateTime is the stamp format of jabber:x:delay.
// Stamps in the current format use XEP-0082 date times.
const LegacyDateTime = "20060102T15:04:05"

// Delay is a type that can be added to stanzas to indicate that they have been
// delivered with a delay.
type Delay struct {
	From   jid.JID
	Stamp  time.Time
	Reason string
}

// Kind implements ext.Extension.
func (Delay) Kind() ext.Kind { return ext.KindDelay }

// Clone implements ext.Extension.
func (d Delay) Clone() ext.Extension { return d }

// TokenReader implements xmlstream.Marshaler.
func (d Delay) TokenReader() xml.TokenReader {
	stamp, err := xtime.Time{Time: d.Stamp}.MarshalXMLAttr(xml.Name{Local: "stamp"})
	if err != nil {
		panic(fmt.Errorf("delay: unreachable error reached while marshaling time: %w", err))
	}
	start := xml.StartElement{
		Name: xml.Name{Space: NS, Local: "delay"},
		Attr: []xml.Attr{stamp},
	}

	if !d.From.Equal(jid.JID{}) {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: "from"},
			Value: d.From.String(),
		})
	}

	if d.Reason != "" {
		return xmlstream.Wrap(xmlstream.Token(xml.CharData(d.Reason)), start)
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML implements xmlstream.WriterTo.
func (d Delay) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, d.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (d Delay) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := d.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (d *Delay) UnmarshalXML(decoder *xml.Decoder, start xml.StartElement) error {
	legacy := start.Name.Space == NSLegacy
	var err error
	for _, attr := range start.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "stamp":
			d.Stamp, err = parseStamp(legacy, attr)
		case "from":
			err = (&d.From).UnmarshalXMLAttr(attr)
		}
		if err != nil {
			return err
		}
	}
	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	switch data := tok.(type) {
	case xml.CharData:
		d.Reason = string(data)
	case xml.EndElement:
		return nil
	}
	return decoder.Skip()
}

func parseStamp(legacy bool, attr xml.Attr) (time.Time, error) {
	if legacy {
		return time.ParseInLocation(LegacyDateTime, attr.Value, time.UTC)
	}
	var xt xtime.Time
	err := (&xt).UnmarshalXMLAttr(attr)
	return xt.Time, err
}

// Prototype parses delays attached to messages and presence.
var Prototype ext.Prototype = ext.Decode[Delay](ext.KindDelay,
	"/message/delay[@xmlns='"+NS+"']|/presence/delay[@xmlns='"+NS+"']|"+
		"/message/x[@xmlns='"+NSLegacy+"']|/presence/x[@xmlns='"+NSLegacy+"']")

// Get returns the delay attached to st, if any.
func Get(st *ext.Stanza) (Delay, bool) {
	switch d := st.Extension(ext.KindDelay).(type) {
	case *Delay:
		return *d, true
	case Delay:
		return d, true
	}
	return Delay{}, false
}
