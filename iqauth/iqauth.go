// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package iqauth implements non-SASL authentication for servers that do not
// support SASL.
//
// Authentication takes two round trips: the client first asks which fields
// the server requires and then sends its credentials, hashing the password
// with the stream id whenever the server accepts a digest.
package iqauth // import "mellium.im/jabberkit/iqauth"

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// NS is the namespace used by non-SASL authentication.
const NS = "jabber:iq:auth"

// Fields is a set of authentication fields.
type Fields uint8

// A list of authentication fields.
const (
	FieldUsername Fields = 1 << iota
	FieldPassword
	FieldDigest
	FieldResource
)

// Query is the payload of authentication requests and responses.
type Query struct {
	// Fields lists the fields that are present, whether or not they are empty.
	// In the response to a field request it is the set of fields the server
	// accepts.
	Fields   Fields
	Username string
	Password string
	Digest   string
	Resource string
}

// Kind implements ext.Extension.
func (*Query) Kind() ext.Kind { return ext.KindAuth }

// Clone implements ext.Extension.
func (q *Query) Clone() ext.Extension {
	c := *q
	return &c
}

func (q *Query) fields() []struct {
	flag  Fields
	local string
	value *string
} {
	return []struct {
		flag  Fields
		local string
		value *string
	}{
		{FieldUsername, "username", &q.Username},
		{FieldPassword, "password", &q.Password},
		{FieldDigest, "digest", &q.Digest},
		{FieldResource, "resource", &q.Resource},
	}
}

// TokenReader implements xmlstream.Marshaler.
func (q *Query) TokenReader() xml.TokenReader {
	var inner []xml.TokenReader
	for _, f := range q.fields() {
		if q.Fields&f.flag == 0 && *f.value == "" {
			continue
		}
		var text xml.TokenReader
		if *f.value != "" {
			text = xmlstream.Token(xml.CharData(*f.value))
		}
		inner = append(inner, xmlstream.Wrap(text, xml.StartElement{Name: xml.Name{Local: f.local}}))
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

// UnmarshalXML implements xml.Unmarshaler.
func (q *Query) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Username *string `xml:"username"`
		Password *string `xml:"password"`
		Digest   *string `xml:"digest"`
		Resource *string `xml:"resource"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*q = Query{}
	for i, src := range []*string{s.Username, s.Password, s.Digest, s.Resource} {
		if src == nil {
			continue
		}
		f := q.fields()[i]
		q.Fields |= f.flag
		*f.value = *src
	}
	return nil
}

// Prototype parses authentication queries in IQs.
var Prototype ext.Prototype = ext.Decode[Query](ext.KindAuth, "/iq/query[@xmlns='"+NS+"']")
