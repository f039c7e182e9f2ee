// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package si implements stream initiation.
//
// An offer names a profile that describes what the stream is for, such as a
// file transfer, and lists the stream methods that the sender supports.
// The receiver either picks one of the methods or declines the offer.
package si // import "mellium.im/jabberkit/si"

import (
	"encoding/xml"
	"strconv"
	"time"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// Namespaces used by this package.
const (
	NS             = "http://jabber.org/protocol/si"
	NSFileTransfer = "http://jabber.org/protocol/si/profile/file-transfer"
	NSFeatureNeg   = "http://jabber.org/protocol/feature-neg"
)

// StreamMethodField is the form field that lists or selects stream methods.
const StreamMethodField = "stream-method"

// Range requests part of a file.
type Range struct {
	Offset uint64
	Length uint64
}

// File describes the file offered by the file transfer profile.
type File struct {
	Name string
	Size uint64
	Hash string
	Date time.Time
	Desc string

	// Range is set by a receiver that supports partial transfers.
	Range *Range
}

// TokenReader implements xmlstream.Marshaler.
func (f *File) TokenReader() xml.TokenReader {
	attrs := []xml.Attr{
		ext.Attr("name", f.Name),
		ext.Attr("size", strconv.FormatUint(f.Size, 10)),
	}
	if f.Hash != "" {
		attrs = append(attrs, ext.Attr("hash", f.Hash))
	}
	if !f.Date.IsZero() {
		attrs = append(attrs, ext.Attr("date", f.Date.UTC().Format(time.RFC3339)))
	}
	var rng xml.TokenReader
	if f.Range != nil {
		var a []xml.Attr
		if f.Range.Offset != 0 {
			a = append(a, ext.Attr("offset", strconv.FormatUint(f.Range.Offset, 10)))
		}
		if f.Range.Length != 0 {
			a = append(a, ext.Attr("length", strconv.FormatUint(f.Range.Length, 10)))
		}
		rng = ext.Element(xml.Name{Local: "range"}, a...)
	}
	return xmlstream.Wrap(
		ext.Readers(ext.Text("desc", f.Desc), rng),
		xml.StartElement{Name: xml.Name{Space: NSFileTransfer, Local: "file"}, Attr: attrs},
	)
}

// UnmarshalXML implements xml.Unmarshaler.
func (f *File) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Name  string `xml:"name,attr"`
		Size  uint64 `xml:"size,attr"`
		Hash  string `xml:"hash,attr"`
		Date  string `xml:"date,attr"`
		Desc  string `xml:"desc"`
		Range *struct {
			Offset uint64 `xml:"offset,attr"`
			Length uint64 `xml:"length,attr"`
		} `xml:"range"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*f = File{Name: s.Name, Size: s.Size, Hash: s.Hash, Desc: s.Desc}
	if s.Date != "" {
		var err error
		f.Date, err = time.Parse(time.RFC3339, s.Date)
		if err != nil {
			return err
		}
	}
	if s.Range != nil {
		f.Range = &Range{Offset: s.Range.Offset, Length: s.Range.Length}
	}
	return nil
}

// SI is a stream initiation offer or the answer to one.
type SI struct {
	ID       string
	MIMEType string
	Profile  string
	File     *File

	// Form negotiates the stream method.
	Form *form.Data
}

// Kind implements ext.Extension.
func (*SI) Kind() ext.Kind { return ext.KindSI }

// Clone implements ext.Extension.
func (si *SI) Clone() ext.Extension {
	c := *si
	if si.File != nil {
		f := *si.File
		if f.Range != nil {
			r := *f.Range
			f.Range = &r
		}
		c.File = &f
	}
	c.Form = si.Form.Copy()
	return &c
}

// StreamMethods returns the stream methods that an offer lists, or the one
// that an answer selected.
func (si *SI) StreamMethods() []string {
	if si.Form == nil {
		return nil
	}
	f, ok := si.Form.Field(StreamMethodField)
	if !ok {
		return nil
	}
	if si.Form.Type != form.TypeForm {
		return f.Values
	}
	methods := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		methods = append(methods, o.Value)
	}
	return methods
}

// TokenReader implements xmlstream.Marshaler.
func (si *SI) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NS, Local: "si"}}
	for _, a := range []xml.Attr{
		ext.Attr("id", si.ID),
		ext.Attr("mime-type", si.MIMEType),
		ext.Attr("profile", si.Profile),
	} {
		if a.Value != "" {
			start.Attr = append(start.Attr, a)
		}
	}
	var inner []xml.TokenReader
	if si.File != nil {
		inner = append(inner, si.File.TokenReader())
	}
	if si.Form != nil {
		inner = append(inner, xmlstream.Wrap(
			si.Form.TokenReader(),
			xml.StartElement{Name: xml.Name{Space: NSFeatureNeg, Local: "feature"}},
		))
	}
	return xmlstream.Wrap(ext.Readers(inner...), start)
}

// WriteXML implements xmlstream.WriterTo.
func (si *SI) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, si.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (si *SI) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := si.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
// Payloads of profiles other than file transfer are skipped.
func (si *SI) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		ID       string `xml:"id,attr"`
		MIMEType string `xml:"mime-type,attr"`
		Profile  string `xml:"profile,attr"`
		File     *File  `xml:"http://jabber.org/protocol/si/profile/file-transfer file"`
		Feature  *struct {
			Form *form.Data `xml:"jabber:x:data x"`
		} `xml:"http://jabber.org/protocol/feature-neg feature"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*si = SI{ID: s.ID, MIMEType: s.MIMEType, Profile: s.Profile, File: s.File}
	if s.Feature != nil {
		si.Form = s.Feature.Form
	}
	return nil
}

// Prototype parses stream initiation payloads in IQs.
var Prototype ext.Prototype = ext.Decode[SI](ext.KindSI, "/iq/si[@xmlns='"+NS+"']")
