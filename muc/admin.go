// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// Admin is the payload of moderation requests and list replies.
type Admin struct {
	Items []Item
}

// Kind satisfies ext.Extension.
func (*Admin) Kind() ext.Kind { return ext.KindMUCAdmin }

// Clone satisfies ext.Extension.
func (a *Admin) Clone() ext.Extension {
	return &Admin{Items: slices.Clone(a.Items)}
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (a *Admin) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		itemsReader(a.Items),
		xml.StartElement{Name: xml.Name{Space: NSAdmin, Local: "query"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (a *Admin) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (a *Admin) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := a.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (a *Admin) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Items []itemXML `xml:"item"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	a.Items = convertItems(s.Items)
	return nil
}

// Owner is the payload of room configuration and destruction requests.
// An Owner with neither a form nor a destroy element requests the
// configuration form.
type Owner struct {
	Form    *form.Data
	Destroy *Destroy
}

// Kind satisfies ext.Extension.
func (*Owner) Kind() ext.Kind { return ext.KindMUCOwner }

// Clone satisfies ext.Extension.
func (o *Owner) Clone() ext.Extension {
	c := &Owner{}
	if o.Form != nil {
		c.Form = o.Form.Copy()
	}
	if o.Destroy != nil {
		dst := *o.Destroy
		c.Destroy = &dst
	}
	return c
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (o *Owner) TokenReader() xml.TokenReader {
	var f, dst xml.TokenReader
	if o.Form != nil {
		f = o.Form.TokenReader()
	}
	if o.Destroy != nil {
		dst = o.Destroy.TokenReader()
	}
	return xmlstream.Wrap(
		ext.Readers(f, dst),
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (o *Owner) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, o.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (o *Owner) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := o.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (o *Owner) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Form    *form.Data  `xml:"jabber:x:data x"`
		Destroy *destroyXML `xml:"destroy"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	o.Form = s.Form
	o.Destroy = s.Destroy.destroy()
	return nil
}
