// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package vcard implements vcard-temp profiles.
package vcard // import "mellium.im/jabberkit/vcard"

import (
	"encoding/base64"
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/internal/marshal"
)

// NS is the namespace used by vcard-temp.
const NS = "vcard-temp"

// Flag is an empty element that marks a property, such as the HOME element of
// an address.
type Flag bool

// MarshalXML implements xml.Marshaler.
// Unset flags are omitted.
func (f Flag) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if !f {
		return nil
	}
	return e.EncodeElement(struct{}{}, start)
}

// UnmarshalXML implements xml.Unmarshaler.
func (f *Flag) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	*f = true
	return d.Skip()
}

// Name is the structured name of the entity.
type Name struct {
	Family string `xml:"FAMILY,omitempty"`
	Given  string `xml:"GIVEN,omitempty"`
	Middle string `xml:"MIDDLE,omitempty"`
	Prefix string `xml:"PREFIX,omitempty"`
	Suffix string `xml:"SUFFIX,omitempty"`
}

// Photo is an image embedded in the vCard or referenced by URL.
type Photo struct {
	Type   string `xml:"TYPE,omitempty"`
	BinVal string `xml:"BINVAL,omitempty"`
	ExtVal string `xml:"EXTVAL,omitempty"`
}

// NewPhoto returns a photo that embeds data.
func NewPhoto(mimeType string, data []byte) *Photo {
	return &Photo{Type: mimeType, BinVal: base64.StdEncoding.EncodeToString(data)}
}

// Data decodes the embedded image.
func (p *Photo) Data() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.BinVal)
}

// Address is a postal address.
type Address struct {
	Home     Flag   `xml:"HOME"`
	Work     Flag   `xml:"WORK"`
	Postal   Flag   `xml:"POSTAL"`
	Parcel   Flag   `xml:"PARCEL"`
	Dom      Flag   `xml:"DOM"`
	Intl     Flag   `xml:"INTL"`
	Pref     Flag   `xml:"PREF"`
	PoBox    string `xml:"POBOX,omitempty"`
	ExtAdd   string `xml:"EXTADD,omitempty"`
	Street   string `xml:"STREET,omitempty"`
	Locality string `xml:"LOCALITY,omitempty"`
	Region   string `xml:"REGION,omitempty"`
	PCode    string `xml:"PCODE,omitempty"`
	Country  string `xml:"CTRY,omitempty"`
}

// Telephone is a telephone number.
type Telephone struct {
	Home   Flag   `xml:"HOME"`
	Work   Flag   `xml:"WORK"`
	Voice  Flag   `xml:"VOICE"`
	Fax    Flag   `xml:"FAX"`
	Pager  Flag   `xml:"PAGER"`
	Msg    Flag   `xml:"MSG"`
	Cell   Flag   `xml:"CELL"`
	Video  Flag   `xml:"VIDEO"`
	BBS    Flag   `xml:"BBS"`
	Modem  Flag   `xml:"MODEM"`
	ISDN   Flag   `xml:"ISDN"`
	PCS    Flag   `xml:"PCS"`
	Pref   Flag   `xml:"PREF"`
	Number string `xml:"NUMBER"`
}

// Email is an email address.
type Email struct {
	Home     Flag   `xml:"HOME"`
	Work     Flag   `xml:"WORK"`
	Internet Flag   `xml:"INTERNET"`
	Pref     Flag   `xml:"PREF"`
	X400     Flag   `xml:"X400"`
	UserID   string `xml:"USERID"`
}

// Geo is a geographical position.
type Geo struct {
	Lat float64 `xml:"LAT"`
	Lon float64 `xml:"LON"`
}

// Org is the organization of the entity.
type Org struct {
	Name  string   `xml:"ORGNAME"`
	Units []string `xml:"ORGUNIT,omitempty"`
}

// Keywords are the application categories of the entity.
// An empty list is omitted.
type Keywords []string

type keywordsXML struct {
	Keywords []string `xml:"KEYWORD"`
}

// MarshalXML implements xml.Marshaler.
func (k Keywords) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(k) == 0 {
		return nil
	}
	return e.EncodeElement(keywordsXML{Keywords: k}, start)
}

// UnmarshalXML implements xml.Unmarshaler.
func (k *Keywords) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var kw keywordsXML
	if err := d.DecodeElement(&kw, &start); err != nil {
		return err
	}
	*k = append(*k, kw.Keywords...)
	return nil
}

// VCard is a vcard-temp profile.
type VCard struct {
	FN         string      `xml:"FN,omitempty"`
	N          *Name       `xml:"N,omitempty"`
	Nickname   string      `xml:"NICKNAME,omitempty"`
	Photo      *Photo      `xml:"PHOTO,omitempty"`
	BDay       string      `xml:"BDAY,omitempty"`
	Addresses  []Address   `xml:"ADR,omitempty"`
	Telephones []Telephone `xml:"TEL,omitempty"`
	Emails     []Email     `xml:"EMAIL,omitempty"`
	JabberID   string      `xml:"JABBERID,omitempty"`
	Mailer     string      `xml:"MAILER,omitempty"`
	TZ         string      `xml:"TZ,omitempty"`
	Geo        *Geo        `xml:"GEO,omitempty"`
	Title      string      `xml:"TITLE,omitempty"`
	Role       string      `xml:"ROLE,omitempty"`
	Logo       *Photo      `xml:"LOGO,omitempty"`
	Org        *Org        `xml:"ORG,omitempty"`
	Categories Keywords    `xml:"CATEGORIES"`
	Note       string      `xml:"NOTE,omitempty"`
	ProdID     string      `xml:"PRODID,omitempty"`
	Rev        string      `xml:"REV,omitempty"`
	SortString string      `xml:"SORT-STRING,omitempty"`
	UID        string      `xml:"UID,omitempty"`
	URL        string      `xml:"URL,omitempty"`
	Desc       string      `xml:"DESC,omitempty"`
}

// fields has the struct tags of VCard without its methods.
type fields VCard

var start = xml.StartElement{Name: xml.Name{Space: NS, Local: "vCard"}}

// Kind implements ext.Extension.
func (*VCard) Kind() ext.Kind { return ext.KindVCard }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Clone implements ext.Extension.
func (v *VCard) Clone() ext.Extension {
	c := *v
	c.N = clonePtr(v.N)
	c.Photo = clonePtr(v.Photo)
	c.Geo = clonePtr(v.Geo)
	c.Logo = clonePtr(v.Logo)
	c.Addresses = slices.Clone(v.Addresses)
	c.Telephones = slices.Clone(v.Telephones)
	c.Emails = slices.Clone(v.Emails)
	c.Categories = slices.Clone(v.Categories)
	if v.Org != nil {
		c.Org = &Org{Name: v.Org.Name, Units: slices.Clone(v.Org.Units)}
	}
	return &c
}

// TokenReader implements xmlstream.Marshaler.
func (v *VCard) TokenReader() xml.TokenReader {
	return marshal.Element((*fields)(v), start)
}

// WriteXML implements xmlstream.WriterTo.
func (v *VCard) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, v.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (v *VCard) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := v.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (v *VCard) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return d.DecodeElement((*fields)(v), &start)
}

// Prototype parses vCards in IQs.
var Prototype ext.Prototype = ext.Decode[VCard](ext.KindVCard, "/iq/vCard[@xmlns='"+NS+"']")
