// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package form implements sending and submitting data forms.
package form // import "mellium.im/jabberkit/form"

import (
	"encoding/xml"
	"slices"
	"strconv"
	"strings"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/jabberkit/ext"
)

// NS is the data forms namespace.
const NS = "jabber:x:data"

// Type is the type of a data form.
type Type string

// A list of possible form types.
const (
	// TypeForm indicates that the form-processing entity is asking the
	// form-submitting entity to complete a form.
	TypeForm Type = "form"

	// TypeSubmit indicates that the form-submitting entity is submitting data to
	// the form-processing entity.
	TypeSubmit Type = "submit"

	// TypeCancel indicates that the form-submitting entity has cancelled
	// submission of data to the form-processing entity.
	TypeCancel Type = "cancel"

	// TypeResult indicates that the form-processing entity is returning data
	// (e.g., search results) to the form-submitting entity, or the data is a
	// generic data set.
	TypeResult Type = "result"
)

var newlineReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
)

// Data represents a data form.
type Data struct {
	Type         Type
	Title        string
	Instructions []string
	Fields       []Field

	// Reported and Items are used by multi-item results such as search
	// results.
	Reported []Field
	Items    [][]Field
}

// New builds a new data form from the provided options.
func New(o ...Option) *Data {
	data := &Data{Type: TypeForm}
	for _, opt := range o {
		opt(data)
	}
	return data
}

// Cancel returns a form of type cancel.
func Cancel(title, instructions string) *Data {
	return New(cancel, Title(title), Instructions(instructions))
}

// Kind implements ext.Extension.
func (*Data) Kind() ext.Kind { return ext.KindDataForm }

// Clone implements ext.Extension.
func (d *Data) Clone() ext.Extension {
	return d.Copy()
}

// Copy returns a deep copy of the form.
func (d *Data) Copy() *Data {
	if d == nil {
		return nil
	}
	c := *d
	c.Instructions = slices.Clone(d.Instructions)
	c.Fields = cloneFields(d.Fields)
	c.Reported = cloneFields(d.Reported)
	c.Items = nil
	for _, item := range d.Items {
		c.Items = append(c.Items, cloneFields(item))
	}
	return &c
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		f.Values = slices.Clone(f.Values)
		f.Options = slices.Clone(f.Options)
		out = append(out, f)
	}
	return out
}

// Field returns a pointer to the field with the given var so that it may be
// modified in place.
func (d *Data) Field(v string) (*Field, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Fields {
		if d.Fields[i].Var == v {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// Get returns the first value of the field with the given var.
func (d *Data) Get(v string) (string, bool) {
	f, ok := d.Field(v)
	if !ok || len(f.Values) == 0 {
		return "", ok
	}
	return f.Values[0], true
}

// GetAll returns all values of the field with the given var.
func (d *Data) GetAll(v string) []string {
	f, ok := d.Field(v)
	if !ok {
		return nil
	}
	return f.Values
}

// GetBool returns the value of a boolean field.
func (d *Data) GetBool(v string) (value, ok bool) {
	s, ok := d.Get(v)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// GetJID returns the first value of the field parsed as a JID.
func (d *Data) GetJID(v string) (jid.JID, bool) {
	s, ok := d.Get(v)
	if !ok {
		return jid.JID{}, false
	}
	j, err := jid.Parse(s)
	return j, err == nil
}

// Set replaces the values of the field with the given var.
// Values that are not valid for the field type are dropped.
// If no such field exists, Set reports false.
func (d *Data) Set(v string, values ...string) bool {
	f, ok := d.Field(v)
	if !ok {
		return false
	}
	f.Values = slices.Clone(values)
	f.normalize()
	return true
}

// Add appends fields to the form.
func (d *Data) Add(f ...Field) {
	for _, field := range f {
		field.normalize()
		d.Fields = append(d.Fields, field)
	}
}

// FormType returns the value of the hidden FORM_TYPE field, if any.
func (d *Data) FormType() string {
	f, ok := d.Field("FORM_TYPE")
	if !ok || f.Type != TypeHidden || len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// Submit returns a form of type submit containing the values of d.
// Fixed fields and fields without values are omitted unless they are required.
// If any required field has no value, ok is false.
func (d *Data) Submit() (submission *Data, ok bool) {
	submission = &Data{Type: TypeSubmit}
	ok = true
	if d == nil {
		return submission, ok
	}
	for _, f := range d.Fields {
		if f.Var == "" || f.Type == TypeFixed {
			continue
		}
		if len(f.Values) == 0 && !f.Required {
			continue
		}
		sub := Field{Var: f.Var, Type: f.Type, Required: f.Required, Values: slices.Clone(f.Values)}
		if len(sub.Values) == 0 {
			ok = false
			if f.Type == TypeBoolean {
				sub.Values = []string{"false"}
			}
		}
		submission.Fields = append(submission.Fields, sub)
	}
	return submission, ok
}

// TokenReader implements xmlstream.Marshaler.
func (d *Data) TokenReader() xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Space: NS, Local: "x"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: string(d.Type)}},
	}
	var child []xml.TokenReader
	if d.Title != "" {
		child = append(child, ext.Text("title", newlineReplacer.Replace(d.Title)))
	}
	for _, inst := range d.Instructions {
		child = append(child, ext.Text("instructions", inst))
	}
	if len(d.Reported) > 0 {
		child = append(child, xmlstream.Wrap(
			fieldsReader(d.Reported),
			xml.StartElement{Name: xml.Name{Local: "reported"}},
		))
	}
	for _, item := range d.Items {
		child = append(child, xmlstream.Wrap(
			fieldsReader(item),
			xml.StartElement{Name: xml.Name{Local: "item"}},
		))
	}
	child = append(child, fieldsReader(d.Fields))
	return xmlstream.Wrap(ext.Readers(child...), start)
}

func fieldsReader(fields []Field) xml.TokenReader {
	var r []xml.TokenReader
	for _, f := range fields {
		r = append(r, f.TokenReader())
	}
	return ext.Readers(r...)
}

// WriteXML implements xmlstream.WriterTo.
func (d *Data) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, d.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface for *Data.
func (d *Data) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := d.WriteXML(e)
	if err != nil {
		return err
	}
	return e.Flush()
}

type fieldXML struct {
	Var      string    `xml:"var,attr"`
	Type     FieldType `xml:"type,attr"`
	Label    string    `xml:"label,attr"`
	Desc     string    `xml:"desc"`
	Required *struct{} `xml:"required"`
	Values   []string  `xml:"value"`
	Options  []struct {
		Label string `xml:"label,attr"`
		Value string `xml:"value"`
	} `xml:"option"`
}

func (f fieldXML) field() Field {
	field := Field{
		Var:      f.Var,
		Type:     f.Type,
		Label:    f.Label,
		Desc:     f.Desc,
		Required: f.Required != nil,
		Values:   f.Values,
	}
	for _, o := range f.Options {
		field.Options = append(field.Options, ListItem{Label: o.Label, Value: o.Value})
	}
	return field
}

func convertFields(in []fieldXML) []Field {
	var out []Field
	for _, f := range in {
		out = append(out, f.field())
	}
	return out
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for *Data.
func (d *Data) UnmarshalXML(decoder *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Type         Type       `xml:"type,attr"`
		Title        string     `xml:"title"`
		Instructions []string   `xml:"instructions"`
		Fields       []fieldXML `xml:"field"`
		Reported     struct {
			Fields []fieldXML `xml:"field"`
		} `xml:"reported"`
		Items []struct {
			Fields []fieldXML `xml:"field"`
		} `xml:"item"`
	}{}
	err := decoder.DecodeElement(&s, &start)
	if err != nil {
		return err
	}
	d.Type = s.Type
	d.Title = s.Title
	d.Instructions = s.Instructions
	d.Fields = convertFields(s.Fields)
	d.Reported = convertFields(s.Reported.Fields)
	d.Items = nil
	for _, item := range s.Items {
		d.Items = append(d.Items, convertFields(item.Fields))
	}
	return nil
}

// Prototype parses data forms carried directly in messages.
var Prototype ext.Prototype = ext.Decode[Data](ext.KindDataForm, "/message/x[@xmlns='"+NS+"']")

// Get returns the data form attached to st, if any.
func Get(st *ext.Stanza) (*Data, bool) {
	d, ok := st.Extension(ext.KindDataForm).(*Data)
	return d, ok
}
