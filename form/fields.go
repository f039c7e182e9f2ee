// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package form

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/jabberkit/ext"
)

// FieldType is the type of a form field.
type FieldType string

// A list of field types.
const (
	TypeBoolean     FieldType = "boolean"
	TypeFixed       FieldType = "fixed"
	TypeHidden      FieldType = "hidden"
	TypeJIDMulti    FieldType = "jid-multi"
	TypeJID         FieldType = "jid-single"
	TypeListMulti   FieldType = "list-multi"
	TypeList        FieldType = "list-single"
	TypeTextMulti   FieldType = "text-multi"
	TypeTextPrivate FieldType = "text-private"
	TypeText        FieldType = "text-single"
)

func (t FieldType) single() bool {
	switch t {
	case TypeBoolean, TypeJID, TypeList, TypeText, TypeTextPrivate:
		return true
	}
	return false
}

func (t FieldType) list() bool {
	return t == TypeList || t == TypeListMulti
}

// ListItem is an option of a list field.
type ListItem struct {
	Label string
	Value string
}

// Field is a single form field.
type Field struct {
	Var      string
	Type     FieldType
	Label    string
	Desc     string
	Required bool
	Values   []string
	Options  []ListItem
}

// normalize drops values and options that are not valid for the field type.
func (f *Field) normalize() {
	switch f.Type {
	case TypeBoolean:
		vals := f.Values
		f.Values = nil
		for _, v := range vals {
			if b, err := strconv.ParseBool(v); err == nil {
				f.Values = []string{strconv.FormatBool(b)}
				break
			}
		}
	case TypeJID, TypeJIDMulti:
		vals := f.Values
		f.Values = nil
		for _, v := range vals {
			if _, err := jid.Parse(v); err == nil && v != "" {
				f.Values = append(f.Values, v)
			}
		}
	}
	if f.Type.single() && len(f.Values) > 1 {
		f.Values = f.Values[:1]
	}
	if !f.Type.list() {
		f.Options = nil
	}
}

// TokenReader implements xmlstream.Marshaler.
func (f Field) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Local: "field"}}
	start.Attr = appendAttr(start.Attr, "type", string(f.Type))
	start.Attr = appendAttr(start.Attr, "var", f.Var)
	start.Attr = appendAttr(start.Attr, "label", f.Label)

	var inner []xml.TokenReader
	inner = append(inner, ext.Text("desc", f.Desc))
	if f.Required {
		inner = append(inner, xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "required"}},
		))
	}
	for _, v := range f.Values {
		inner = append(inner, valueReader(v))
	}
	for _, o := range f.Options {
		inner = append(inner, xmlstream.Wrap(
			valueReader(o.Value),
			xml.StartElement{
				Name: xml.Name{Local: "option"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "label"}, Value: o.Label}},
			},
		))
	}
	return xmlstream.Wrap(ext.Readers(inner...), start)
}

func valueReader(v string) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(v)),
		xml.StartElement{Name: xml.Name{Local: "value"}},
	)
}

func appendAttr(attr []xml.Attr, local, value string) []xml.Attr {
	if value == "" {
		return attr
	}
	return append(attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}
