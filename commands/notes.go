// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// NoteType indicates the severity of a note.
type NoteType uint8

// A list of possible NoteType's.
const (
	NoteInfo    NoteType = iota // info
	NoteWarn                    // warn
	NoteError                   // error
	NoteInvalid                 // invalid
)

func parseNoteType(s string) NoteType {
	for t := NoteInfo; t < NoteInvalid; t++ {
		if t.String() == s {
			return t
		}
	}
	return NoteInvalid
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
// Invalid note types are not marshaled.
func (n NoteType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if n >= NoteInvalid {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: n.String()}, nil
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
// Unknown values result in NoteInvalid.
func (n *NoteType) UnmarshalXMLAttr(attr xml.Attr) error {
	*n = parseNoteType(attr.Value)
	return nil
}

// Note provides information about the status of a command and may be returned
// as part of the response payload.
type Note struct {
	Type  NoteType `xml:"type,attr"`
	Value string   `xml:",chardata"`
}

// TokenReader satisfies the xmlstream.Marshaler interface.
// Notes with an invalid type return nil.
func (n Note) TokenReader() xml.TokenReader {
	if n.Type >= NoteInvalid {
		return nil
	}
	var inner xml.TokenReader
	if n.Value != "" {
		inner = xmlstream.Token(xml.CharData(n.Value))
	}
	return xmlstream.Wrap(inner, xml.StartElement{
		Name: xml.Name{Local: "note"},
		Attr: []xml.Attr{ext.Attr("type", n.Type.String())},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (n Note) WriteXML(w xmlstream.TokenWriter) (int, error) {
	r := n.TokenReader()
	if r == nil {
		return 0, nil
	}
	return xmlstream.Copy(w, r)
}

// MarshalXML implements xml.Marshaler.
func (n Note) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := n.WriteXML(e)
	return err
}
