// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// Actions represent the next steps that can be performed in multi-stage
// commands.
type Actions uint8

// A list of possible actions.
const (
	Prev     Actions = 1 << iota // prev
	Next                         // next
	Complete                     // complete

	// Execute is a bitmask that can be used to extract the default action.
	Execute = 0x38
)

// Default returns the default action, or 0 if none is set.
func (a Actions) Default() Actions {
	return (a & Execute) >> 3
}

// WithDefault returns a with the default action set to def.
// Def must be one of Prev, Next, or Complete and is also added to the allowed
// actions.
func (a Actions) WithDefault(def Actions) Actions {
	switch def {
	case Prev, Next, Complete:
		return a&^Execute | def | def<<3
	}
	return a &^ Execute
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (a Actions) TokenReader() xml.TokenReader {
	var attr []xml.Attr
	switch def := a.Default(); def {
	case Prev, Next, Complete:
		attr = []xml.Attr{ext.Attr("execute", def.String())}
	}

	var inner []xml.TokenReader
	for i := Prev; i <= Complete; i <<= 1 {
		if a&i == 0 {
			continue
		}
		inner = append(inner, ext.Element(xml.Name{Local: i.String()}))
	}

	return xmlstream.Wrap(
		ext.Readers(inner...),
		xml.StartElement{
			Name: xml.Name{Local: "actions"},
			Attr: attr,
		},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (a Actions) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// MarshalXML satisfies xml.Marshaler.
func (a Actions) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := a.WriteXML(e)
	return err
}

func parseActions(s string) Actions {
	switch s {
	case "prev":
		return Prev
	case "next":
		return Next
	case "complete":
		return Complete
	}
	return 0
}

// UnmarshalXML satisfies xml.Unmarshaler.
// Unknown actions are ignored.
func (a *Actions) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var action Actions
	for _, attr := range start.Attr {
		if attr.Name.Local == "execute" {
			action |= parseActions(attr.Value) << 3
			break
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			action |= parseActions(t.Name.Local)
			if err = d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			*a = action
			return nil
		}
	}
}
