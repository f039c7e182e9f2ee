// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
)

// Tokens is a slice of XML tokens that can also act as an xml.TokenReader by
// popping tokens from itself.
type Tokens []xml.Token

// Token implements xml.TokenReader.
func (r *Tokens) Token() (xml.Token, error) {
	if len(*r) == 0 {
		return nil, io.EOF
	}

	var t xml.Token
	t, *r = (*r)[0], (*r)[1:]
	return t, nil
}

// Readers concatenates the non-nil token readers.
// It returns nil if all of them are nil.
func Readers(r ...xml.TokenReader) xml.TokenReader {
	nonNil := make([]xml.TokenReader, 0, len(r))
	for _, rr := range r {
		if rr != nil {
			nonNil = append(nonNil, rr)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return xmlstream.MultiReader(nonNil...)
}

// Text returns an element with the given local name and character data, or nil
// if value is empty.
func Text(local, value string) xml.TokenReader {
	if value == "" {
		return nil
	}
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(value)),
		xml.StartElement{Name: xml.Name{Local: local}},
	)
}

// Element returns an empty element with the given name and attributes.
// Attributes with empty values are omitted.
func Element(name xml.Name, attr ...xml.Attr) xml.TokenReader {
	start := xml.StartElement{Name: name}
	for _, a := range attr {
		if a.Value != "" {
			start.Attr = append(start.Attr, a)
		}
	}
	return xmlstream.Wrap(nil, start)
}

// Attr is a convenience function for an unqualified attribute.
func Attr(local, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: local}, Value: value}
}
