// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package marshal contains functions for encoding structs as an XML token
// stream.
package marshal // import "mellium.im/jabberkit/internal/marshal"

import (
	"bytes"
	"encoding/xml"
)

type errReader struct{ err error }

func (r errReader) Token() (xml.Token, error) { return nil, r.err }

type rawReader struct{ d *xml.Decoder }

// Token returns the raw tokens of the encoding so that namespaces are written
// once, the way the encoder produced them.
func (r rawReader) Token() (xml.Token, error) {
	tok, err := r.d.RawToken()
	if err != nil {
		return nil, err
	}
	return xml.CopyToken(tok), nil
}

// TokenReader returns a reader for the XML encoding of v.
// If v cannot be encoded the error is returned by the first call to Token.
//
// See the documentation for xml.Marshal for details about the conversion of Go
// values to XML.
func TokenReader(v any) xml.TokenReader {
	var b bytes.Buffer
	if err := xml.NewEncoder(&b).Encode(v); err != nil {
		return errReader{err: err}
	}
	return rawReader{d: xml.NewDecoder(&b)}
}

// Element is like TokenReader except that start is used as the outermost tag.
func Element(v any, start xml.StartElement) xml.TokenReader {
	var b bytes.Buffer
	if err := xml.NewEncoder(&b).EncodeElement(v, start); err != nil {
		return errReader{err: err}
	}
	return rawReader{d: xml.NewDecoder(&b)}
}
