// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"encoding/xml"
	"errors"
	"strings"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
)

var errNoStart = errors.New("xmpptest: input does not begin with a start element")

// Feed passes a single stanza to h in the same way that a session would when
// serving an input stream.
// Anything that h writes to the stream is returned.
func Feed(h xmpp.Handler, stanza string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(stanza))
	tok, err := d.Token()
	if err != nil {
		return "", err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return "", errNoStart
	}

	var out strings.Builder
	e := xml.NewEncoder(&out)
	inner := xmlstream.Inner(d)
	rw := struct {
		xml.TokenReader
		*xml.Encoder
	}{
		TokenReader: inner,
		Encoder:     e,
	}
	err = h.HandleXMPP(rw, &start)
	if err != nil {
		return "", err
	}
	if _, err = xmlstream.Copy(xmlstream.Discard(), inner); err != nil {
		return "", err
	}
	if err = e.Flush(); err != nil {
		return "", err
	}
	return out.String(), nil
}
