// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package marshal_test

import (
	"encoding/xml"
	"testing"

	"mellium.im/jabberkit/internal/marshal"
	"mellium.im/jabberkit/internal/xmpptest"
)

type query struct {
	XMLName xml.Name `xml:"jabber:iq:last query"`
	Seconds uint64   `xml:"seconds,attr"`
	Items   []string `xml:"item"`
}

type badValue struct {
	F func()
}

func TestTokenReader(t *testing.T) {
	for i, tc := range []struct {
		r   xml.TokenReader
		out string
		err bool
	}{
		0: {
			r:   marshal.TokenReader(query{Seconds: 903, Items: []string{"a", "b"}}),
			out: `<query xmlns="jabber:iq:last" seconds="903"><item>a</item><item>b</item></query>`,
		},
		1: {
			r:   marshal.Element(struct{ A string }{A: "x"}, xml.StartElement{Name: xml.Name{Space: "urn:example", Local: "el"}}),
			out: `<el xmlns="urn:example"><A>x</A></el>`,
		},
		2: {
			r:   marshal.TokenReader(badValue{F: func() {}}),
			err: true,
		},
	} {
		out, err := xmpptest.Marshal(tc.r)
		switch {
		case tc.err && err == nil:
			t.Errorf("%d: expected error", i)
		case !tc.err && err != nil:
			t.Errorf("%d: unexpected error: %v", i, err)
		case out != tc.out:
			t.Errorf("%d: wrong output: want=%s, got=%s", i, tc.out, out)
		}
	}
}
