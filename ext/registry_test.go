// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext_test

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/ext"
)

const (
	kindNote  = ext.KindUser + 1
	kindOther = ext.KindUser + 2
)

type note struct {
	XMLName xml.Name `xml:"urn:example:note note"`
	Text    string   `xml:",chardata"`
}

func (*note) Kind() ext.Kind { return kindNote }
func (n *note) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(n.Text)),
		xml.StartElement{Name: xml.Name{Space: "urn:example:note", Local: "note"}},
	)
}
func (n *note) Clone() ext.Extension {
	c := *n
	return &c
}

type other struct {
	name xml.Name
}

func (other) Kind() ext.Kind               { return kindOther }
func (other) TokenReader() xml.TokenReader { return nil }
func (o other) Clone() ext.Extension       { return o }

func otherProto(filter string) ext.Prototype {
	return ext.PrototypeFunc(kindOther, filter, func(d *xml.Decoder, start *xml.StartElement) (ext.Extension, error) {
		err := d.Skip()
		return other{name: start.Name}, err
	})
}

func parse(t *testing.T, r *ext.Registry, s string) *ext.Stanza {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(s))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("error reading start token: %v", err)
	}
	start := tok.(xml.StartElement)
	st, err := r.Parse(start, xmlstream.Inner(d))
	if err != nil {
		t.Fatalf("error parsing stanza: %v", err)
	}
	return st
}

func TestParseHeaderAndChildren(t *testing.T) {
	r := ext.NewRegistry()
	st := parse(t, r, `<message xmlns="jabber:client" id="1" type="groupchat" from="room@muc.example.net/nick" to="me@example.net"><subject></subject><body>hi</body><thread>t1</thread></message>`)
	if st.ID != "1" || st.Type != "groupchat" {
		t.Errorf("wrong header: %+v", st)
	}
	if st.From.Resourcepart() != "nick" || st.To.String() != "me@example.net" {
		t.Errorf("wrong addresses: from=%v to=%v", st.From, st.To)
	}
	if st.Body != "hi" || st.Thread != "t1" {
		t.Errorf("wrong children: body=%q thread=%q", st.Body, st.Thread)
	}
	if !st.HasSubject || st.Subject != "" {
		t.Errorf("empty subject not recorded: %v %q", st.HasSubject, st.Subject)
	}
	if msg := st.Message(); msg.Type != stanza.GroupChatMessage {
		t.Errorf("wrong message type: %q", msg.Type)
	}
}

func TestParseExtension(t *testing.T) {
	r := ext.NewRegistry()
	err := r.Register(ext.Decode[note](kindNote, "/message/note[@xmlns='urn:example:note']"))
	if err != nil {
		t.Fatal(err)
	}
	st := parse(t, r, `<message xmlns="jabber:client"><note xmlns="urn:example:note">first</note><note xmlns="urn:example:note">second</note></message>`)
	n, ok := st.Extension(kindNote).(*note)
	if !ok {
		t.Fatalf("note extension not attached: %+v", st.Extensions)
	}
	if n.Text != "first" {
		t.Errorf("first match should win, got %q", n.Text)
	}
	if len(st.Extensions) != 1 {
		t.Errorf("only one extension per kind should be attached, got %d", len(st.Extensions))
	}

	// Filters only select the stanza they name.
	st = parse(t, r, `<presence xmlns="jabber:client"><note xmlns="urn:example:note">x</note></presence>`)
	if st.Extension(kindNote) != nil {
		t.Error("note should not be parsed from presence")
	}
}

func TestFirstRegisteredWins(t *testing.T) {
	r := ext.NewRegistry()
	if err := r.Register(otherProto("/message/*[@xmlns='urn:example:note']")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ext.Decode[note](kindNote, "/message/note[@xmlns='urn:example:note']")); err != nil {
		t.Fatal(err)
	}
	st := parse(t, r, `<message xmlns="jabber:client"><note xmlns="urn:example:note">x</note></message>`)
	if st.Extension(kindNote) != nil {
		t.Error("later registration should not receive the element")
	}
	if st.Extension(kindOther) == nil {
		t.Error("earlier registration should receive the element")
	}

	if !r.Remove(kindOther) {
		t.Fatal("expected prototype to be removed")
	}
	st = parse(t, r, `<message xmlns="jabber:client"><note xmlns="urn:example:note">x</note></message>`)
	if st.Extension(kindNote) == nil {
		t.Error("after removal the remaining prototype should match")
	}
}

func TestRegisterSameKindReplaces(t *testing.T) {
	r := ext.NewRegistry()
	if err := r.Register(otherProto("/message/a")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(otherProto("/message/b")); err != nil {
		t.Fatal(err)
	}
	st := parse(t, r, `<message><a/><b/></message>`)
	o, ok := st.Extension(kindOther).(other)
	if !ok || o.name.Local != "b" {
		t.Errorf("replacement prototype not used: %+v", st.Extensions)
	}
}

func TestRegisterBadFilter(t *testing.T) {
	r := ext.NewRegistry()
	if err := r.Register(otherProto("nope")); !errors.Is(err, ext.ErrBadFilter) {
		t.Errorf("expected bad filter error, got %v", err)
	}
	if r.Registered(kindOther) {
		t.Error("prototype with bad filter should not be registered")
	}
}

func TestMalformedChildDropped(t *testing.T) {
	r := ext.NewRegistry()
	err := r.Register(ext.PrototypeFunc(kindOther, "/iq/bad", func(d *xml.Decoder, start *xml.StartElement) (ext.Extension, error) {
		return nil, errors.New("malformed")
	}))
	if err != nil {
		t.Fatal(err)
	}
	st := parse(t, r, `<iq type="result" id="a"><bad/></iq>`)
	if len(st.Extensions) != 0 {
		t.Errorf("malformed child should be dropped, got %+v", st.Extensions)
	}
	if child, ok := st.FirstChild(); !ok || child.Name.Local != "bad" {
		t.Errorf("raw payload should still be available, got %v %v", child, ok)
	}
}

func TestStanzaError(t *testing.T) {
	r := ext.NewRegistry()
	st := parse(t, r, `<iq xmlns="jabber:client" type="error" id="a"><error type="cancel"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	se, ok := st.StanzaError()
	if !ok {
		t.Fatal("expected stanza error")
	}
	if se.Condition != stanza.ItemNotFound || se.Type != stanza.Cancel {
		t.Errorf("wrong error: %+v", se)
	}

	st = parse(t, r, `<iq type="error" id="d"><error type="modify"><bad-request xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/><text xmlns="urn:ietf:params:xml:ns:xmpp-stanzas">no</text><bad-profile xmlns="http://jabber.org/protocol/si"/></error></iq>`)
	se, _ = st.StanzaError()
	if se.Condition != stanza.BadRequest || se.Text[""] != "no" {
		t.Errorf("application condition should not hide the defined condition: %+v", se)
	}

	st = parse(t, r, `<iq type="error" id="b"></iq>`)
	se, ok = st.StanzaError()
	if !ok || se.Condition != stanza.UndefinedCondition {
		t.Errorf("missing error element should be undefined-condition, got %+v", se)
	}

	st = parse(t, r, `<iq type="result" id="c"></iq>`)
	if _, ok = st.StanzaError(); ok {
		t.Error("result should not carry an error")
	}
}

func TestClone(t *testing.T) {
	r := ext.NewRegistry()
	err := r.Register(ext.Decode[note](kindNote, "/message/note"))
	if err != nil {
		t.Fatal(err)
	}
	st := parse(t, r, `<message><note xmlns="urn:example:note">orig</note></message>`)
	c := st.Clone()
	c.Extension(kindNote).(*note).Text = "changed"
	if st.Extension(kindNote).(*note).Text != "orig" {
		t.Error("modifying the clone changed the original")
	}
}

func TestStanzaTokenReader(t *testing.T) {
	r := ext.NewRegistry()
	st := parse(t, r, `<message xmlns="jabber:client" id="x" type="chat"><body>hi</body></message>`)
	var b strings.Builder
	e := xml.NewEncoder(&b)
	if _, err := xmlstream.Copy(e, st.TokenReader()); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}
	const want = `<message id="x" type="chat"><body xmlns="jabber:client">hi</body></message>`
	if s := b.String(); s != want {
		t.Errorf("wrong output:\nwant=%s\n got=%s", want, s)
	}
}
