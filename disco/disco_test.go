// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco_test

import (
	"context"
	"strings"
	"testing"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/xmpptest"
)

func TestEncode(t *testing.T) {
	xmpptest.RunEncodingTests(t, []xmpptest.EncodingTestCase{
		0: {
			Value: &disco.Info{
				Node:       "http://jabber.org/protocol/commands",
				Identities: []disco.Identity{{Category: "automation", Type: "command-list", Name: "Commands"}},
				Features:   []string{"http://jabber.org/protocol/commands"},
			},
			XML: `<query xmlns="http://jabber.org/protocol/disco#info" node="http://jabber.org/protocol/commands"><identity category="automation" type="command-list" name="Commands"></identity><feature var="http://jabber.org/protocol/commands"></feature></query>`,
		},
		1: {
			Value: &disco.Items{
				Items: []disco.Item{{JID: jid.MustParse("room@conference.example.net"), Name: "Room"}},
			},
			XML: `<query xmlns="http://jabber.org/protocol/disco#items"><item jid="room@conference.example.net" name="Room"></item></query>`,
		},
	})
}

type nodeHandler struct{}

func (nodeHandler) DiscoNodeFeatures(jid.JID, string) []string {
	return []string{"urn:example:feature"}
}
func (nodeHandler) DiscoNodeIdentities(jid.JID, string) []disco.Identity {
	return []disco.Identity{{Category: "automation", Type: "command-node", Name: "Run"}}
}
func (nodeHandler) DiscoNodeItems(_, to jid.JID, node string) []disco.Item {
	return []disco.Item{{JID: jid.MustParse("bot@example.net/res"), Node: node + "/child", Name: "child"}}
}

func newDisco(t *testing.T) (*disco.Disco, *dispatch.Dispatcher, *xmpptest.Recorder) {
	t.Helper()
	rec := &xmpptest.Recorder{}
	d := dispatch.New(rec, dispatch.IDFunc(func() string { return "q1" }))
	return disco.New(d), d, rec
}

func feed(t *testing.T, d *dispatch.Dispatcher, s string) *ext.Stanza {
	t.Helper()
	out, err := xmpptest.Feed(d, s)
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		return nil
	}
	st, err := xmpptest.Parse(d.Registry(), out)
	if err != nil {
		t.Fatalf("error parsing reply %q: %v", out, err)
	}
	return st
}

func TestRootInfo(t *testing.T) {
	dc, d, _ := newDisco(t)
	dc.AddIdentity("client", "bot", "jabberkit")
	dc.AddFeature("urn:example:feature")
	dc.AddFeature("urn:example:feature")
	dc.SetForm(form.New(form.Result, form.FormType("urn:example:info")))

	st := feed(t, d, `<iq type="get" id="1" from="juliet@example.com/a"><query xmlns="http://jabber.org/protocol/disco#info"/></iq>`)
	if st == nil || st.Type != "result" {
		t.Fatalf("expected result, got %+v", st)
	}
	info, ok := st.Extension(ext.KindDiscoInfo).(*disco.Info)
	if !ok {
		t.Fatal("reply does not contain info")
	}
	if len(info.Identities) != 1 || info.Identities[0].Type != "bot" {
		t.Errorf("wrong identities: %+v", info.Identities)
	}
	n := 0
	for _, f := range info.Features {
		if f == "urn:example:feature" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("feature should be listed exactly once, got %d in %v", n, info.Features)
	}
	if !info.HasFeature(disco.NSInfo) || !info.HasFeature(disco.NSVersion) {
		t.Errorf("default features missing: %v", info.Features)
	}
	if len(info.Forms) != 1 || info.Forms[0].FormType() != "urn:example:info" {
		t.Errorf("extended info form missing: %+v", info.Forms)
	}

	dc.RemoveFeature("urn:example:feature")
	if dc.HasFeature("urn:example:feature") {
		t.Error("feature not removed")
	}
}

func TestNodes(t *testing.T) {
	dc, d, _ := newDisco(t)
	h := nodeHandler{}
	dc.RegisterNodeHandler("cmd", h)

	st := feed(t, d, `<iq type="get" id="2" from="juliet@example.com/a"><query xmlns="http://jabber.org/protocol/disco#info" node="cmd"/></iq>`)
	info, ok := st.Extension(ext.KindDiscoInfo).(*disco.Info)
	if !ok {
		t.Fatalf("no info in reply")
	}
	if info.Node != "cmd" || !info.HasFeature("urn:example:feature") || len(info.Identities) != 1 {
		t.Errorf("wrong node info: %+v", info)
	}

	st = feed(t, d, `<iq type="get" id="3" from="juliet@example.com/a"><query xmlns="http://jabber.org/protocol/disco#items" node="cmd"/></iq>`)
	items, ok := st.Extension(ext.KindDiscoItems).(*disco.Items)
	if !ok || len(items.Items) != 1 || items.Items[0].Node != "cmd/child" {
		t.Errorf("wrong items: %+v", items)
	}

	st = feed(t, d, `<iq type="get" id="4" from="juliet@example.com/a"><query xmlns="http://jabber.org/protocol/disco#info" node="unknown"/></iq>`)
	if se, ok := st.StanzaError(); !ok || se.Condition != stanza.ItemNotFound {
		t.Errorf("unknown node should be item-not-found, got %+v", st)
	}

	dc.RemoveNodeHandlers(h)
	st = feed(t, d, `<iq type="get" id="5" from="juliet@example.com/a"><query xmlns="http://jabber.org/protocol/disco#items" node="cmd"/></iq>`)
	if _, ok := st.StanzaError(); !ok {
		t.Errorf("removed node should not be found")
	}
}

func TestVersion(t *testing.T) {
	dc, d, _ := newDisco(t)
	dc.SetVersion("mucbot", "1.0", "")
	st := feed(t, d, `<iq type="get" id="v" from="juliet@example.com/a"><query xmlns="jabber:iq:version"/></iq>`)
	v, ok := st.Extension(ext.KindVersion).(*disco.Version)
	if !ok || v.Name != "mucbot" || v.Version != "1.0" || v.OS != "" {
		t.Errorf("wrong version reply: %+v", v)
	}
}

type resultHandler struct {
	info     []disco.Info
	items    []disco.Items
	errs     []stanza.Error
	contexts []int
}

func (h *resultHandler) HandleDiscoInfo(_ jid.JID, info disco.Info, context int) {
	h.info = append(h.info, info)
	h.contexts = append(h.contexts, context)
}
func (h *resultHandler) HandleDiscoItems(_ jid.JID, items disco.Items, context int) {
	h.items = append(h.items, items)
	h.contexts = append(h.contexts, context)
}
func (h *resultHandler) HandleDiscoError(_ jid.JID, err stanza.Error, context int) {
	h.errs = append(h.errs, err)
	h.contexts = append(h.contexts, context)
}

func TestGetInfo(t *testing.T) {
	dc, d, rec := newDisco(t)
	h := &resultHandler{}
	room := jid.MustParse("room@conference.example.net")
	err := dc.GetInfo(context.Background(), room, "", h, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Last(), `xmlns="http://jabber.org/protocol/disco#info"`) {
		t.Errorf("wrong request: %s", rec.Last())
	}

	const reply = `<iq type="result" id="q1" from="room@conference.example.net"><query xmlns="http://jabber.org/protocol/disco#info"><identity category="conference" type="text" name="Room"/><feature var="muc_membersonly"/></query></iq>`
	feed(t, d, reply)
	feed(t, d, reply)
	if len(h.info) != 1 {
		t.Fatalf("handler should be called once, got %d", len(h.info))
	}
	if h.contexts[0] != 42 || !h.info[0].HasFeature("muc_membersonly") {
		t.Errorf("wrong result: %+v %v", h.info[0], h.contexts)
	}
}

func TestGetItemsError(t *testing.T) {
	dc, d, _ := newDisco(t)
	h := &resultHandler{}
	err := dc.GetItems(context.Background(), jid.MustParse("example.net"), "", h, 1)
	if err != nil {
		t.Fatal(err)
	}
	feed(t, d, `<iq type="error" id="q1" from="example.net"><error type="cancel"><feature-not-implemented xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if len(h.errs) != 1 || h.errs[0].Condition != stanza.FeatureNotImplemented {
		t.Errorf("wrong error delivery: %+v", h.errs)
	}
	if len(h.items) != 0 {
		t.Errorf("items handler should not be called on error")
	}
}

func TestRemoveDiscoHandler(t *testing.T) {
	dc, d, _ := newDisco(t)
	h := &resultHandler{}
	if err := dc.GetItems(context.Background(), jid.MustParse("example.net"), "", h, 1); err != nil {
		t.Fatal(err)
	}
	dc.RemoveDiscoHandler(h)
	feed(t, d, `<iq type="result" id="q1" from="example.net"><query xmlns="http://jabber.org/protocol/disco#items"/></iq>`)
	if len(h.items) != 0 {
		t.Error("removed handler should not be called")
	}
}

func TestClone(t *testing.T) {
	info := &disco.Info{
		Identities: []disco.Identity{{Category: "conference", Type: "text", Name: "Play-Specific Chatrooms"}},
		Features:   []string{"http://jabber.org/protocol/muc"},
		Forms:      []*form.Data{{Fields: []form.Field{{Var: "FORM_TYPE", Values: []string{"urn:xmpp:dataforms:softwareinfo"}}}}},
	}
	ci := info.Clone().(*disco.Info)
	ci.Identities[0].Name = ""
	ci.Features[0] = "jabber:iq:version"
	ci.Forms[0].Fields[0].Values[0] = ""
	if info.Identities[0].Name != "Play-Specific Chatrooms" || info.Features[0] != "http://jabber.org/protocol/muc" ||
		info.Forms[0].Fields[0].Values[0] != "urn:xmpp:dataforms:softwareinfo" {
		t.Errorf("info clone shares data with the original: %+v", info)
	}

	items := &disco.Items{Items: []disco.Item{{JID: jid.MustParse("people.shakespeare.lit"), Name: "Directory of Characters"}}}
	cit := items.Clone().(*disco.Items)
	cit.Items[0].Name = ""
	if items.Items[0].Name != "Directory of Characters" {
		t.Errorf("items clone shares data with the original: %+v", items.Items)
	}
}
