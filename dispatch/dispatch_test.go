// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dispatch_test

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/internal/xmpptest"
)

type resultRecorder struct {
	got      []*ext.Stanza
	contexts []int
}

func (r *resultRecorder) HandleIQID(st *ext.Stanza, context int) {
	r.got = append(r.got, st)
	r.contexts = append(r.contexts, context)
}

func fixedID(id string) dispatch.Option {
	return dispatch.IDFunc(func() string { return id })
}

func TestSendIQTracksReply(t *testing.T) {
	var rec xmpptest.Recorder
	d := dispatch.New(&rec, fixedID("abc"))
	h := &resultRecorder{}

	id, err := d.SendIQ(context.Background(), stanza.IQ{
		To:   jid.MustParse("juliet@example.com"),
		Type: stanza.GetIQ,
	}, nil, h, 7)
	if err != nil {
		t.Fatal(err)
	}
	if id != "abc" {
		t.Errorf("wrong id: want=abc, got=%q", id)
	}
	if rec.Len() != 1 {
		t.Fatalf("expected one stanza sent, got %d", rec.Len())
	}
	if d.Pending() != 1 {
		t.Fatalf("expected request to be pending")
	}

	const reply = `<iq type="result" id="abc" from="juliet@example.com"></iq>`
	for i := 0; i < 2; i++ {
		if _, err = xmpptest.Feed(d, reply); err != nil {
			t.Fatal(err)
		}
	}
	if len(h.got) != 1 {
		t.Fatalf("handler should be called exactly once, got %d", len(h.got))
	}
	if h.contexts[0] != 7 {
		t.Errorf("wrong context: want=7, got=%d", h.contexts[0])
	}
	if d.Pending() != 0 {
		t.Errorf("request still pending after reply")
	}
}

func TestStrayReplyIgnored(t *testing.T) {
	var rec xmpptest.Recorder
	d := dispatch.New(&rec)
	out, err := xmpptest.Feed(d, `<iq type="error" id="nope"><error type="cancel"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" || rec.Len() != 0 {
		t.Errorf("stray reply should produce no output, got %q and %v", out, rec.Sent())
	}
}

func TestResultAndErrorNotTracked(t *testing.T) {
	var rec xmpptest.Recorder
	d := dispatch.New(&rec)
	_, err := d.SendIQ(context.Background(), stanza.IQ{ID: "1", Type: stanza.ResultIQ}, nil, &resultRecorder{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Pending() != 0 {
		t.Errorf("result IQs should not be tracked")
	}
}

func TestSendFailureUntracks(t *testing.T) {
	sendErr := errors.New("closed")
	rec := xmpptest.Recorder{Err: sendErr}
	d := dispatch.New(&rec)
	_, err := d.SendIQ(context.Background(), stanza.IQ{Type: stanza.SetIQ}, nil, &resultRecorder{}, 0)
	if !errors.Is(err, sendErr) {
		t.Fatalf("wrong error: %v", err)
	}
	if d.Pending() != 0 {
		t.Errorf("failed request should not remain pending")
	}
}

func TestRemoveIDHandler(t *testing.T) {
	var rec xmpptest.Recorder
	n := 0
	d := dispatch.New(&rec, dispatch.IDFunc(func() string {
		n++
		return string(rune('a' + n))
	}))
	h := &resultRecorder{}
	other := &resultRecorder{}
	for _, hh := range []dispatch.IQResultHandler{h, h, other} {
		if _, err := d.SendIQ(context.Background(), stanza.IQ{Type: stanza.GetIQ}, nil, hh, 0); err != nil {
			t.Fatal(err)
		}
	}
	if removed := d.RemoveIDHandler(h); removed != 2 {
		t.Errorf("wrong number removed: want=2, got=%d", removed)
	}
	if _, err := xmpptest.Feed(d, `<iq type="result" id="b"/>`); err != nil {
		t.Fatal(err)
	}
	if len(h.got) != 0 {
		t.Errorf("removed handler was called")
	}
	if _, err := xmpptest.Feed(d, `<iq type="result" id="d"/>`); err != nil {
		t.Fatal(err)
	}
	if len(other.got) != 1 {
		t.Errorf("remaining handler was not called")
	}
}

func replyCondition(t *testing.T, out string) (string, stanza.Condition) {
	t.Helper()
	st, err := xmpptest.Parse(nil, out)
	if err != nil {
		t.Fatalf("error parsing reply %q: %v", out, err)
	}
	se, _ := st.StanzaError()
	return st.Type, se.Condition
}

func TestUnhandledIQ(t *testing.T) {
	var rec xmpptest.Recorder
	d := dispatch.New(&rec)
	out, err := xmpptest.Feed(d, `<iq type="get" id="123" from="romeo@example.net/a"><query xmlns="urn:example:unknown"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	typ, cond := replyCondition(t, out)
	if typ != "error" || cond != stanza.ServiceUnavailable {
		t.Errorf("wrong reply: %s", out)
	}
}

func TestIQHandler(t *testing.T) {
	var rec xmpptest.Recorder
	d := dispatch.New(&rec)
	name := xml.Name{Space: "urn:example", Local: "query"}
	d.RegisterIQHandler(name, dispatch.IQHandlerFunc(func(st *ext.Stanza) error {
		return d.Result(st, nil)
	}))
	d.RegisterIQHandler(xml.Name{Space: "urn:example:fail"}, dispatch.IQHandlerFunc(func(st *ext.Stanza) error {
		return stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}))
	d.RegisterIQHandler(xml.Name{Space: "urn:example:broken"}, dispatch.IQHandlerFunc(func(st *ext.Stanza) error {
		return errors.New("broken")
	}))

	out, err := xmpptest.Feed(d, `<iq type="get" id="1" from="romeo@example.net/a"><query xmlns="urn:example"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(nil, out)
	if err != nil {
		t.Fatal(err)
	}
	if st.Type != "result" || st.ID != "1" || st.To.String() != "romeo@example.net/a" {
		t.Errorf("wrong reply: %s", out)
	}
	if rec.Len() != 0 {
		t.Errorf("reply should be written to the input stream, not sent: %v", rec.Sent())
	}

	out, err = xmpptest.Feed(d, `<iq type="set" id="2"><anything xmlns="urn:example:fail"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if typ, cond := replyCondition(t, out); typ != "error" || cond != stanza.BadRequest {
		t.Errorf("wrong reply for stanza error: %s", out)
	}

	out, err = xmpptest.Feed(d, `<iq type="set" id="3"><x xmlns="urn:example:broken"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if typ, cond := replyCondition(t, out); typ != "error" || cond != stanza.InternalServerError {
		t.Errorf("wrong reply for failed handler: %s", out)
	}
}

func TestDuplicateIQHandlerPanics(t *testing.T) {
	d := dispatch.New(&xmpptest.Recorder{})
	name := xml.Name{Space: "urn:example", Local: "query"}
	h := dispatch.IQHandlerFunc(func(*ext.Stanza) error { return nil })
	d.RegisterIQHandler(name, &h)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	d.RegisterIQHandler(name, &h)
}

type presenceCounter struct {
	n int
}

func (p *presenceCounter) HandlePresence(*ext.Stanza) { p.n++ }
func (p *presenceCounter) HandleMessage(*ext.Stanza)  { p.n++ }

func TestPresenceRouting(t *testing.T) {
	d := dispatch.New(&xmpptest.Recorder{})
	room := &presenceCounter{}
	all := &presenceCounter{}
	d.RegisterPresenceHandler(jid.MustParse("room@conference.example.net"), room)
	d.RegisterPresenceHandler(jid.JID{}, all)

	for _, s := range []string{
		`<presence from="room@conference.example.net/nick"/>`,
		`<presence from="someone@example.net/res"/>`,
	} {
		if _, err := xmpptest.Feed(d, s); err != nil {
			t.Fatal(err)
		}
	}
	if room.n != 1 || all.n != 1 {
		t.Errorf("wrong routing: room=%d all=%d", room.n, all.n)
	}

	d.RemovePresenceHandler(jid.MustParse("room@conference.example.net"), room)
	if _, err := xmpptest.Feed(d, `<presence from="room@conference.example.net/nick"/>`); err != nil {
		t.Fatal(err)
	}
	if room.n != 1 || all.n != 2 {
		t.Errorf("removed handler still called: room=%d all=%d", room.n, all.n)
	}
}

func TestMessageRouting(t *testing.T) {
	d := dispatch.New(&xmpptest.Recorder{})
	h := &presenceCounter{}
	d.RegisterMessageHandler(jid.MustParse("room@conference.example.net"), h)
	if _, err := xmpptest.Feed(d, `<message from="room@conference.example.net/nick" type="groupchat"><body>hi</body></message>`); err != nil {
		t.Fatal(err)
	}
	if _, err := xmpptest.Feed(d, `<message from="other@example.net"><body>hi</body></message>`); err != nil {
		t.Fatal(err)
	}
	if h.n != 1 {
		t.Errorf("wrong number of messages: want=1, got=%d", h.n)
	}
	d.RemoveMessageHandler(jid.MustParse("room@conference.example.net"), h)
	if _, err := xmpptest.Feed(d, `<message from="room@conference.example.net/nick"/>`); err != nil {
		t.Fatal(err)
	}
	if h.n != 1 {
		t.Errorf("removed handler still called")
	}
}
