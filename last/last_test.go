// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package last_test

import (
	"context"
	"testing"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/internal/xmpptest"
	"mellium.im/jabberkit/last"
)

func TestEncode(t *testing.T) {
	xmpptest.RunEncodingTests(t, []xmpptest.EncodingTestCase{
		0: {
			Value: &last.Query{},
			XML:   `<query xmlns="jabber:iq:last" seconds="0"></query>`,
		},
		1: {
			Value: &last.Query{Seconds: 903, Status: "Heading Home"},
			XML:   `<query xmlns="jabber:iq:last" seconds="903">Heading Home</query>`,
		},
	})
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type handler struct {
	from    jid.JID
	seconds uint64
	status  string
	errs    []stanza.Error
	results int
}

func (h *handler) HandleLastActivityResult(from jid.JID, seconds uint64, status string) {
	h.results++
	h.from, h.seconds, h.status = from, seconds, status
}

func (h *handler) HandleLastActivityError(from jid.JID, err stanza.Error) {
	h.from = from
	h.errs = append(h.errs, err)
}

func newManager(t *testing.T, c *clock) (*last.Manager, *dispatch.Dispatcher, *xmpptest.Recorder) {
	t.Helper()
	rec := &xmpptest.Recorder{}
	d := dispatch.New(rec, dispatch.IDFunc(func() string { return "l1" }))
	return last.NewManagerClock(disco.New(d), c.now), d, rec
}

func TestRespond(t *testing.T) {
	c := &clock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	_, d, _ := newManager(t, c)

	c.t = c.t.Add(903*time.Second + 500*time.Millisecond)
	out, err := xmpptest.Feed(d, `<iq type="get" id="last1" from="romeo@montague.net/orchard"><query xmlns="jabber:iq:last"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(d.Registry(), out)
	if err != nil {
		t.Fatalf("error parsing %q: %v", out, err)
	}
	q, _ := st.Extension(ext.KindLast).(*last.Query)
	if st.Type != "result" || st.ID != "last1" || q == nil || q.Seconds != 903 {
		t.Fatalf("wrong reply: %s", out)
	}
}

func TestResetIdle(t *testing.T) {
	c := &clock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	m, d, _ := newManager(t, c)
	c.t = c.t.Add(time.Hour)
	m.ResetIdle()
	c.t = c.t.Add(42 * time.Second)
	if idle := m.Idle(); idle != 42*time.Second {
		t.Errorf("wrong idle time: %v", idle)
	}

	out, err := xmpptest.Feed(d, `<iq type="set" id="last2" from="romeo@montague.net/orchard"><query xmlns="jabber:iq:last"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(d.Registry(), out)
	if err != nil {
		t.Fatal(err)
	}
	if se, ok := st.StanzaError(); !ok || se.Condition != stanza.FeatureNotImplemented {
		t.Errorf("set should be rejected, got %s", out)
	}
}

func TestQuery(t *testing.T) {
	m, d, rec := newManager(t, &clock{})
	h := &handler{}
	to := jid.MustParse("juliet@capulet.com")
	if err := m.Query(context.Background(), to, h); err != nil {
		t.Fatal(err)
	}
	const want = `<iq type="get" to="juliet@capulet.com" id="l1"><query xmlns="jabber:iq:last"></query></iq>`
	st, err := xmpptest.Parse(d.Registry(), rec.Last())
	if err != nil {
		t.Fatal(err)
	}
	if st.Type != "get" || !st.To.Equal(to) || st.Extension(ext.KindLast) == nil {
		t.Errorf("wrong request: want like %s, got %s", want, rec.Last())
	}

	_, err = xmpptest.Feed(d, `<iq type="result" id="l1" from="juliet@capulet.com"><query xmlns="jabber:iq:last" seconds="903">Heading Home</query></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if h.results != 1 || h.seconds != 903 || h.status != "Heading Home" || !h.from.Equal(to) {
		t.Errorf("wrong result: %+v", h)
	}

	if err = m.Query(context.Background(), to, h); err != nil {
		t.Fatal(err)
	}
	_, err = xmpptest.Feed(d, `<iq type="error" id="l1" from="juliet@capulet.com"><error type="auth"><forbidden xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.errs) != 1 || h.errs[0].Condition != stanza.Forbidden {
		t.Errorf("wrong errors: %+v", h.errs)
	}
}

func TestRemoveHandler(t *testing.T) {
	m, d, _ := newManager(t, &clock{})
	h := &handler{}
	if err := m.Query(context.Background(), jid.MustParse("juliet@capulet.com"), h); err != nil {
		t.Fatal(err)
	}
	m.RemoveHandler(h)
	_, err := xmpptest.Feed(d, `<iq type="result" id="l1" from="juliet@capulet.com"><query xmlns="jabber:iq:last" seconds="1"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	if h.results != 0 {
		t.Errorf("removed handler called")
	}
}

func TestClose(t *testing.T) {
	m, d, _ := newManager(t, &clock{})
	m.Close()
	out, err := xmpptest.Feed(d, `<iq type="get" id="last3" from="romeo@montague.net/orchard"><query xmlns="jabber:iq:last"/></iq>`)
	if err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(d.Registry(), out)
	if err != nil {
		t.Fatal(err)
	}
	if se, ok := st.StanzaError(); !ok || se.Condition != stanza.ServiceUnavailable {
		t.Errorf("closed manager should not answer, got %s", out)
	}
}
