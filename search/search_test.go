// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package search_test

import (
	"context"
	"strings"
	"testing"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/xmpptest"
	"mellium.im/jabberkit/search"
)

func TestEncode(t *testing.T) {
	xmpptest.RunEncodingTests(t, []xmpptest.EncodingTestCase{
		0: {
			Value: &search.Query{},
			XML:   `<query xmlns="jabber:iq:search"></query>`,
		},
		1: {
			Value: &search.Query{
				Instructions: "Fill in one or more fields to search for any matching Jabber users.",
				Fields:       search.FieldFirst | search.FieldLast | search.FieldNick | search.FieldEmail,
			},
			XML: `<query xmlns="jabber:iq:search"><instructions>Fill in one or more fields to search for any matching Jabber users.</instructions><first></first><last></last><nick></nick><email></email></query>`,
		},
		2: {
			Value: &search.Query{Fields: search.FieldLast, Last: "Capulet"},
			XML:   `<query xmlns="jabber:iq:search"><last>Capulet</last></query>`,
		},
		3: {
			Value: &search.Query{Items: []search.Item{
				{JID: jid.MustParse("juliet@capulet.com"), First: "Juliet", Last: "Capulet", Nick: "JuliC", Email: "juliet@shakespeare.lit"},
				{JID: jid.MustParse("tybalt@shakespeare.lit"), First: "Tybalt", Last: "Capulet"},
			}},
			XML: `<query xmlns="jabber:iq:search"><item jid="juliet@capulet.com"><first>Juliet</first><last>Capulet</last><nick>JuliC</nick><email>juliet@shakespeare.lit</email></item><item jid="tybalt@shakespeare.lit"><first>Tybalt</first><last>Capulet</last></item></query>`,
		},
	})
}

type handler struct {
	fields  []*search.Query
	results []*search.Query
	errs    []stanza.Error
}

func (h *handler) HandleSearchFields(_ jid.JID, q *search.Query) { h.fields = append(h.fields, q) }
func (h *handler) HandleSearchResult(_ jid.JID, q *search.Query) { h.results = append(h.results, q) }
func (h *handler) HandleSearchError(_ jid.JID, err stanza.Error) { h.errs = append(h.errs, err) }

var directory = jid.MustParse("characters.shakespeare.lit")

func newManager(t *testing.T) (*search.Manager, *dispatch.Dispatcher, *xmpptest.Recorder) {
	t.Helper()
	rec := &xmpptest.Recorder{}
	d := dispatch.New(rec, dispatch.IDFunc(func() string { return "search1" }))
	return search.NewManager(d), d, rec
}

func feed(t *testing.T, d *dispatch.Dispatcher, s string) {
	t.Helper()
	if _, err := xmpptest.Feed(d, s); err != nil {
		t.Fatal(err)
	}
}

func TestFetchFields(t *testing.T) {
	m, d, rec := newManager(t)
	h := &handler{}
	if err := m.FetchFields(context.Background(), directory, h); err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `type="get"`) || !strings.Contains(out, `<query xmlns="jabber:iq:search"></query>`) {
		t.Errorf("wrong request: %s", out)
	}
	feed(t, d, `<iq type="result" from="characters.shakespeare.lit" id="search1"><query xmlns="jabber:iq:search"><instructions>Fill in a field.</instructions><first/><last/><nick/></query></iq>`)
	if len(h.fields) != 1 {
		t.Fatalf("fields not delivered")
	}
	q := h.fields[0]
	if q.Fields != search.FieldFirst|search.FieldLast|search.FieldNick || q.Instructions != "Fill in a field." {
		t.Errorf("wrong fields: %+v", q)
	}
}

func TestSearchFields(t *testing.T) {
	m, d, rec := newManager(t)
	h := &handler{}
	err := m.SearchFields(context.Background(), directory, search.Query{Fields: search.FieldFirst, Last: "Capulet"}, h)
	if err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `type="set"`) || !strings.Contains(out, `<query xmlns="jabber:iq:search"><last>Capulet</last></query>`) {
		t.Errorf("wrong request: %s", out)
	}
	feed(t, d, `<iq type="result" from="characters.shakespeare.lit" id="search1"><query xmlns="jabber:iq:search"><item jid="juliet@capulet.com"><first>Juliet</first><last>Capulet</last></item></query></iq>`)
	if len(h.results) != 1 || len(h.results[0].Items) != 1 || h.results[0].Items[0].First != "Juliet" {
		t.Fatalf("wrong results: %+v", h.results)
	}
	if len(h.fields) != 0 {
		t.Errorf("results delivered as fields")
	}
}

func TestSearchForm(t *testing.T) {
	m, d, rec := newManager(t)
	h := &handler{}
	f := form.New(
		form.FormType(search.NS),
		form.Text("last", form.Value("Capulet")),
		form.Text("nick"),
	)
	if err := m.Search(context.Background(), directory, f, h); err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(d.Registry(), rec.Last())
	if err != nil {
		t.Fatal(err)
	}
	q, _ := st.Extension(ext.KindSearch).(*search.Query)
	if q == nil || q.Form == nil || q.Form.Type != form.TypeSubmit {
		t.Fatalf("form not submitted: %s", rec.Last())
	}
	if v, _ := q.Form.Get("last"); v != "Capulet" {
		t.Errorf("wrong submitted value: %q", v)
	}
	if _, ok := q.Form.Field("nick"); ok {
		t.Errorf("empty field submitted")
	}

	feed(t, d, `<iq type="error" from="characters.shakespeare.lit" id="search1"><error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if len(h.errs) != 1 || h.errs[0].Condition != stanza.ServiceUnavailable {
		t.Errorf("wrong errors: %+v", h.errs)
	}
	feed(t, d, `<iq type="error" from="characters.shakespeare.lit" id="search1"><error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if len(h.errs) != 1 {
		t.Errorf("second reply should be ignored")
	}
}

func TestRemoveHandler(t *testing.T) {
	m, d, _ := newManager(t)
	h := &handler{}
	if err := m.FetchFields(context.Background(), directory, h); err != nil {
		t.Fatal(err)
	}
	m.RemoveHandler(h)
	feed(t, d, `<iq type="result" from="characters.shakespeare.lit" id="search1"><query xmlns="jabber:iq:search"/></iq>`)
	if len(h.fields) != 0 {
		t.Errorf("removed handler called")
	}
}

func TestClone(t *testing.T) {
	q := &search.Query{
		Form:  &form.Data{Fields: []form.Field{{Var: "last", Values: []string{"Capulet"}}}},
		Items: []search.Item{{JID: jid.MustParse("juliet@capulet.com"), Nick: "JuliC"}},
	}
	c := q.Clone().(*search.Query)
	c.Form.Fields[0].Values[0] = "Montague"
	c.Items[0].Nick = "romeo"
	if q.Form.Fields[0].Values[0] != "Capulet" || q.Items[0].Nick != "JuliC" {
		t.Errorf("clone shares data with the original: %+v", q)
	}
}
