// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package form_test

import (
	"encoding/xml"
	"strconv"
	"testing"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/internal/xmpptest"
)

var (
	_ xml.Marshaler       = (*form.Data)(nil)
	_ xmlstream.Marshaler = (*form.Data)(nil)
	_ xmlstream.WriterTo  = (*form.Data)(nil)
	_ xml.Unmarshaler     = (*form.Data)(nil)
	_ ext.Extension       = (*form.Data)(nil)
)

var submissionTestCases = [...]struct {
	Data     *form.Data
	Ok       bool
	Expected string
}{
	0: {
		// A nil form can still be submitted.
		Expected: `<x xmlns="jabber:x:data" type="submit"></x>`,
		Ok:       true,
	},
	1: {
		// A form should not include unset fields that are not required.
		Data:     form.New(form.Boolean("boolvar")),
		Expected: `<x xmlns="jabber:x:data" type="submit"></x>`,
		Ok:       true,
	},
	2: {
		Data:     form.New(form.Boolean("boolvar", form.Required)),
		Expected: `<x xmlns="jabber:x:data" type="submit"><field type="boolean" var="boolvar"><required></required><value>false</value></field></x>`,
		Ok:       false,
	},
	3: {
		Data:     form.New(form.Boolean("boolvar", form.Value("true"), form.Required)),
		Expected: `<x xmlns="jabber:x:data" type="submit"><field type="boolean" var="boolvar"><required></required><value>true</value></field></x>`,
		Ok:       true,
	},
	4: {
		// Bools should also support "1" and "0".
		Data:     form.New(form.Boolean("boolvar", form.Value("0"))),
		Expected: `<x xmlns="jabber:x:data" type="submit"><field type="boolean" var="boolvar"><value>false</value></field></x>`,
		Ok:       true,
	},
	5: {
		// A form should not return fixed fields.
		Data:     form.New(form.Fixed(form.Value("section"))),
		Expected: `<x xmlns="jabber:x:data" type="submit"></x>`,
		Ok:       true,
	},
	6: {
		Data:     form.New(form.Text("textvar", form.Value("one"), form.Value("two"))),
		Expected: `<x xmlns="jabber:x:data" type="submit"><field type="text-single" var="textvar"><value>one</value></field></x>`,
		Ok:       true,
	},
	7: {
		Data:     form.New(form.JIDMulti("jidvar", form.Value("//"), form.Value("two"), form.Value("three"))),
		Expected: `<x xmlns="jabber:x:data" type="submit"><field type="jid-multi" var="jidvar"><value>two</value><value>three</value></field></x>`,
		Ok:       true,
	},
}

func TestSubmit(t *testing.T) {
	for i, tc := range submissionTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			submission, ok := tc.Data.Submit()
			s, err := xmpptest.Marshal(submission.TokenReader())
			if err != nil {
				t.Fatalf("error marshaling submission: %v", err)
			}
			if s != tc.Expected {
				t.Errorf("wrong XML:\nwant=%s,\n got=%s", tc.Expected, s)
			}
			if ok != tc.Ok {
				t.Errorf("wrong value for ok: want=%t, got=%t", tc.Ok, ok)
			}
		})
	}
}

var marshalTestCases = [...]struct {
	Data     *form.Data
	Expected string
}{
	0: {
		Data:     form.Cancel("oops", "do\nstuff"),
		Expected: `<x xmlns="jabber:x:data" type="cancel"><title>oops</title><instructions>do</instructions><instructions>stuff</instructions></x>`,
	},
	1: {
		Data:     form.New(),
		Expected: `<x xmlns="jabber:x:data" type="form"></x>`,
	},
	2: {
		Data: form.New(
			form.Boolean("boolvar", form.Required, form.Desc("desc"), form.Value("a"), form.Value("true"), form.Value("false"), form.Choice("", "item")),
		),
		Expected: `<x xmlns="jabber:x:data" type="form"><field type="boolean" var="boolvar"><desc>desc</desc><required></required><value>true</value></field></x>`,
	},
	3: {
		Data: form.New(
			form.Fixed(form.Value("fixed"), form.Choice("", "item"), form.Label("lab")),
		),
		Expected: `<x xmlns="jabber:x:data" type="form"><field type="fixed" label="lab"><value>fixed</value></field></x>`,
	},
	4: {
		Data: form.New(
			form.JID("j", form.Value(""), form.Value("//"), form.Value("jid@example.net"), form.Value("example.org")),
		),
		Expected: `<x xmlns="jabber:x:data" type="form"><field type="jid-single" var="j"><value>jid@example.net</value></field></x>`,
	},
	5: {
		Data: form.New(
			form.ListMulti("l", form.Value("one"), form.Value("two"),
				form.Choice("label", "item"), form.Choice("", "2")),
		),
		Expected: `<x xmlns="jabber:x:data" type="form"><field type="list-multi" var="l"><value>one</value><value>two</value><option label="label"><value>item</value></option><option label=""><value>2</value></option></field></x>`,
	},
	6: {
		Data: form.New(
			form.Result,
			form.Reported(form.NewField(form.TypeText, "first", form.Label("Given Name"))),
			form.Item(form.NewField(form.TypeText, "first", form.Value("Juliet"))),
		),
		Expected: `<x xmlns="jabber:x:data" type="result"><reported><field type="text-single" var="first" label="Given Name"></field></reported><item><field type="text-single" var="first"><value>Juliet</value></field></item></x>`,
	},
	7: {
		Data: form.New(
			form.FormType("http://jabber.org/protocol/muc#roomconfig"),
			form.TextPrivate("muc#roomconfig_roomsecret", form.Value("secret")),
		),
		Expected: `<x xmlns="jabber:x:data" type="form"><field type="hidden" var="FORM_TYPE"><value>http://jabber.org/protocol/muc#roomconfig</value></field><field type="text-private" var="muc#roomconfig_roomsecret"><value>secret</value></field></x>`,
	},
}

func TestMarshal(t *testing.T) {
	for i, tc := range marshalTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var b []byte
			var err error
			// Marshal twice to make sure we're not actually consuming something from
			// the slices in TokenReader.
			for i := 0; i < 2; i++ {
				b, err = xml.Marshal(tc.Data)
				if err != nil {
					t.Fatalf("error marshaling %d: %v", i, err)
				}
				if string(b) != tc.Expected {
					t.Errorf("wrong XML on marshal %d:\nwant=%s,\n got=%s", i, tc.Expected, b)
				}
			}

			data := &form.Data{}
			err = xml.Unmarshal(b, data)
			if err != nil {
				t.Fatalf("error unmarshaling: %v", err)
			}
			b, err = xml.Marshal(data)
			if err != nil {
				t.Fatalf("error remarshaling: %v", err)
			}
			if string(b) != tc.Expected {
				t.Errorf("wrong XML after remarshal:\nwant=%s,\n got=%s", tc.Expected, b)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	data := form.New(
		form.FormType("urn:example"),
		form.Boolean("enabled", form.Value("1")),
		form.JID("owner", form.Value("juliet@example.com")),
		form.TextMulti("lines", form.Value("a"), form.Value("b")),
	)
	if ft := data.FormType(); ft != "urn:example" {
		t.Errorf("wrong form type: %q", ft)
	}
	if b, ok := data.GetBool("enabled"); !ok || !b {
		t.Errorf("wrong bool: %t %t", b, ok)
	}
	if j, ok := data.GetJID("owner"); !ok || j.String() != "juliet@example.com" {
		t.Errorf("wrong JID: %v %t", j, ok)
	}
	if all := data.GetAll("lines"); len(all) != 2 {
		t.Errorf("wrong values: %v", all)
	}
	if !data.Set("enabled", "nope", "false") {
		t.Fatal("set on existing field failed")
	}
	if b, ok := data.GetBool("enabled"); !ok || b {
		t.Errorf("invalid value was not dropped: %t %t", b, ok)
	}
	if data.Set("missing", "x") {
		t.Error("set on missing field should fail")
	}

	c := data.Copy()
	c.Set("lines", "c")
	if all := data.GetAll("lines"); len(all) != 2 {
		t.Errorf("modifying the copy changed the original: %v", all)
	}
}

func TestParseFromMessage(t *testing.T) {
	reg := ext.NewRegistry()
	if err := reg.Register(form.Prototype); err != nil {
		t.Fatal(err)
	}
	st, err := xmpptest.Parse(reg, `<message from="room@muc.example.com"><x xmlns="jabber:x:data" type="form"><title>Voice request</title><field var="muc#role" type="list-single"><value>participant</value></field></x></message>`)
	if err != nil {
		t.Fatal(err)
	}
	data, ok := form.Get(st)
	if !ok {
		t.Fatal("form not attached")
	}
	if data.Title != "Voice request" {
		t.Errorf("wrong title: %q", data.Title)
	}
	if v, _ := data.Get("muc#role"); v != "participant" {
		t.Errorf("wrong value: %q", v)
	}
}

func TestClone(t *testing.T) {
	d := &form.Data{
		Instructions: []string{"Fill out this form"},
		Fields: []form.Field{{
			Var:     "features",
			Type:    form.TypeListMulti,
			Values:  []string{"news"},
			Options: []form.ListItem{{Label: "News", Value: "news"}},
		}},
		Reported: []form.Field{{Var: "jid"}},
		Items:    [][]form.Field{{{Var: "jid", Values: []string{"juliet@capulet.lit"}}}},
	}
	c := d.Clone().(*form.Data)
	c.Instructions[0] = ""
	c.Fields[0].Values[0] = "search"
	c.Fields[0].Options[0].Label = "Search"
	c.Reported[0].Var = "nick"
	c.Items[0][0].Values[0] = "romeo@montague.lit"
	switch {
	case d.Instructions[0] != "Fill out this form":
		t.Errorf("clone shares instructions with the original")
	case d.Fields[0].Values[0] != "news", d.Fields[0].Options[0].Label != "News":
		t.Errorf("clone shares fields with the original: %+v", d.Fields)
	case d.Reported[0].Var != "jid":
		t.Errorf("clone shares reported fields with the original: %+v", d.Reported)
	case d.Items[0][0].Values[0] != "juliet@capulet.lit":
		t.Errorf("clone shares items with the original: %+v", d.Items)
	}
}
