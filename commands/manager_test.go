// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/commands"
	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/internal/xmpptest"
)

type request struct {
	from jid.JID
	cmd  *commands.Command
	sess string
}

type provider struct {
	m       *commands.Manager
	hidden  string
	respond func(r request) *commands.Command
	reqs    []request
}

func (p *provider) HandleAdhocCommand(from jid.JID, cmd *commands.Command, sess string) {
	r := request{from: from, cmd: cmd, sess: sess}
	p.reqs = append(p.reqs, r)
	if p.respond == nil {
		return
	}
	if resp := p.respond(r); resp != nil {
		if err := p.m.Respond(resp, nil); err != nil {
			panic(err)
		}
	}
}

func (p *provider) HandleAdhocAccessRequest(_ jid.JID, node string) bool {
	return node != p.hidden
}

type handler struct {
	support  []bool
	commands [][]disco.Item
	results  []*commands.Command
	errs     []stanza.Error
	contexts []int
}

func (h *handler) HandleAdhocSupport(_ jid.JID, support bool, context int) {
	h.support = append(h.support, support)
	h.contexts = append(h.contexts, context)
}
func (h *handler) HandleAdhocCommands(_ jid.JID, items []disco.Item, context int) {
	h.commands = append(h.commands, items)
	h.contexts = append(h.contexts, context)
}
func (h *handler) HandleAdhocExecutionResult(_ jid.JID, cmd *commands.Command, context int) {
	h.results = append(h.results, cmd)
	h.contexts = append(h.contexts, context)
}
func (h *handler) HandleAdhocError(_ jid.JID, err stanza.Error, context int) {
	h.errs = append(h.errs, err)
	h.contexts = append(h.contexts, context)
}

func newManager() (*commands.Manager, *dispatch.Dispatcher, *xmpptest.Recorder) {
	rec := &xmpptest.Recorder{}
	n := 0
	d := dispatch.New(rec, dispatch.IDFunc(func() string {
		n++
		return "id" + strconv.Itoa(n)
	}))
	return commands.NewManager(disco.New(d)), d, rec
}

func feed(t *testing.T, d *dispatch.Dispatcher, s string) string {
	t.Helper()
	out, err := xmpptest.Feed(d, s)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func lastID(t *testing.T, d *dispatch.Dispatcher, rec *xmpptest.Recorder) string {
	t.Helper()
	st, err := xmpptest.Parse(d.Registry(), rec.Last())
	if err != nil {
		t.Fatal(err)
	}
	return st.ID
}

const execHello = `<iq type="set" id="exec1" from="requester@example.com/balcony" to="responder@example.com/home"><command xmlns="http://jabber.org/protocol/commands" node="helloworld" action="execute"/></iq>`

func TestExecuteIncoming(t *testing.T) {
	m, d, _ := newManager()
	p := &provider{m: m, respond: func(r request) *commands.Command {
		return &commands.Command{
			Node:      r.cmd.Node,
			SessionID: r.sess,
			Status:    commands.StatusCompleted,
			Notes:     []commands.Note{{Value: "Hello, World!"}},
		}
	}}
	m.RegisterProvider("helloworld", "Hello World", p)

	out := feed(t, d, execHello)
	if len(p.reqs) != 1 || p.reqs[0].sess != "id1" || p.reqs[0].from.String() != "requester@example.com/balcony" {
		t.Fatalf("wrong requests: %+v", p.reqs)
	}
	for _, want := range []string{
		`type="result"`,
		`id="exec1"`,
		`to="requester@example.com/balcony"`,
		`<command xmlns="http://jabber.org/protocol/commands" node="helloworld" sessionid="id1" status="completed"><note type="info">Hello, World!</note></command>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("response %s does not contain %s", out, want)
		}
	}

	err := m.Respond(&commands.Command{Node: "helloworld", SessionID: "id1", Status: commands.StatusCompleted}, nil)
	if !errors.Is(err, commands.ErrUnknownSession) {
		t.Errorf("completed session should be forgotten: %v", err)
	}
}

func TestMultiStage(t *testing.T) {
	m, d, rec := newManager()
	p := &provider{m: m}
	m.RegisterProvider("config", "Configure Service", p)

	feed(t, d, `<iq type="set" id="exec1" from="requester@example.com/balcony"><command xmlns="http://jabber.org/protocol/commands" node="config"/></iq>`)
	if len(p.reqs) != 1 || p.reqs[0].cmd.Action != commands.ActionNone {
		t.Fatalf("wrong requests: %+v", p.reqs)
	}
	sess := p.reqs[0].sess

	err := m.Respond(&commands.Command{
		Node:      "config",
		SessionID: sess,
		Status:    commands.StatusExecuting,
		Actions:   commands.Next.WithDefault(commands.Next),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `id="exec1"`) || !strings.Contains(out, `<actions execute="next"><next></next></actions>`) {
		t.Errorf("wrong first stage response: %s", out)
	}

	feed(t, d, `<iq type="set" id="exec2" from="requester@example.com/balcony"><command xmlns="http://jabber.org/protocol/commands" node="config" sessionid="`+sess+`" action="cancel"/></iq>`)
	if len(p.reqs) != 2 || p.reqs[1].sess != sess || p.reqs[1].cmd.Action != commands.ActionCancel {
		t.Fatalf("wrong second request: %+v", p.reqs)
	}
	err = m.Respond(&commands.Command{Node: "config", SessionID: sess, Status: commands.StatusCanceled}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `id="exec2"`) || !strings.Contains(out, `status="canceled"`) {
		t.Errorf("wrong cancel response: %s", out)
	}
}

func TestRespondError(t *testing.T) {
	m, d, rec := newManager()
	p := &provider{m: m}
	m.RegisterProvider("config", "Configure Service", p)
	feed(t, d, `<iq type="set" id="exec1" from="requester@example.com/balcony"><command xmlns="http://jabber.org/protocol/commands" node="config" action="execute"/></iq>`)

	se := stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	if err := m.Respond(&commands.Command{SessionID: p.reqs[0].sess}, &se); err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `type="error"`) || !strings.Contains(out, `<bad-request`) {
		t.Errorf("wrong error response: %s", out)
	}
	if err := m.Respond(&commands.Command{SessionID: p.reqs[0].sess}, &se); !errors.Is(err, commands.ErrUnknownSession) {
		t.Errorf("session should be forgotten after an error: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	m, d, _ := newManager()
	m.RegisterProvider("helloworld", "Hello World", &provider{m: m})
	m.RemoveProvider("helloworld")

	out := feed(t, d, execHello)
	if !strings.Contains(out, `type="error"`) || !strings.Contains(out, `<item-not-found`) {
		t.Errorf("wrong response: %s", out)
	}
}

func TestListCommands(t *testing.T) {
	m, d, _ := newManager()
	p := &provider{m: m, hidden: "shutdown"}
	m.RegisterProvider("helloworld", "Hello World", p)
	m.RegisterProvider("shutdown", "Shut Down Service", p)
	m.RegisterProvider("config", "Configure Service", p)

	out := feed(t, d, `<iq type="get" id="list1" from="requester@example.com/balcony" to="responder@example.com/home"><query xmlns="http://jabber.org/protocol/disco#items" node="http://jabber.org/protocol/commands"/></iq>`)
	const want = `<item jid="responder@example.com/home" node="helloworld" name="Hello World"></item><item jid="responder@example.com/home" node="config" name="Configure Service"></item>`
	if !strings.Contains(out, want) {
		t.Errorf("wrong command list: %s", out)
	}

	out = feed(t, d, `<iq type="get" id="info1" from="requester@example.com/balcony"><query xmlns="http://jabber.org/protocol/disco#info" node="config"/></iq>`)
	for _, want := range []string{
		`<identity category="automation" type="command-node" name="Configure Service"></identity>`,
		`<feature var="http://jabber.org/protocol/commands"></feature>`,
		`<feature var="jabber:x:data"></feature>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("info %s does not contain %s", out, want)
		}
	}

	out = feed(t, d, `<iq type="get" id="info2" from="requester@example.com/balcony"><query xmlns="http://jabber.org/protocol/disco#info"/></iq>`)
	if !strings.Contains(out, `<feature var="http://jabber.org/protocol/commands"></feature>`) {
		t.Errorf("commands feature not advertised: %s", out)
	}
}

func TestExecuteOutgoing(t *testing.T) {
	m, d, rec := newManager()
	h := &handler{}
	ctx := context.Background()
	responder := jid.MustParse("responder@example.com/home")

	if err := m.Execute(ctx, responder, &commands.Command{Action: commands.ActionExecute}, h, 1); !errors.Is(err, commands.ErrInvalidCommand) {
		t.Fatalf("command without node should not be sent: %v", err)
	}
	if rec.Len() != 0 {
		t.Fatalf("nothing should be sent: %v", rec.Sent())
	}

	if err := m.Execute(ctx, responder, &commands.Command{Node: "helloworld", Action: commands.ActionExecute}, h, 1); err != nil {
		t.Fatal(err)
	}
	out := rec.Last()
	if !strings.Contains(out, `type="set"`) || !strings.Contains(out, `<command xmlns="http://jabber.org/protocol/commands" node="helloworld" action="execute"></command>`) {
		t.Errorf("wrong request: %s", out)
	}
	id := lastID(t, d, rec)
	reply := `<iq type="result" id="` + id + `" from="responder@example.com/home"><command xmlns="http://jabber.org/protocol/commands" node="helloworld" sessionid="s1" status="completed"/></iq>`
	feed(t, d, reply)
	feed(t, d, reply)
	if len(h.results) != 1 || h.results[0].Status != commands.StatusCompleted || h.results[0].SessionID != "s1" || h.contexts[0] != 1 {
		t.Fatalf("wrong results: %+v %v", h.results, h.contexts)
	}

	if err := m.Execute(ctx, responder, &commands.Command{Node: "shutdown"}, h, 2); err != nil {
		t.Fatal(err)
	}
	feed(t, d, `<iq type="error" id="`+lastID(t, d, rec)+`" from="responder@example.com/home"><error type="auth"><forbidden xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if len(h.errs) != 1 || h.errs[0].Condition != stanza.Forbidden || h.contexts[1] != 2 {
		t.Errorf("wrong errors: %+v", h.errs)
	}

	if err := m.Execute(ctx, responder, &commands.Command{Node: "helloworld"}, h, 3); err != nil {
		t.Fatal(err)
	}
	m.RemoveHandler(h)
	feed(t, d, `<iq type="result" id="`+lastID(t, d, rec)+`" from="responder@example.com/home"><command xmlns="http://jabber.org/protocol/commands" node="helloworld" status="completed"/></iq>`)
	if len(h.results) != 1 {
		t.Errorf("removed handler should not be called")
	}
}

func TestCheckSupportAndList(t *testing.T) {
	m, d, rec := newManager()
	h := &handler{}
	ctx := context.Background()
	responder := jid.MustParse("responder@example.com/home")

	if err := m.CheckSupport(ctx, responder, h, 1); err != nil {
		t.Fatal(err)
	}
	feed(t, d, `<iq type="result" id="`+lastID(t, d, rec)+`" from="responder@example.com/home"><query xmlns="http://jabber.org/protocol/disco#info"><feature var="http://jabber.org/protocol/commands"/></query></iq>`)
	if err := m.CheckSupport(ctx, responder, h, 2); err != nil {
		t.Fatal(err)
	}
	feed(t, d, `<iq type="error" id="`+lastID(t, d, rec)+`" from="responder@example.com/home"><error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	if len(h.support) != 2 || !h.support[0] || h.support[1] {
		t.Errorf("wrong support results: %v", h.support)
	}

	if err := m.GetCommands(ctx, responder, h, 3); err != nil {
		t.Fatal(err)
	}
	if out := rec.Last(); !strings.Contains(out, `<query xmlns="http://jabber.org/protocol/disco#items" node="http://jabber.org/protocol/commands"></query>`) {
		t.Errorf("wrong list request: %s", out)
	}
	feed(t, d, `<iq type="result" id="`+lastID(t, d, rec)+`" from="responder@example.com/home"><query xmlns="http://jabber.org/protocol/disco#items" node="http://jabber.org/protocol/commands"><item jid="responder@example.com/home" node="helloworld" name="Hello World"/></query></iq>`)
	if len(h.commands) != 1 || len(h.commands[0]) != 1 || h.commands[0][0].Node != "helloworld" {
		t.Errorf("wrong commands: %+v", h.commands)
	}
}

func TestClose(t *testing.T) {
	m, d, _ := newManager()
	p := &provider{m: m}
	m.RegisterProvider("helloworld", "Hello World", p)
	m.Close()
	out := feed(t, d, execHello)
	if len(p.reqs) != 0 || !strings.Contains(out, `<service-unavailable`) {
		t.Errorf("closed manager should not handle commands: %s", out)
	}
}
