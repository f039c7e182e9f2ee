// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package commands implements executable ad-hoc commands.
//
// A Manager advertises the commands offered by registered providers, passes
// incoming requests to them, and lets the local entity list and execute the
// commands offered by others.
// Providers are responsible for their own multi-stage session state: the
// manager only remembers which request each response belongs to.
package commands // import "mellium.im/jabberkit/commands"

import (
	"encoding/xml"
	"slices"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// NS is the namespace used by commands, provided as a convenience.
const NS = `http://jabber.org/protocol/commands`

// Command is the payload of command requests and responses.
type Command struct {
	Node      string
	SessionID string
	Action    Action
	Status    Status

	// Actions lists the actions allowed in the next stage of an executing
	// command.
	Actions Actions
	Notes   []Note
	Form    *form.Data
}

// Kind satisfies ext.Extension.
func (*Command) Kind() ext.Kind { return ext.KindAdhoc }

// Clone satisfies ext.Extension.
func (c *Command) Clone() ext.Extension {
	cmd := *c
	cmd.Notes = slices.Clone(c.Notes)
	if c.Form != nil {
		cmd.Form = c.Form.Copy()
	}
	return &cmd
}

// TokenReader satisfies the xmlstream.Marshaler interface.
// It returns nil if the node is empty or the action or status is invalid.
func (c *Command) TokenReader() xml.TokenReader {
	if c.Node == "" || c.Action == ActionInvalid || c.Status == StatusInvalid {
		return nil
	}
	attrs := []xml.Attr{ext.Attr("node", c.Node)}
	if c.SessionID != "" {
		attrs = append(attrs, ext.Attr("sessionid", c.SessionID))
	}
	if c.Action != ActionNone {
		attrs = append(attrs, ext.Attr("action", c.Action.String()))
	}
	if c.Status != StatusNone {
		attrs = append(attrs, ext.Attr("status", c.Status.String()))
	}

	var inner []xml.TokenReader
	if c.Actions != 0 {
		inner = append(inner, c.Actions.TokenReader())
	}
	for _, n := range c.Notes {
		inner = append(inner, n.TokenReader())
	}
	if c.Form != nil {
		inner = append(inner, c.Form.TokenReader())
	}

	return xmlstream.Wrap(
		ext.Readers(inner...),
		xml.StartElement{
			Name: xml.Name{Space: NS, Local: "command"},
			Attr: attrs,
		},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (c *Command) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	r := c.TokenReader()
	if r == nil {
		return 0, nil
	}
	return xmlstream.Copy(w, r)
}

// MarshalXML implements xml.Marshaler.
func (c *Command) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := c.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
// Unknown actions and statuses result in ActionInvalid and StatusInvalid.
func (c *Command) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Node      string     `xml:"node,attr"`
		SessionID string     `xml:"sessionid,attr"`
		Action    string     `xml:"action,attr"`
		Status    string     `xml:"status,attr"`
		Actions   *Actions   `xml:"actions"`
		Notes     []Note     `xml:"note"`
		Form      *form.Data `xml:"jabber:x:data x"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*c = Command{
		Node:      s.Node,
		SessionID: s.SessionID,
		Action:    parseAction(s.Action),
		Status:    parseStatus(s.Status),
		Form:      s.Form,
	}
	if s.Actions != nil {
		c.Actions = *s.Actions
	}
	for _, n := range s.Notes {
		if n.Type != NoteInvalid {
			c.Notes = append(c.Notes, n)
		}
	}
	return nil
}

// Prototype parses commands in IQs.
var Prototype ext.Prototype = ext.Decode[Command](ext.KindAdhoc, "/iq/command[@xmlns='"+NS+"']")
