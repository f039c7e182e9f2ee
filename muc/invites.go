// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
)

// DirectInvite is an invitation sent directly to the invitee instead of
// through the room.
type DirectInvite struct {
	Room     jid.JID
	Password string
	Reason   string
	Continue bool
	Thread   string
}

// Kind satisfies ext.Extension.
func (*DirectInvite) Kind() ext.Kind { return ext.KindConference }

// Clone satisfies ext.Extension.
func (i *DirectInvite) Clone() ext.Extension {
	c := *i
	return &c
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (i *DirectInvite) TokenReader() xml.TokenReader {
	attr := []xml.Attr{ext.Attr("jid", i.Room.String())}
	if i.Continue {
		attr = append(attr, ext.Attr("continue", "true"))
		if i.Thread != "" {
			attr = append(attr, ext.Attr("thread", i.Thread))
		}
	}
	if i.Password != "" {
		attr = append(attr, ext.Attr("password", i.Password))
	}
	if i.Reason != "" {
		attr = append(attr, ext.Attr("reason", i.Reason))
	}
	return xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Space: NSConf, Local: "x"}, Attr: attr},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (i *DirectInvite) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, i.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (i *DirectInvite) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := i.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (i *DirectInvite) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Continue bool    `xml:"continue,attr"`
		JID      jid.JID `xml:"jid,attr"`
		Pass     string  `xml:"password,attr"`
		Reason   string  `xml:"reason,attr"`
		Thread   string  `xml:"thread,attr"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*i = DirectInvite{
		Room:     s.JID,
		Password: s.Pass,
		Reason:   s.Reason,
		Continue: s.Continue,
		Thread:   s.Thread,
	}
	return nil
}

// SendDirectInvite sends a direct invitation to the room named in invite.
// This is useful when a mediated invitation (one sent through the room using
// the Room.Invite method) is being blocked by a user that does not allow contact
// from unrecognized JIDs.
func SendDirectInvite(ctx context.Context, s dispatch.Sender, to jid.JID, invite DirectInvite) error {
	return s.Send(ctx, stanza.Message{
		To:   to,
		Type: stanza.NormalMessage,
	}.Wrap(invite.TokenReader()))
}

// DeclineInvitation declines a mediated invitation to room that was sent by
// invitor.
func DeclineInvitation(ctx context.Context, s dispatch.Sender, room, invitor jid.JID, reason string) error {
	u := &User{Decline: &Decline{To: invitor, Reason: reason}}
	return s.Send(ctx, stanza.Message{
		To:   room.Bare(),
		Type: stanza.NormalMessage,
	}.Wrap(u.TokenReader()))
}

// Invitation is a mediated or direct invitation that was received.
type Invitation struct {
	// Room is the room that the invitation is for.
	Room jid.JID

	// From is the entity that sent the invitation.
	// For mediated invitations it is the address of the invitor as reported by
	// the room.
	From jid.JID

	Reason   string
	Body     string
	Password string
	Continue bool
	Thread   string
	Direct   bool
}

// InvitationHandler is called when an invitation is received.
type InvitationHandler interface {
	HandleMUCInvitation(inv Invitation)
}

// InvitationManager delivers invitations from messages that are not handled by
// a joined Room.
type InvitationManager struct {
	d *dispatch.Dispatcher
	h InvitationHandler
}

// NewInvitationManager registers an InvitationManager with d that delivers
// invitations to h.
func NewInvitationManager(d *dispatch.Dispatcher, h InvitationHandler) *InvitationManager {
	registerExtensions(d)
	m := &InvitationManager{d: d, h: h}
	d.RegisterMessageHandler(jid.JID{}, m)
	return m
}

// HandleMessage implements dispatch.MessageHandler.
func (m *InvitationManager) HandleMessage(st *ext.Stanza) {
	if stanza.MessageType(st.Type) == stanza.ErrorMessage {
		return
	}
	if u, ok := st.Extension(ext.KindMUCUser).(*User); ok && len(u.Invites) > 0 {
		inv := u.Invites[0]
		m.h.HandleMUCInvitation(Invitation{
			Room:     st.From.Bare(),
			From:     inv.From,
			Reason:   inv.Reason,
			Body:     st.Body,
			Password: u.Password,
			Continue: inv.Continue,
			Thread:   inv.Thread,
		})
		return
	}
	if di, ok := st.Extension(ext.KindConference).(*DirectInvite); ok {
		m.h.HandleMUCInvitation(Invitation{
			Room:     di.Room,
			From:     st.From,
			Reason:   di.Reason,
			Body:     st.Body,
			Password: di.Password,
			Continue: di.Continue,
			Thread:   di.Thread,
			Direct:   true,
		})
	}
}

// Decline declines an invitation received by the manager.
// Direct invitations cannot be declined and nothing is sent for them.
func (m *InvitationManager) Decline(ctx context.Context, inv Invitation, reason string) error {
	if inv.Direct {
		return nil
	}
	return DeclineInvitation(ctx, m.d, inv.Room, inv.From, reason)
}

// Close unregisters the manager from its dispatcher.
func (m *InvitationManager) Close() {
	m.d.RemoveMessageHandler(jid.JID{}, m)
}
