// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"slices"
	"strconv"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/jabberkit/ext"
)

func jidAttr(local string, j jid.JID) xml.Attr {
	if j.Equal(jid.JID{}) {
		return xml.Attr{}
	}
	return ext.Attr(local, j.String())
}

// element wraps children in an unqualified element.
// Attributes without a name or value are omitted.
func element(local string, children xml.TokenReader, attr ...xml.Attr) xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Local: local}}
	for _, a := range attr {
		if a.Name.Local != "" && a.Value != "" {
			start.Attr = append(start.Attr, a)
		}
	}
	return xmlstream.Wrap(children, start)
}

// parseJID returns the zero JID for empty or invalid input.
func parseJID(s string) jid.JID {
	if s == "" {
		return jid.JID{}
	}
	j, err := jid.Parse(s)
	if err != nil {
		return jid.JID{}
	}
	return j
}

// Item describes an occupant in a presence or in a moderation list.
// The zero values of Affiliation and Role are none; use AffiliationInvalid and
// RoleInvalid to leave them out of the serialized item.
type Item struct {
	Affiliation Affiliation
	Role        Role
	Nick        string
	JID         jid.JID
	Actor       jid.JID
	ActorNick   string
	Reason      string
	Continue    bool
	Thread      string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (i Item) TokenReader() xml.TokenReader {
	affiliation, _ := i.Affiliation.MarshalXMLAttr(xml.Name{Local: "affiliation"})
	role, _ := i.Role.MarshalXMLAttr(xml.Name{Local: "role"})

	var actor, cont xml.TokenReader
	if !i.Actor.Equal(jid.JID{}) || i.ActorNick != "" {
		actor = element("actor", nil, jidAttr("jid", i.Actor), ext.Attr("nick", i.ActorNick))
	}
	if i.Continue {
		cont = element("continue", nil, ext.Attr("thread", i.Thread))
	}
	return element("item",
		ext.Readers(actor, ext.Text("reason", i.Reason), cont),
		affiliation, jidAttr("jid", i.JID), ext.Attr("nick", i.Nick), role,
	)
}

type itemXML struct {
	Affiliation string `xml:"affiliation,attr"`
	Role        string `xml:"role,attr"`
	Nick        string `xml:"nick,attr"`
	JID         string `xml:"jid,attr"`
	Actor       *struct {
		JID  string `xml:"jid,attr"`
		Nick string `xml:"nick,attr"`
	} `xml:"actor"`
	Reason   string `xml:"reason"`
	Continue *struct {
		Thread string `xml:"thread,attr"`
	} `xml:"continue"`
}

func (x itemXML) item() Item {
	i := Item{
		Affiliation: parseAffiliation(x.Affiliation),
		Role:        parseRole(x.Role),
		Nick:        x.Nick,
		JID:         parseJID(x.JID),
		Reason:      x.Reason,
	}
	if x.Actor != nil {
		i.Actor = parseJID(x.Actor.JID)
		i.ActorNick = x.Actor.Nick
	}
	if x.Continue != nil {
		i.Continue = true
		i.Thread = x.Continue.Thread
	}
	return i
}

func convertItems(in []itemXML) []Item {
	if len(in) == 0 {
		return nil
	}
	out := make([]Item, 0, len(in))
	for _, x := range in {
		out = append(out, x.item())
	}
	return out
}

func itemsReader(items []Item) xml.TokenReader {
	r := make([]xml.TokenReader, 0, len(items))
	for _, i := range items {
		r = append(r, i.TokenReader())
	}
	return ext.Readers(r...)
}

// Invite is a mediated invitation.
// When sending an invitation only To is used, the room fills in From.
type Invite struct {
	From     jid.JID
	To       jid.JID
	Reason   string
	Continue bool
	Thread   string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (i Invite) TokenReader() xml.TokenReader {
	var cont xml.TokenReader
	if i.Continue {
		cont = element("continue", nil, ext.Attr("thread", i.Thread))
	}
	return element("invite",
		ext.Readers(ext.Text("reason", i.Reason), cont),
		jidAttr("from", i.From), jidAttr("to", i.To),
	)
}

// Decline is a declined mediated invitation.
type Decline struct {
	From   jid.JID
	To     jid.JID
	Reason string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (dec Decline) TokenReader() xml.TokenReader {
	return element("decline",
		ext.Text("reason", dec.Reason),
		jidAttr("from", dec.From), jidAttr("to", dec.To),
	)
}

// Destroy is sent by an owner to destroy a room and by the room to inform the
// occupants.
// JID optionally names an alternate venue.
type Destroy struct {
	JID      jid.JID
	Reason   string
	Password string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (dst Destroy) TokenReader() xml.TokenReader {
	return element("destroy",
		ext.Readers(ext.Text("reason", dst.Reason), ext.Text("password", dst.Password)),
		jidAttr("jid", dst.JID),
	)
}

type destroyXML struct {
	JID      string `xml:"jid,attr"`
	Reason   string `xml:"reason"`
	Password string `xml:"password"`
}

func (x *destroyXML) destroy() *Destroy {
	if x == nil {
		return nil
	}
	return &Destroy{JID: parseJID(x.JID), Reason: x.Reason, Password: x.Password}
}

// User is the occupant information that a room attaches to presence and
// messages.
// It also carries mediated invitations and declines.
type User struct {
	Items    []Item
	Status   []int
	Invites  []Invite
	Decline  *Decline
	Destroy  *Destroy
	Password string
}

// Kind satisfies ext.Extension.
func (*User) Kind() ext.Kind { return ext.KindMUCUser }

// Clone satisfies ext.Extension.
func (u *User) Clone() ext.Extension {
	c := *u
	c.Items = slices.Clone(u.Items)
	c.Status = slices.Clone(u.Status)
	c.Invites = slices.Clone(u.Invites)
	if u.Decline != nil {
		dec := *u.Decline
		c.Decline = &dec
	}
	if u.Destroy != nil {
		dst := *u.Destroy
		c.Destroy = &dst
	}
	return &c
}

// HasStatus reports whether the status code is present.
func (u *User) HasStatus(code int) bool {
	return slices.Contains(u.Status, code)
}

// Flags returns the user flags that the status codes and the destroy element
// indicate.
func (u *User) Flags() UserFlags {
	var f UserFlags
	for _, code := range u.Status {
		uf, _ := statusFlags(code)
		f |= uf
	}
	if u.Destroy != nil {
		f |= UserRoomDestroyed
	}
	return f
}

// RoomFlags returns the room flags that the status codes announce.
func (u *User) RoomFlags() RoomFlags {
	var f RoomFlags
	for _, code := range u.Status {
		_, rf := statusFlags(code)
		f = f.merge(rf)
	}
	return f
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (u *User) TokenReader() xml.TokenReader {
	r := []xml.TokenReader{itemsReader(u.Items)}
	for _, code := range u.Status {
		r = append(r, element("status", nil, ext.Attr("code", strconv.Itoa(code))))
	}
	for _, i := range u.Invites {
		r = append(r, i.TokenReader())
	}
	if u.Decline != nil {
		r = append(r, u.Decline.TokenReader())
	}
	if u.Destroy != nil {
		r = append(r, u.Destroy.TokenReader())
	}
	r = append(r, ext.Text("password", u.Password))
	return xmlstream.Wrap(
		ext.Readers(r...),
		xml.StartElement{Name: xml.Name{Space: NSUser, Local: "x"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (u *User) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, u.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (u *User) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := u.WriteXML(e)
	return err
}

type partyXML struct {
	From     string `xml:"from,attr"`
	To       string `xml:"to,attr"`
	Reason   string `xml:"reason"`
	Continue *struct {
		Thread string `xml:"thread,attr"`
	} `xml:"continue"`
}

// UnmarshalXML implements xml.Unmarshaler.
func (u *User) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		Items  []itemXML `xml:"item"`
		Status []struct {
			Code string `xml:"code,attr"`
		} `xml:"status"`
		Invites  []partyXML  `xml:"invite"`
		Decline  *partyXML   `xml:"decline"`
		Destroy  *destroyXML `xml:"destroy"`
		Password string      `xml:"password"`
	}{}
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*u = User{
		Items:    convertItems(s.Items),
		Destroy:  s.Destroy.destroy(),
		Password: s.Password,
	}
	for _, st := range s.Status {
		code, err := strconv.Atoi(st.Code)
		if err != nil {
			continue
		}
		u.Status = append(u.Status, code)
	}
	for _, inv := range s.Invites {
		i := Invite{From: parseJID(inv.From), To: parseJID(inv.To), Reason: inv.Reason}
		if inv.Continue != nil {
			i.Continue = true
			i.Thread = inv.Continue.Thread
		}
		u.Invites = append(u.Invites, i)
	}
	if s.Decline != nil {
		u.Decline = &Decline{From: parseJID(s.Decline.From), To: parseJID(s.Decline.To), Reason: s.Decline.Reason}
	}
	return nil
}

// item returns the first item, or an item with invalid affiliation and role if
// there is none.
func (u *User) item() Item {
	if len(u.Items) == 0 {
		return Item{Affiliation: AffiliationInvalid, Role: RoleInvalid}
	}
	return u.Items[0]
}
