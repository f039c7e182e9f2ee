// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"errors"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/secure/precis"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/delay"
	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

var errNoNick = errors.New("muc: room address has no nickname")

// Room is the local entity's view of a single room.
//
// Joining is optimistic: the room is considered joined as soon as the join
// presence is sent.
// It is left again when the server answers with an error, when the local user
// is removed from the room, or when Leave is called.
type Room struct {
	d      *dispatch.Dispatcher
	h      RoomHandler
	config ConfigHandler
	disco  *disco.Disco
	join   Join

	mu              sync.Mutex
	addr            jid.JID
	newNick         string
	joined          bool
	creationPending bool
	affiliation     Affiliation
	role            Role
	flags           RoomFlags
	occupants       map[string]Participant
	publish         bool
	publishNick     bool
}

// NewRoom returns a room that is not yet joined.
// The resourcepart of addr is the nickname to use in the room.
// It is prepared using the PRECIS Nickname profile.
//
// The handler h must not be nil.
func NewRoom(d *dispatch.Dispatcher, addr jid.JID, h RoomHandler, opts ...Option) (*Room, error) {
	addr, err := nickAddr(addr, addr.Resourcepart())
	if err != nil {
		return nil, err
	}
	registerExtensions(d)
	r := &Room{
		d:    d,
		h:    h,
		addr: addr,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func nickAddr(room jid.JID, nick string) (jid.JID, error) {
	n, err := precis.Nickname.String(nick)
	if err != nil {
		return jid.JID{}, err
	}
	if n == "" {
		return jid.JID{}, errNoNick
	}
	return jid.New(room.Localpart(), room.Domainpart(), n)
}

// Name returns the localpart of the room address.
func (r *Room) Name() string {
	return r.Addr().Localpart()
}

// Service returns the address of the service that hosts the room.
func (r *Room) Service() jid.JID {
	return r.Addr().Domain()
}

// Nick returns the nickname of the local user in the room.
func (r *Room) Nick() string {
	return r.Addr().Resourcepart()
}

// Addr returns the address of the local user in the room.
func (r *Room) Addr() jid.JID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// Joined reports whether the room is joined.
func (r *Room) Joined() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joined
}

// CreationPending reports whether the room was created by joining it and has
// not been configured yet.
func (r *Room) CreationPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creationPending
}

// Affiliation returns the affiliation of the local user.
func (r *Room) Affiliation() Affiliation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.affiliation
}

// Role returns the role of the local user.
func (r *Room) Role() Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

// Flags returns the room flags learned so far.
func (r *Room) Flags() RoomFlags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags
}

// Occupants returns the occupants of the room sorted by nickname.
func (r *Room) Occupants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	nicks := slices.Sorted(maps.Keys(r.occupants))
	out := make([]Participant, 0, len(nicks))
	for _, n := range nicks {
		out = append(out, r.occupants[n])
	}
	return out
}

func presenceChildren(show, status string, priority int) xml.TokenReader {
	var prio xml.TokenReader
	if priority != 0 {
		prio = ext.Text("priority", strconv.Itoa(priority))
	}
	return ext.Readers(ext.Text("show", show), ext.Text("status", status), prio)
}

// Join enters the room.
// Joining a room that is already joined does nothing.
func (r *Room) Join(ctx context.Context, show, status string, priority int) error {
	r.mu.Lock()
	if r.joined {
		r.mu.Unlock()
		return nil
	}
	r.joined = true
	r.occupants = make(map[string]Participant)
	addr := r.addr
	r.mu.Unlock()

	r.d.RegisterPresenceHandler(addr, r)
	r.d.RegisterMessageHandler(addr, r)
	if r.disco != nil {
		r.disco.RegisterNodeHandler(NSRooms, r)
	}
	err := r.d.Send(ctx, stanza.Presence{To: addr}.Wrap(ext.Readers(
		r.join.TokenReader(),
		presenceChildren(show, status, priority),
	)))
	if err != nil {
		r.reset()
		return err
	}
	return nil
}

// Leave exits the room with an optional status message.
// Leaving a room that is not joined does nothing.
func (r *Room) Leave(ctx context.Context, msg string) error {
	r.mu.Lock()
	joined, addr := r.joined, r.addr
	r.mu.Unlock()
	if !joined {
		return nil
	}
	r.reset()
	return r.d.Send(ctx, stanza.Presence{
		To:   addr,
		Type: stanza.UnavailablePresence,
	}.Wrap(ext.Text("status", msg)))
}

// reset returns the room to the not joined state and unregisters it.
func (r *Room) reset() {
	r.mu.Lock()
	addr := r.addr
	r.joined = false
	r.creationPending = false
	r.newNick = ""
	r.occupants = nil
	r.affiliation = AffiliationNone
	r.role = RoleNone
	r.mu.Unlock()

	r.d.RemovePresenceHandler(addr, r)
	r.d.RemoveMessageHandler(addr, r)
	if r.disco != nil {
		r.disco.RemoveNodeHandler(NSRooms, r)
	}
}

// Close leaves the room without notifying it and forgets all pending requests.
func (r *Room) Close() {
	r.reset()
	r.d.RemoveIDHandler(r)
	if r.disco != nil {
		r.disco.RemoveDiscoHandler(r)
	}
}

func (r *Room) joinedAddr() (jid.JID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.joined {
		return jid.JID{}, ErrNotJoined
	}
	return r.addr, nil
}

func (r *Room) sendMessage(ctx context.Context, typ stanza.MessageType, payload xml.TokenReader) error {
	return r.d.Send(ctx, stanza.Message{
		To:   r.Addr().Bare(),
		Type: typ,
	}.Wrap(payload))
}

// Send sends a message to all occupants.
func (r *Room) Send(ctx context.Context, body string) error {
	if _, err := r.joinedAddr(); err != nil {
		return err
	}
	return r.sendMessage(ctx, stanza.GroupChatMessage, ext.Text("body", body))
}

// SetSubject changes the subject of the room.
// An empty subject clears it.
func (r *Room) SetSubject(ctx context.Context, subject string) error {
	if _, err := r.joinedAddr(); err != nil {
		return err
	}
	payload := ext.Text("subject", subject)
	if subject == "" {
		payload = ext.Element(xml.Name{Local: "subject"})
	}
	return r.sendMessage(ctx, stanza.GroupChatMessage, payload)
}

// SetNick changes the nickname of the local user.
//
// If the room is joined the change is requested from the room and only takes
// effect once the room confirms it.
// Otherwise the nickname used for the next join is changed immediately.
func (r *Room) SetNick(ctx context.Context, nick string) error {
	r.mu.Lock()
	addr, err := nickAddr(r.addr, nick)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if !r.joined {
		r.addr = addr
		r.mu.Unlock()
		return nil
	}
	r.newNick = addr.Resourcepart()
	r.mu.Unlock()
	return r.d.Send(ctx, stanza.Presence{To: addr}.Wrap(nil))
}

// SetPresence updates the presence of the local user in the room.
func (r *Room) SetPresence(ctx context.Context, show, status string) error {
	addr, err := r.joinedAddr()
	if err != nil {
		return err
	}
	return r.d.Send(ctx, stanza.Presence{To: addr}.Wrap(presenceChildren(show, status, 0)))
}

// Invite sends a mediated invitation through the room.
// If thread is not empty the invitee is asked to continue that one to one
// discussion in the room.
func (r *Room) Invite(ctx context.Context, invitee jid.JID, reason, thread string) error {
	if _, err := r.joinedAddr(); err != nil {
		return err
	}
	u := &User{
		Invites: []Invite{{
			To:       invitee,
			Reason:   reason,
			Continue: thread != "",
			Thread:   thread,
		}},
		Password: r.join.Password,
	}
	return r.sendMessage(ctx, stanza.NormalMessage, u.TokenReader())
}

// RequestVoice asks the moderators to grant the participant role to the local
// user.
func (r *Room) RequestVoice(ctx context.Context) error {
	if _, err := r.joinedAddr(); err != nil {
		return err
	}
	f := form.New(
		form.Submit,
		form.FormType(NSRequest),
		form.Text("muc#role", form.Value(RoleParticipant.String()), form.Label("Requested role")),
	)
	return r.sendMessage(ctx, stanza.NormalMessage, f.TokenReader())
}

// AddHistory adds a message to the discussion history of the room as if it had
// been sent by from at the given time.
func (r *Room) AddHistory(ctx context.Context, body string, from jid.JID, stamp time.Time) error {
	return r.sendMessage(ctx, stanza.GroupChatMessage, ext.Readers(
		ext.Text("body", body),
		delay.Delay{From: from, Stamp: stamp}.TokenReader(),
	))
}

// GetRoomInfo queries the room for its features.
// The result is delivered to the RoomHandler's HandleMUCInfo method.
func (r *Room) GetRoomInfo(ctx context.Context) error {
	if r.disco == nil {
		return ErrNoDisco
	}
	return r.disco.GetInfo(ctx, r.Addr().Bare(), "", r, int(OpGetRoomInfo))
}

// GetRoomItems queries the room for its items.
// The result is delivered to the RoomHandler's HandleMUCItems method.
func (r *Room) GetRoomItems(ctx context.Context) error {
	if r.disco == nil {
		return ErrNoDisco
	}
	return r.disco.GetItems(ctx, r.Addr().Bare(), "", r, int(OpGetRoomItems))
}

func (r *Room) sendIQ(ctx context.Context, typ stanza.IQType, payload ext.Extension, op Operation) error {
	_, err := r.d.SendIQ(ctx, stanza.IQ{
		To:   r.Addr().Bare(),
		Type: typ,
	}, payload.TokenReader(), r, int(op))
	return err
}

// SetRole changes the role of the occupant with the given nickname.
func (r *Room) SetRole(ctx context.Context, nick string, role Role, reason string) error {
	op := roleOp(role)
	if op == OpInvalid {
		return ErrBadOperation
	}
	return r.sendIQ(ctx, stanza.SetIQ, &Admin{Items: []Item{{
		Affiliation: AffiliationInvalid,
		Role:        role,
		Nick:        nick,
		Reason:      reason,
	}}}, op)
}

// Kick removes the occupant with the given nickname from the room.
func (r *Room) Kick(ctx context.Context, nick, reason string) error {
	return r.SetRole(ctx, nick, RoleNone, reason)
}

// GrantVoice lets a visitor send messages to the room.
func (r *Room) GrantVoice(ctx context.Context, nick, reason string) error {
	return r.SetRole(ctx, nick, RoleParticipant, reason)
}

// RevokeVoice stops a participant from sending messages to the room.
func (r *Room) RevokeVoice(ctx context.Context, nick, reason string) error {
	return r.SetRole(ctx, nick, RoleVisitor, reason)
}

// SetAffiliation changes the affiliation of the occupant with the given
// nickname.
func (r *Room) SetAffiliation(ctx context.Context, nick string, a Affiliation, reason string) error {
	op := affiliationOp(a)
	if op == OpInvalid {
		return ErrBadOperation
	}
	return r.sendIQ(ctx, stanza.SetIQ, &Admin{Items: []Item{{
		Affiliation: a,
		Role:        RoleInvalid,
		Nick:        nick,
		Reason:      reason,
	}}}, op)
}

// Ban bans the occupant with the given nickname from the room.
func (r *Room) Ban(ctx context.Context, nick, reason string) error {
	return r.SetAffiliation(ctx, nick, AffiliationOutcast, reason)
}

// RequestList requests one of the occupant lists.
// The op must be one of the OpRequest…List operations.
// The list is delivered to the ConfigHandler's HandleMUCConfigList method.
func (r *Room) RequestList(ctx context.Context, op Operation) error {
	if !op.isRequestList() {
		return ErrBadOperation
	}
	return r.sendIQ(ctx, stanza.GetIQ, &Admin{Items: []Item{op.listItem()}}, op)
}

// StoreList changes the entries of one of the occupant lists.
// The op must be one of the OpStore…List operations.
// Items without an affiliation and role get the ones of the list.
func (r *Room) StoreList(ctx context.Context, items []Item, op Operation) error {
	if !op.isStoreList() {
		return ErrBadOperation
	}
	def := op.listItem()
	items = slices.Clone(items)
	for i := range items {
		if items[i].Affiliation == AffiliationInvalid && items[i].Role == RoleInvalid {
			items[i].Affiliation = def.Affiliation
			items[i].Role = def.Role
		}
	}
	return r.sendIQ(ctx, stanza.SetIQ, &Admin{Items: items}, op)
}

// RequestRoomConfig requests the configuration form of the room.
// The form is delivered to the ConfigHandler's HandleMUCConfigForm method.
func (r *Room) RequestRoomConfig(ctx context.Context) error {
	return r.sendIQ(ctx, stanza.GetIQ, &Owner{}, OpRequestRoomConfig)
}

// SetRoomConfig submits a filled in configuration form.
func (r *Room) SetRoomConfig(ctx context.Context, f *form.Data) error {
	return r.sendIQ(ctx, stanza.SetIQ, &Owner{Form: f}, OpSendRoomConfig)
}

// AcknowledgeInstantRoom accepts the default configuration of a newly created
// room.
func (r *Room) AcknowledgeInstantRoom(ctx context.Context) error {
	return r.sendIQ(ctx, stanza.SetIQ, &Owner{Form: form.New(form.Submit)}, OpCreateInstantRoom)
}

// CancelRoomCreation cancels the configuration of a newly created room, which
// causes the service to destroy it.
func (r *Room) CancelRoomCreation(ctx context.Context) error {
	return r.sendIQ(ctx, stanza.SetIQ, &Owner{Form: form.Cancel("", "")}, OpCancelRoomCreation)
}

// Destroy destroys the room.
// Alternate optionally names a room that replaces this one and password is the
// password of the alternate room, if any.
func (r *Room) Destroy(ctx context.Context, reason string, alternate jid.JID, password string) error {
	return r.sendIQ(ctx, stanza.SetIQ, &Owner{Destroy: &Destroy{
		JID:      alternate,
		Reason:   reason,
		Password: password,
	}}, OpDestroyRoom)
}

// SetPublish controls whether the room is listed in the local entity's
// service discovery items for the rooms node while joined.
// If publishNick is true the nickname is published as the item name.
func (r *Room) SetPublish(publish, publishNick bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish = publish
	r.publishNick = publishNick
}

// HandlePresence implements dispatch.PresenceHandler.
func (r *Room) HandlePresence(st *ext.Stanza) {
	if stanza.PresenceType(st.Type) == stanza.ErrorPresence {
		r.presenceError(st)
		return
	}
	u, ok := st.Extension(ext.KindMUCUser).(*User)
	if !ok {
		return
	}

	item := u.item()
	p := Participant{
		Nick:        st.From,
		Affiliation: item.Affiliation,
		Role:        item.Role,
		JID:         item.JID,
		Actor:       item.Actor,
		Reason:      item.Reason,
		Status:      st.Status,
		Flags:       u.Flags(),
	}
	if p.Flags&UserNickChanged != 0 {
		p.NewNick = item.Nick
	}
	if u.Destroy != nil {
		p.Alternate = u.Destroy.JID
		p.Reason = u.Destroy.Reason
	}
	nick := st.From.Resourcepart()
	unavailable := stanza.PresenceType(st.Type) == stanza.UnavailablePresence

	r.mu.Lock()
	r.flags = r.flags.merge(u.RoomFlags())
	if p.Flags&UserNickChanged != 0 && p.NewNick != "" &&
		nick == r.addr.Resourcepart() && p.NewNick == r.newNick {
		p.Flags |= UserSelf
	}
	if p.Flags&UserSelf != 0 {
		r.affiliation = p.Affiliation
		r.role = p.Role
	}
	created := p.Flags&UserNewRoom != 0
	if created {
		r.creationPending = true
	}
	if p.Flags&UserNickAssigned != 0 && nick != "" {
		if addr, err := nickAddr(r.addr, nick); err == nil {
			r.addr = addr
		}
	}
	if p.Flags&(UserNickChanged|UserSelf) == UserNickChanged|UserSelf && p.NewNick != "" {
		if addr, err := nickAddr(r.addr, p.NewNick); err == nil {
			r.addr = addr
		}
		r.newNick = ""
	}
	if r.occupants != nil {
		if unavailable {
			delete(r.occupants, nick)
		} else {
			r.occupants[nick] = p
		}
	}
	removed := unavailable && p.Flags&UserSelf != 0 && p.Flags&UserNickChanged == 0
	r.mu.Unlock()

	if removed {
		r.reset()
	}
	if created && r.h.HandleMUCRoomCreation(r) {
		// A failed send also fails the session, which reports it.
		_ = r.AcknowledgeInstantRoom(r.d.Context())
	}
	r.h.HandleMUCParticipantPresence(r, p, st)
}

func (r *Room) presenceError(st *ext.Stanza) {
	se, _ := st.StanzaError()
	r.mu.Lock()
	joining := r.newNick == ""
	r.newNick = ""
	r.mu.Unlock()
	if joining {
		r.reset()
	}
	r.h.HandleMUCError(r, se)
}

// HandleMessage implements dispatch.MessageHandler.
func (r *Room) HandleMessage(st *ext.Stanza) {
	if stanza.MessageType(st.Type) == stanza.ErrorMessage {
		se, _ := st.StanzaError()
		r.h.HandleMUCError(r, se)
		return
	}
	if u, ok := st.Extension(ext.KindMUCUser).(*User); ok {
		r.mu.Lock()
		r.flags = r.flags.merge(u.RoomFlags())
		r.mu.Unlock()
		if u.Decline != nil {
			r.h.HandleMUCInviteDecline(r, u.Decline.From, u.Decline.Reason)
		}
	}
	if f, ok := form.Get(st); ok && r.config != nil {
		r.config.HandleMUCRequest(r, f)
		return
	}
	switch {
	case st.HasSubject && st.Body == "":
		r.h.HandleMUCSubject(r, st.From.Resourcepart(), st.Subject)
	case st.Body != "":
		private := stanza.MessageType(st.Type) != stanza.GroupChatMessage
		r.h.HandleMUCMessage(r, st, private)
	}
}

// HandleIQID implements dispatch.IQResultHandler.
func (r *Room) HandleIQID(st *ext.Stanza, context int) {
	op := Operation(context)
	var err error
	if se, isErr := st.StanzaError(); isErr {
		err = se
	}

	switch op {
	case OpCreateInstantRoom, OpSendRoomConfig, OpCancelRoomCreation:
		if err == nil {
			r.mu.Lock()
			r.creationPending = false
			r.mu.Unlock()
		}
	}
	if r.config == nil {
		return
	}

	switch {
	case err != nil:
	case op.isRequestList():
		var items []Item
		if a, ok := st.Extension(ext.KindMUCAdmin).(*Admin); ok {
			items = a.Items
		}
		r.config.HandleMUCConfigList(r, items, op)
		return
	case op == OpRequestRoomConfig:
		if o, ok := st.Extension(ext.KindMUCOwner).(*Owner); ok && o.Form != nil {
			r.config.HandleMUCConfigForm(r, o.Form)
			return
		}
		err = ErrNoForm
	}
	r.config.HandleMUCConfigResult(r, op, err)
}

// HandleDiscoInfo implements disco.Handler.
func (r *Room) HandleDiscoInfo(_ jid.JID, info disco.Info, _ int) {
	r.mu.Lock()
	flags := r.flags & loggingFlags
	for _, ff := range featureFlags {
		if info.HasFeature(ff.feature) {
			flags |= ff.flag
		}
	}
	r.flags = flags
	r.mu.Unlock()

	var name string
	if len(info.Identities) > 0 {
		name = info.Identities[0].Name
	}
	var f *form.Data
	if len(info.Forms) > 0 {
		f = info.Forms[0]
	}
	r.h.HandleMUCInfo(r, flags, name, f)
}

// HandleDiscoItems implements disco.Handler.
func (r *Room) HandleDiscoItems(_ jid.JID, items disco.Items, _ int) {
	r.h.HandleMUCItems(r, items.Items)
}

// HandleDiscoError implements disco.Handler.
func (r *Room) HandleDiscoError(_ jid.JID, _ stanza.Error, context int) {
	switch Operation(context) {
	case OpGetRoomInfo:
		r.h.HandleMUCInfo(r, 0, "", nil)
	case OpGetRoomItems:
		r.h.HandleMUCItems(r, nil)
	}
}

// DiscoNodeFeatures implements disco.NodeHandler.
func (r *Room) DiscoNodeFeatures(jid.JID, string) []string { return nil }

// DiscoNodeIdentities implements disco.NodeHandler.
func (r *Room) DiscoNodeIdentities(jid.JID, string) []disco.Identity { return nil }

// DiscoNodeItems implements disco.NodeHandler.
// A published room lists itself on the rooms node.
func (r *Room) DiscoNodeItems(_, _ jid.JID, node string) []disco.Item {
	if node != NSRooms {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.joined || !r.publish {
		return nil
	}
	item := disco.Item{JID: r.addr.Bare()}
	if r.publishNick {
		item.Name = r.addr.Resourcepart()
	}
	return []disco.Item{item}
}

// String returns the bare address of the room.
func (r *Room) String() string {
	return r.Addr().Bare().String()
}
