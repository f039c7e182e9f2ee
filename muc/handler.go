// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// Participant is a snapshot of an occupant taken from a single presence.
type Participant struct {
	// Nick is the occupants address in the room.
	// It is never the zero JID.
	Nick jid.JID

	Affiliation Affiliation
	Role        Role

	// JID, Actor, and Alternate are the zero JID unless the room discloses them.
	JID       jid.JID
	Actor     jid.JID
	Alternate jid.JID

	Reason  string
	NewNick string
	Status  string
	Flags   UserFlags
}

// RoomHandler receives the events of a room.
// Methods are called from the goroutine that dispatches stanzas and may call
// methods on the room.
type RoomHandler interface {
	// HandleMUCParticipantPresence is called for every presence of an occupant,
	// including the local user.
	HandleMUCParticipantPresence(room *Room, p Participant, st *ext.Stanza)

	// HandleMUCMessage is called for messages with a body.
	// Private is true for messages that were not sent to the whole room.
	HandleMUCMessage(room *Room, msg *ext.Stanza, private bool)

	// HandleMUCRoomCreation is called when joining created the room.
	// Returning true accepts the default configuration and unlocks the room,
	// returning false leaves it locked until it is configured or the creation
	// is canceled.
	HandleMUCRoomCreation(room *Room) bool

	// HandleMUCSubject is called when the subject is set or announced on join.
	// Nick is empty if the room itself set the subject.
	HandleMUCSubject(room *Room, nick, subject string)

	// HandleMUCInviteDecline is called when an invitee declines an invitation.
	HandleMUCInviteDecline(room *Room, invitee jid.JID, reason string)

	// HandleMUCError is called for error presence and messages.
	HandleMUCError(room *Room, err stanza.Error)

	// HandleMUCInfo is called with the result of GetRoomInfo.
	// On error the flags are zero and the name and form are empty.
	HandleMUCInfo(room *Room, flags RoomFlags, name string, info *form.Data)

	// HandleMUCItems is called with the result of GetRoomItems.
	HandleMUCItems(room *Room, items []disco.Item)
}

// ConfigHandler receives the outcome of moderation and configuration requests.
type ConfigHandler interface {
	// HandleMUCConfigList is called with the list requested by RequestList.
	HandleMUCConfigList(room *Room, items []Item, op Operation)

	// HandleMUCConfigForm is called with the form requested by
	// RequestRoomConfig.
	HandleMUCConfigForm(room *Room, f *form.Data)

	// HandleMUCConfigResult is called when any other request completes.
	// Err is nil on success and a stanza.Error otherwise.
	HandleMUCConfigResult(room *Room, op Operation, err error)

	// HandleMUCRequest is called when the room forwards a form, such as a voice
	// request, for approval.
	HandleMUCRequest(room *Room, f *form.Data)
}
