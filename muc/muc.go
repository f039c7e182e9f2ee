// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package muc implements Multi-User Chat.
//
// A Room tracks the state of a single room that the local entity occupies:
// whether it is joined, its own affiliation and role, the room flags learned
// from status codes and service discovery, and the list of occupants.
// Moderation and configuration requests are tracked by id and their outcome is
// reported to a ConfigHandler.
//
// Invitations that arrive outside of a joined room are handled by an
// InvitationManager.
package muc // import "mellium.im/jabberkit/muc"

import (
	"errors"

	"mellium.im/jabberkit/delay"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
)

// Various namespaces used by this package.
const (
	NS        = "http://jabber.org/protocol/muc"
	NSUser    = NS + "#user"
	NSAdmin   = NS + "#admin"
	NSOwner   = NS + "#owner"
	NSRequest = NS + "#request"
	NSRooms   = NS + "#rooms"
	NSConf    = "jabber:x:conference"
)

// Errors returned by this package.
var (
	ErrNotJoined    = errors.New("muc: room not joined")
	ErrNoDisco      = errors.New("muc: room has no service discovery")
	ErrBadOperation = errors.New("muc: operation not valid for this request")
	ErrNoForm       = errors.New("muc: reply did not contain a configuration form")
)

// RoomFlags describe the configuration of a room as reported by status codes
// and service discovery.
type RoomFlags uint32

// A list of room flags.
const (
	FlagPasswordProtected RoomFlags = 1 << iota
	FlagPublicLogging
	FlagPublicLoggingOff
	FlagHidden
	FlagMembersOnly
	FlagModerated
	FlagNonAnonymous
	FlagOpen
	FlagPersistent
	FlagPublic
	FlagSemiAnonymous
	FlagTemporary
	FlagUnmoderated
	FlagUnsecured
	FlagFullyAnonymous
)

const (
	anonymityFlags = FlagNonAnonymous | FlagSemiAnonymous | FlagFullyAnonymous
	loggingFlags   = FlagPublicLogging | FlagPublicLoggingOff
)

// merge returns f updated with the flags announced in o.
// Anonymity and logging flags replace the previous value of their group.
func (f RoomFlags) merge(o RoomFlags) RoomFlags {
	if o&anonymityFlags != 0 {
		f &^= anonymityFlags
	}
	if o&loggingFlags != 0 {
		f &^= loggingFlags
	}
	return f | o
}

var featureFlags = [...]struct {
	feature string
	flag    RoomFlags
}{
	{"muc_passwordprotected", FlagPasswordProtected},
	{"muc_hidden", FlagHidden},
	{"muc_membersonly", FlagMembersOnly},
	{"muc_moderated", FlagModerated},
	{"muc_nonanonymous", FlagNonAnonymous},
	{"muc_open", FlagOpen},
	{"muc_persistent", FlagPersistent},
	{"muc_public", FlagPublic},
	{"muc_semianonymous", FlagSemiAnonymous},
	{"muc_temporary", FlagTemporary},
	{"muc_unmoderated", FlagUnmoderated},
	{"muc_unsecured", FlagUnsecured},
	{"muc_fullyanonymous", FlagFullyAnonymous},
}

// UserFlags describe a presence or message received from a room.
type UserFlags uint16

// A list of user flags.
const (
	UserSelf UserFlags = 1 << iota
	UserNickChanged
	UserKicked
	UserBanned
	UserAffiliationChanged
	UserRoomDestroyed
	UserNickAssigned
	UserNewRoom
	UserMembershipRequired
	UserRoomShutdown
	UserAffiliationChangedWNR
)

// statusFlags maps a status code to the flags it sets.
func statusFlags(code int) (UserFlags, RoomFlags) {
	switch code {
	case 100, 172:
		return 0, FlagNonAnonymous
	case 101:
		return UserAffiliationChangedWNR, 0
	case 110:
		return UserSelf, 0
	case 170:
		return 0, FlagPublicLogging
	case 171:
		return 0, FlagPublicLoggingOff
	case 173:
		return 0, FlagSemiAnonymous
	case 174:
		return 0, FlagFullyAnonymous
	case 201:
		return UserNewRoom, 0
	case 210:
		return UserNickAssigned, 0
	case 301:
		return UserBanned, 0
	case 303:
		return UserNickChanged, 0
	case 307:
		return UserKicked, 0
	case 321:
		return UserAffiliationChanged, 0
	case 322:
		return UserMembershipRequired, 0
	case 332:
		return UserRoomShutdown, 0
	}
	return 0, 0
}

var prototypes = [...]ext.Prototype{
	ext.Decode[Join](ext.KindMUC, "/presence/x[@xmlns='"+NS+"']"),
	ext.Decode[User](ext.KindMUCUser, "/presence/x[@xmlns='"+NSUser+"']|/message/x[@xmlns='"+NSUser+"']"),
	ext.Decode[Admin](ext.KindMUCAdmin, "/iq/query[@xmlns='"+NSAdmin+"']"),
	ext.Decode[Owner](ext.KindMUCOwner, "/iq/query[@xmlns='"+NSOwner+"']"),
	ext.Decode[DirectInvite](ext.KindConference, "/message/x[@xmlns='"+NSConf+"']"),
	form.Prototype,
	delay.Prototype,
}

func registerExtensions(d *dispatch.Dispatcher) {
	for _, p := range prototypes {
		if err := d.RegisterExtension(p); err != nil {
			panic(err)
		}
	}
}
