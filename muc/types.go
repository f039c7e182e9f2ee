// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Affiliation,Role,Operation -linecomment

package muc

import (
	"encoding/xml"
)

// Affiliation indicates a users long lived affiliation to the room.
type Affiliation uint8

// A list of room affiliations.
const (
	AffiliationNone Affiliation = iota // none

	// Support for the owner affiliation is required.
	AffiliationOwner // owner

	// Support for these affiliations is recommended, but optional.
	AffiliationAdmin   // admin
	AffiliationMember  // member
	AffiliationOutcast // outcast

	// AffiliationInvalid is used when an affiliation is missing or not
	// recognized.
	// It is never serialized.
	AffiliationInvalid // invalid
)

func parseAffiliation(s string) Affiliation {
	for a := AffiliationNone; a < AffiliationInvalid; a++ {
		if a.String() == s {
			return a
		}
	}
	return AffiliationInvalid
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
// Unrecognized values result in AffiliationInvalid.
func (a *Affiliation) UnmarshalXMLAttr(attr xml.Attr) error {
	*a = parseAffiliation(attr.Value)
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (a Affiliation) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if a >= AffiliationInvalid {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: a.String()}, nil
}

// Role indicates a users role in the room for the duration of its visit.
type Role uint8

// A list of user roles.
const (
	RoleNone Role = iota // none

	// Support for these roles is required.
	RoleModerator   // moderator
	RoleParticipant // participant

	// Support for these roles is recommended, but optional.
	RoleVisitor // visitor

	// RoleInvalid is used when a role is missing or not recognized.
	// It is never serialized.
	RoleInvalid // invalid
)

func parseRole(s string) Role {
	for r := RoleNone; r < RoleInvalid; r++ {
		if r.String() == s {
			return r
		}
	}
	return RoleInvalid
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
// Unrecognized values result in RoleInvalid.
func (r *Role) UnmarshalXMLAttr(attr xml.Attr) error {
	*r = parseRole(attr.Value)
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (r Role) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if r >= RoleInvalid {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: r.String()}, nil
}

// Privileges returns the privileges that a user with role r has by default.
func (r Role) Privileges() Privileges {
	switch r {
	case RoleModerator:
		return PrivilegesModerator
	case RoleParticipant:
		return PrivilegesParticipant
	case RoleVisitor:
		return PrivilegesVisitor
	}
	return 0
}

// Privileges is a bit mask indicating the various privileges assigned to a room
// user.
type Privileges uint16

// A list of possible privileges.
const (
	PrivilegePresent Privileges = 1 << iota
	PrivilegeReceiveMessages
	PrivilegeReceivePresence
	PrivilegeBroadcastPresence
	PrivilegeChangeAvailability
	PrivilegeChangeNick
	PrivilegePrivateMessage
	PrivilegeSendInvites
	PrivilegeSendMessages
	PrivilegeModifySubject
	PrivilegeKick
	PrivilegeGrantVoice
	PrivilegeRevokeVoice

	// Common default privilages for each role.
	// These are just common defaults provided as a convenience, it is not
	// guaranteed that a user of a given role has this set of privileges.
	PrivilegesVisitor     = PrivilegePresent | PrivilegeReceiveMessages | PrivilegeReceivePresence | PrivilegeBroadcastPresence | PrivilegeChangeAvailability | PrivilegeChangeNick | PrivilegePrivateMessage | PrivilegeSendInvites
	PrivilegesParticipant = PrivilegesVisitor | PrivilegeSendMessages | PrivilegeModifySubject
	PrivilegesModerator   = PrivilegesParticipant | PrivilegeKick | PrivilegeGrantVoice | PrivilegeRevokeVoice
)

// Has reports whether all of the privileges in o are set in p.
func (p Privileges) Has(o Privileges) bool {
	return p&o == o
}

// Operation identifies a request sent by a Room whose outcome is reported to
// the rooms ConfigHandler.
type Operation uint8

// A list of room operations.
const (
	OpSetRoleNone        Operation = iota // set-role-none
	OpSetVisitor                          // set-visitor
	OpSetParticipant                      // set-participant
	OpSetModerator                        // set-moderator
	OpSetAffiliationNone                  // set-affiliation-none
	OpSetOutcast                          // set-outcast
	OpSetMember                           // set-member
	OpSetAdmin                            // set-admin
	OpSetOwner                            // set-owner

	OpRequestVoiceList     // request-voice-list
	OpRequestBanList       // request-ban-list
	OpRequestMemberList    // request-member-list
	OpRequestModeratorList // request-moderator-list
	OpRequestOwnerList     // request-owner-list
	OpRequestAdminList     // request-admin-list

	OpStoreVoiceList     // store-voice-list
	OpStoreBanList       // store-ban-list
	OpStoreMemberList    // store-member-list
	OpStoreModeratorList // store-moderator-list
	OpStoreOwnerList     // store-owner-list
	OpStoreAdminList     // store-admin-list

	OpCreateInstantRoom  // create-instant-room
	OpCancelRoomCreation // cancel-room-creation
	OpRequestRoomConfig  // request-room-config
	OpSendRoomConfig     // send-room-config
	OpDestroyRoom        // destroy-room
	OpGetRoomInfo        // get-room-info
	OpGetRoomItems       // get-room-items

	OpInvalid // invalid
)

func (op Operation) isRequestList() bool {
	return op >= OpRequestVoiceList && op <= OpRequestAdminList
}

func (op Operation) isStoreList() bool {
	return op >= OpStoreVoiceList && op <= OpStoreAdminList
}

// listItem returns the item that selects the members of a list.
func (op Operation) listItem() Item {
	if op.isStoreList() {
		op -= OpStoreVoiceList - OpRequestVoiceList
	}
	item := Item{Affiliation: AffiliationInvalid, Role: RoleInvalid}
	switch op {
	case OpRequestVoiceList:
		item.Role = RoleParticipant
	case OpRequestModeratorList:
		item.Role = RoleModerator
	case OpRequestBanList:
		item.Affiliation = AffiliationOutcast
	case OpRequestMemberList:
		item.Affiliation = AffiliationMember
	case OpRequestOwnerList:
		item.Affiliation = AffiliationOwner
	case OpRequestAdminList:
		item.Affiliation = AffiliationAdmin
	}
	return item
}

func roleOp(r Role) Operation {
	switch r {
	case RoleNone:
		return OpSetRoleNone
	case RoleVisitor:
		return OpSetVisitor
	case RoleParticipant:
		return OpSetParticipant
	case RoleModerator:
		return OpSetModerator
	}
	return OpInvalid
}

func affiliationOp(a Affiliation) Operation {
	switch a {
	case AffiliationNone:
		return OpSetAffiliationNone
	case AffiliationOutcast:
		return OpSetOutcast
	case AffiliationMember:
		return OpSetMember
	case AffiliationAdmin:
		return OpSetAdmin
	case AffiliationOwner:
		return OpSetOwner
	}
	return OpInvalid
}
