// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"strconv"
)

// Kind is a stable tag identifying the type of an extension.
// At most one extension of each kind is attached to a parsed stanza.
type Kind uint16

// A list of extension kinds provided by this module.
const (
	KindInvalid Kind = iota
	KindError
	KindDelay
	KindDataForm
	KindVersion
	KindDiscoInfo
	KindDiscoItems
	KindAdhoc
	KindMUC
	KindMUCUser
	KindMUCAdmin
	KindMUCOwner
	KindConference
	KindVCard
	KindLast
	KindSearch
	KindOffline
	KindAuth
	KindSI

	// KindUser is the first kind available for application defined extensions.
	KindUser Kind = 1000
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindError:      "error",
	KindDelay:      "delay",
	KindDataForm:   "x-data",
	KindVersion:    "version",
	KindDiscoInfo:  "disco-info",
	KindDiscoItems: "disco-items",
	KindAdhoc:      "adhoc",
	KindMUC:        "muc",
	KindMUCUser:    "muc-user",
	KindMUCAdmin:   "muc-admin",
	KindMUCOwner:   "muc-owner",
	KindConference: "conference",
	KindVCard:      "vcard",
	KindLast:       "last",
	KindSearch:     "search",
	KindOffline:    "offline",
	KindAuth:       "auth",
	KindSI:         "si",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	if k >= KindUser {
		return "user+" + strconv.Itoa(int(k-KindUser))
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}
