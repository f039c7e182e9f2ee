// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are shared between packages.
package ns // import "mellium.im/jabberkit/internal/ns"

// List of commonly used namespaces.
const (
	Client    = "jabber:client"
	Stanza    = "urn:ietf:params:xml:ns:xmpp-stanzas"
	XML       = "http://www.w3.org/XML/1998/namespace"
	DiscoInfo = "http://jabber.org/protocol/disco#info"
	DiscoItem = "http://jabber.org/protocol/disco#items"
)
