// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jabberkit is a collection of XMPP extensions built on a common
// stanza dispatcher.
//
// Sessions are established with mellium.im/xmpp and served by a
// dispatch.Dispatcher, which parses stanzas into ext.Stanza values using the
// extensions registered with it and routes them to handlers.
// The subpackages implement multi-user chat, ad-hoc commands, service
// discovery, and several smaller protocols on top of the dispatcher.
// The mucbot command shows how they fit together.
package jabberkit // import "mellium.im/jabberkit"
