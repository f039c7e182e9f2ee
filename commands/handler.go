// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands

import (
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/disco"
)

// Provider implements one or more commands offered by the local entity.
type Provider interface {
	// HandleAdhocCommand is called for every request to execute the command.
	// The session id is the one sent by the requester or a new one for the
	// first stage of a command.
	// The provider answers by calling Respond on the Manager, either before
	// returning or later.
	HandleAdhocCommand(from jid.JID, cmd *Command, sessionID string)

	// HandleAdhocAccessRequest reports whether the command at node is listed
	// for from.
	// It only controls whether the command is visible, not whether it may be
	// executed, and must not block.
	HandleAdhocAccessRequest(from jid.JID, node string) bool
}

// Handler receives the results of requests sent with CheckSupport,
// GetCommands, and Execute.
// The context is the value passed when the request was sent.
type Handler interface {
	HandleAdhocSupport(remote jid.JID, support bool, context int)
	HandleAdhocCommands(remote jid.JID, commands []disco.Item, context int)
	HandleAdhocExecutionResult(remote jid.JID, cmd *Command, context int)
	HandleAdhocError(remote jid.JID, err stanza.Error, context int)
}
