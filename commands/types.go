// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package commands

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Action,Status,Actions,NoteType -linecomment -output=types_string.go

// Action is the action requested by the entity executing a command.
type Action uint8

// A list of possible actions.
// ActionNone is sent as a missing action attribute, which the responder
// treats as ActionExecute.
const (
	ActionNone     Action = iota // none
	ActionExecute                // execute
	ActionCancel                 // cancel
	ActionPrev                   // prev
	ActionNext                   // next
	ActionComplete               // complete
	ActionInvalid                // invalid
)

func parseAction(s string) Action {
	if s == "" {
		return ActionNone
	}
	for a := ActionExecute; a < ActionInvalid; a++ {
		if a.String() == s {
			return a
		}
	}
	return ActionInvalid
}

// Status is the status of a command reported by the responder.
type Status uint8

// A list of possible statuses.
const (
	StatusNone      Status = iota // none
	StatusExecuting               // executing
	StatusCompleted               // completed
	StatusCanceled                // canceled
	StatusInvalid                 // invalid
)

func parseStatus(s string) Status {
	if s == "" {
		return StatusNone
	}
	for st := StatusExecuting; st < StatusInvalid; st++ {
		if st.String() == s {
			return st
		}
	}
	return StatusInvalid
}

// Done reports whether the status ends the session.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusCanceled
}
