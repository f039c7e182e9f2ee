// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package tracker correlates outbound requests with their replies.
//
// A Table maps a stanza id to the handler that should receive the reply and a
// small context value that tells the handler which operation the reply belongs
// to.
// Entries are single use: resolving an id removes it from the table, and
// replies whose id is not (or no longer) present are ignored by callers.
// Entries never expire on their own; removing them is the only way to cancel a
// pending request.
package tracker // import "mellium.im/jabberkit/tracker"

import (
	"sync"
)

// Entry is a single pending request.
type Entry[C, H any] struct {
	ID      string
	Handler H
	Context C
}

// Table is a set of pending requests keyed by stanza id.
// The zero value is an empty table ready for use.
// It is safe for concurrent use.
type Table[C, H any] struct {
	mu      sync.Mutex
	pending map[string]Entry[C, H]
}

// Track records a pending request.
// If id is already tracked the earlier entry is silently replaced.
func (t *Table[C, H]) Track(id string, h H, context C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = make(map[string]Entry[C, H])
	}
	t.pending[id] = Entry[C, H]{ID: id, Handler: h, Context: context}
}

// Resolve removes the entry for id and returns it.
// If no entry exists ok is false.
func (t *Table[C, H]) Resolve(id string) (e Entry[C, H], ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok = t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return e, ok
}

// Peek returns the entry for id without removing it.
func (t *Table[C, H]) Peek(id string) (e Entry[C, H], ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok = t.pending[id]
	return e, ok
}

// Remove deletes the entry for id and reports whether one existed.
func (t *Table[C, H]) Remove(id string) bool {
	_, ok := t.Resolve(id)
	return ok
}

// RemoveFunc deletes every entry for which f returns true and reports how many
// were removed.
// f must not call back into the table.
func (t *Table[C, H]) RemoveFunc(f func(Entry[C, H]) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	for id, e := range t.pending {
		if f(e) {
			delete(t.pending, id)
			n++
		}
	}
	return n
}

// Len returns the number of pending requests.
func (t *Table[C, H]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
