// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"context"
	"encoding/xml"
	"strings"
	"sync"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/ext"
)

// Recorder is a stanza sender that records everything sent through it.
// If Err is set, Send returns it without recording anything.
type Recorder struct {
	Err error

	mu   sync.Mutex
	sent []string
}

// Send encodes r and records the result.
func (r *Recorder) Send(_ context.Context, tr xml.TokenReader) error {
	if r.Err != nil {
		return r.Err
	}
	s, err := Marshal(tr)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
	return nil
}

// Sent returns a copy of every recorded stanza.
func (r *Recorder) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

// Len returns the number of recorded stanzas.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// Last returns the most recently recorded stanza or the empty string.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1]
}

// Reset forgets all recorded stanzas.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// Parse parses a single stanza using the registry.
// If reg is nil, a new registry is used.
func Parse(reg *ext.Registry, s string) (*ext.Stanza, error) {
	if reg == nil {
		reg = ext.NewRegistry()
	}
	d := xml.NewDecoder(strings.NewReader(s))
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return nil, errNoStart
	}
	return reg.Parse(start, xmlstream.Inner(d))
}
